package mock

import (
	"context"
	"fmt"

	"github.com/clydemeng/doppelganger/core/vm"
)

// StaticCall makes the mock endpoint invoke fn on target read-only and decodes
// the result. A single output is returned bare, several as []interface{}.
func (m *Mock) StaticCall(ctx context.Context, target *Contract, fn string, args ...interface{}) (interface{}, error) {
	method, err := lookupMethod(target.abi, fn)
	if err != nil {
		return nil, err
	}
	if len(method.Outputs) == 0 {
		return nil, ErrNoOutputs
	}
	input, err := packCall(method, args...)
	if err != nil {
		return nil, err
	}
	packed, err := vm.DoppelgangerABI.Pack(vm.MethodStaticCall, target.address, input)
	if err != nil {
		return nil, err
	}
	ret, err := m.backend.CallContract(ctx, vm.CallMsg{From: m.from, To: m.address, Data: packed})
	if err != nil {
		return nil, err
	}
	raw, err := unpackRelayed(vm.MethodStaticCall, ret)
	if err != nil {
		return nil, err
	}
	out, err := method.Outputs.Unpack(raw)
	if err != nil {
		return nil, fmt.Errorf("decode result of %s: %w", method.Sig, err)
	}
	if len(out) == 1 {
		return out[0], nil
	}
	return out, nil
}

// Call makes the mock endpoint invoke fn on target as a transaction and
// returns the raw result. Target observes the mock as its caller.
func (m *Mock) Call(ctx context.Context, target *Contract, fn string, args ...interface{}) ([]byte, error) {
	method, err := lookupMethod(target.abi, fn)
	if err != nil {
		return nil, err
	}
	input, err := packCall(method, args...)
	if err != nil {
		return nil, err
	}
	ret, err := m.admin(ctx, vm.MethodCall, target.address, input)
	if err != nil {
		return nil, err
	}
	return unpackRelayed(vm.MethodCall, ret)
}

func unpackRelayed(method string, ret []byte) ([]byte, error) {
	out, err := vm.DoppelgangerABI.Unpack(method, ret)
	if err != nil {
		return nil, err
	}
	return out[0].([]byte), nil
}
