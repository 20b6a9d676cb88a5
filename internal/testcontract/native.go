// Package testcontract provides native third-party contracts that tests put
// next to mock endpoints: a counter, a proxy calling into a counter, an ether
// forwarder and a balance checker.
package testcontract

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethvm "github.com/ethereum/go-ethereum/core/vm"

	"github.com/clydemeng/doppelganger/core/vm"
)

type handler func(env vm.Env, args []interface{}) ([]interface{}, error)

// native dispatches calldata to Go handlers by ABI method name.
type native struct {
	abi      abi.ABI
	handlers map[string]handler
}

func newNative(parsed abi.ABI, handlers map[string]handler) *native {
	return &native{abi: parsed, handlers: handlers}
}

func (n *native) Run(env vm.Env, input []byte) ([]byte, error) {
	if len(input) == 0 {
		return nil, nil
	}
	if len(input) < vm.SelectorLength {
		return revert("")
	}
	method, err := n.abi.MethodById(input[:vm.SelectorLength])
	if err != nil {
		return revert("unknown selector")
	}
	args, err := method.Inputs.Unpack(input[vm.SelectorLength:])
	if err != nil {
		return revert(err.Error())
	}
	rets, err := n.handlers[method.Name](env, args)
	if err != nil {
		return revertData(rets), err
	}
	return method.Outputs.Pack(rets...)
}

// revertData carries revert data out of a failed handler.
func revertData(rets []interface{}) []byte {
	if len(rets) == 1 {
		if data, ok := rets[0].([]byte); ok {
			return data
		}
	}
	return nil
}

func revert(reason string) ([]byte, error) {
	if reason == "" {
		return nil, gethvm.ErrExecutionReverted
	}
	return vm.EncodeRevert(reason), gethvm.ErrExecutionReverted
}

// fail makes a handler revert with reason.
func fail(reason string) ([]interface{}, error) {
	data, err := revert(reason)
	return []interface{}{data}, err
}

// bubble makes a handler revert with the payload of a failed sub-call.
func bubble(data []byte, err error) ([]interface{}, error) {
	return []interface{}{data}, err
}

func loadAddress(env vm.Env, slot common.Hash) common.Address {
	return common.BytesToAddress(env.GetState(slot).Bytes())
}

func storeAddress(env vm.Env, slot common.Hash, addr common.Address) error {
	return env.SetState(slot, common.BytesToHash(addr.Bytes()))
}

func mustParse(abiJSON string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic(fmt.Sprintf("testcontract: invalid ABI: %v", err))
	}
	return parsed
}
