package mock

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/clydemeng/doppelganger/core/vm"
)

// Backend is the runtime mock endpoints are installed into and invoked
// through. *core.Host implements it.
type Backend interface {
	// InstallCode places code at addr, failing if addr already holds code
	// and override is false.
	InstallCode(ctx context.Context, addr common.Address, code []byte, override bool) error

	// DeployCode creates an account holding code at the address derived from
	// the sender and its nonce.
	DeployCode(ctx context.Context, from common.Address, code []byte) (common.Address, error)

	// CodeAt returns the code installed at addr.
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)

	// CallContract executes msg without keeping any state change.
	CallContract(ctx context.Context, msg vm.CallMsg) ([]byte, error)

	// CallContractCommit executes msg as a transaction.
	CallContractCommit(ctx context.Context, msg vm.CallMsg) ([]byte, error)
}

// Contract is a binding of an ABI to an address on a Backend. Invocations are
// sent from a fixed sender.
type Contract struct {
	backend Backend
	address common.Address
	abi     *abi.ABI
	from    common.Address
}

// NewContract binds parsed to address.
func NewContract(backend Backend, address common.Address, parsed *abi.ABI, from common.Address) *Contract {
	return &Contract{backend: backend, address: address, abi: parsed, from: from}
}

// Address returns the bound address.
func (c *Contract) Address() common.Address { return c.address }

// ABI returns the bound interface.
func (c *Contract) ABI() *abi.ABI { return c.abi }

// From returns the sender invocations are sent from.
func (c *Contract) From() common.Address { return c.from }

// WithFrom returns a copy of the binding that sends from another account.
func (c *Contract) WithFrom(from common.Address) *Contract {
	cpy := *c
	cpy.from = from
	return &cpy
}

// Query invokes a method without keeping state changes and decodes its
// outputs.
func (c *Contract) Query(ctx context.Context, fn string, args ...interface{}) ([]interface{}, error) {
	method, err := lookupMethod(c.abi, fn)
	if err != nil {
		return nil, err
	}
	input, err := packCall(method, args...)
	if err != nil {
		return nil, err
	}
	ret, err := c.backend.CallContract(ctx, vm.CallMsg{From: c.from, To: c.address, Data: input})
	if err != nil {
		return nil, err
	}
	return method.Outputs.Unpack(ret)
}

// Transact invokes a method as a transaction and returns the raw result.
func (c *Contract) Transact(ctx context.Context, fn string, args ...interface{}) ([]byte, error) {
	return c.TransactWithValue(ctx, nil, fn, args...)
}

// TransactWithValue is Transact with value attached.
func (c *Contract) TransactWithValue(ctx context.Context, value *uint256.Int, fn string, args ...interface{}) ([]byte, error) {
	method, err := lookupMethod(c.abi, fn)
	if err != nil {
		return nil, err
	}
	input, err := packCall(method, args...)
	if err != nil {
		return nil, err
	}
	return c.backend.CallContractCommit(ctx, vm.CallMsg{From: c.from, To: c.address, Data: input, Value: value})
}

// Transfer sends value with empty call data.
func (c *Contract) Transfer(ctx context.Context, value *uint256.Int) error {
	_, err := c.backend.CallContractCommit(ctx, vm.CallMsg{From: c.from, To: c.address, Value: value})
	return err
}

// RawCall sends arbitrary call data without keeping state changes.
func (c *Contract) RawCall(ctx context.Context, input []byte) ([]byte, error) {
	return c.backend.CallContract(ctx, vm.CallMsg{From: c.from, To: c.address, Data: common.CopyBytes(input)})
}

// lookupMethod finds a method by go-ethereum's name or by canonical signature.
// The plain name of an overloaded function selects its first declaration.
func lookupMethod(parsed *abi.ABI, fn string) (*abi.Method, error) {
	if m, ok := parsed.Methods[fn]; ok {
		return &m, nil
	}
	for name := range parsed.Methods {
		if m := parsed.Methods[name]; m.Sig == fn {
			return &m, nil
		}
	}
	return nil, fmt.Errorf("%w %s", ErrUnknownFunction, fn)
}

// packCall returns selector ‖ encoded args.
func packCall(method *abi.Method, args ...interface{}) ([]byte, error) {
	packed, err := method.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("encode arguments of %s: %w", method.Sig, err)
	}
	return append(common.CopyBytes(method.ID), packed...), nil
}

// ParseABI parses a JSON interface description.
func ParseABI(abiJSON string) (*abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
