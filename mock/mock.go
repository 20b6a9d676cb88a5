// Package mock deploys programmable stand-ins for contracts and configures
// what they return or how they revert, call by call.
//
//	m, _ := mock.Deploy(ctx, host, owner, tokenABI, nil)
//	err := m.Stub("balanceOf").WithArgs(alice).Returns(big.NewInt(7)).Commit(ctx)
//
// Invocations of m.Address() that match no configuration revert with
// "Mock on the method is not initialized".
package mock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/clydemeng/doppelganger/core/vm"
)

// ReceiveName addresses the stub of bare value transfers.
const ReceiveName = "receive"

var (
	// ErrRevertNotLast is returned when an outcome is chained after a revert.
	ErrRevertNotLast = errors.New("Revert must be the last call")

	// ErrVoidReturn is returned when return values are configured for a
	// function without outputs.
	ErrVoidReturn = errors.New("Cannot mock return values from a void function")

	// ErrArgsTwice is returned when WithArgs is chained twice.
	ErrArgsTwice = errors.New("withArgs can be called only once")

	// ErrReceiveReturn is returned when return values or arguments are
	// configured on the receive stub.
	ErrReceiveReturn = vm.ErrReceiveReturn

	// ErrUnknownFunction is returned when a name or signature matches no
	// function of the interface.
	ErrUnknownFunction = errors.New("Unknown function")

	// ErrNoOutputs is returned when a read-only relay targets a function
	// without outputs.
	ErrNoOutputs = errors.New("Cannot staticcall function with no outputs")

	// ErrAddressOccupied is returned when a mock is deployed over existing
	// code without override.
	ErrAddressOccupied = errors.New("address already contains a contract")
)

// DeployOpts places a mock at a chosen address instead of a fresh one.
type DeployOpts struct {
	Address  common.Address
	Override bool // replace code already present at Address
}

type occupiedError struct {
	addr common.Address
}

func (e *occupiedError) Error() string {
	return fmt.Sprintf("%s already contains a contract. If you want to override it, set the override parameter.", e.addr.Hex())
}

func (e *occupiedError) Is(target error) bool { return target == ErrAddressOccupied }

// Mock is a deployed mock endpoint impersonating an interface. The embedded
// Contract invokes the endpoint through the impersonated interface.
type Mock struct {
	*Contract

	mu      sync.Mutex
	stubs   map[string]*Stub // by canonical signature
	receive *Stub
}

// Deploy installs a new mock endpoint for parsed and returns its facade. With
// nil opts a fresh contract account is created from from.
func Deploy(ctx context.Context, backend Backend, from common.Address, parsed *abi.ABI, opts *DeployOpts) (*Mock, error) {
	var addr common.Address
	if opts == nil {
		deployed, err := backend.DeployCode(ctx, from, vm.DoppelgangerCode)
		if err != nil {
			return nil, fmt.Errorf("deploy mock: %w", err)
		}
		addr = deployed
	} else {
		if !opts.Override {
			code, err := backend.CodeAt(ctx, opts.Address)
			if err != nil {
				return nil, err
			}
			if len(code) > 0 {
				return nil, &occupiedError{addr: opts.Address}
			}
		}
		if err := backend.InstallCode(ctx, opts.Address, vm.DoppelgangerCode, opts.Override); err != nil {
			return nil, fmt.Errorf("Couldn't deploy at %s: %w", opts.Address.Hex(), err)
		}
		addr = opts.Address
	}
	log.Debug("Deployed mock", "addr", addr, "functions", len(parsed.Methods), "override", opts != nil && opts.Override)
	return Attach(backend, addr, parsed, from), nil
}

// Attach returns a facade for a mock endpoint already installed at addr.
func Attach(backend Backend, addr common.Address, parsed *abi.ABI, from common.Address) *Mock {
	m := &Mock{
		Contract: NewContract(backend, addr, parsed, from),
		stubs:    make(map[string]*Stub),
	}
	m.receive = newReceiveStub(m)
	return m
}

// Stub returns the builder of a function, looked up by name, go-ethereum's
// disambiguated name or canonical signature. ReceiveName selects the receive
// stub. Every alias of a function shares one builder. An unknown name yields a
// builder whose Commit fails with ErrUnknownFunction.
func (m *Mock) Stub(fn string) *Stub {
	if fn == ReceiveName {
		return m.receive
	}
	method, err := lookupMethod(m.abi, fn)
	if err != nil {
		return &Stub{mock: m, name: fn, fatal: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.stubs[method.Sig]
	if !ok {
		s = newStub(m, method)
		m.stubs[method.Sig] = s
	}
	return s
}

// Receive returns the stub of bare value transfers.
func (m *Mock) Receive() *Stub { return m.receive }

// Signatures returns the canonical signatures of the impersonated functions in
// sorted order.
func (m *Mock) Signatures() []string {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, method := range m.abi.Methods {
		set.Add(method.Sig)
	}
	sigs := set.ToSlice()
	sort.Strings(sigs)
	return sigs
}

// admin sends a committed call to an admin entry point of the endpoint.
func (m *Mock) admin(ctx context.Context, name string, args ...interface{}) ([]byte, error) {
	input, err := vm.DoppelgangerABI.Pack(name, args...)
	if err != nil {
		return nil, err
	}
	return m.backend.CallContractCommit(ctx, vm.CallMsg{From: m.from, To: m.address, Data: input})
}
