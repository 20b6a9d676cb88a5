package mock

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/clydemeng/doppelganger/core/vm"
)

// receiveRevertReason is the reason of Reverts on the receive stub.
const receiveRevertReason = "Mock Revert"

// stubOp applies one declared outcome to the call key the chain committed
// under.
type stubOp func(ctx context.Context, key []byte) error

// Stub accumulates a chain of outcome declarations for one function and
// applies them on Commit.
//
// The first outcome of a chain replaces whatever the key held before, later
// ones are appended to its queue. The last outcome of a queue repeats for
// every further invocation.
//
// A validation failure discards the pending chain. Later calls are ignored
// and the failure is returned by Err and Commit until the stub is committed
// or Reset. A Stub must not be used by several goroutines at once.
type Stub struct {
	mock    *Mock
	method  *abi.Method // nil for the receive stub and unknown functions
	name    string      // requested name of an unknown function
	receive bool
	fatal   error // lookup failure, never reset

	ops       []stubOp
	key       []byte // selector, or full call data after WithArgs
	revertSet bool
	argsSet   bool
	err       error
}

func newStub(m *Mock, method *abi.Method) *Stub {
	s := &Stub{mock: m, method: method}
	s.reset()
	return s
}

func newReceiveStub(m *Mock) *Stub {
	return &Stub{mock: m, receive: true}
}

// Signature returns the canonical signature of the stubbed function,
// ReceiveName, or the requested name when no function matched.
func (s *Stub) Signature() string {
	switch {
	case s.receive:
		return ReceiveName
	case s.method != nil:
		return s.method.Sig
	default:
		return s.name
	}
}

// Returns declares an invocation returning values, encoded per the function's
// outputs.
func (s *Stub) Returns(values ...interface{}) *Stub {
	if s.skip() {
		return s
	}
	if s.receive {
		return s.fail(ErrReceiveReturn)
	}
	if s.revertSet {
		return s.fail(ErrRevertNotLast)
	}
	if len(s.method.Outputs) == 0 {
		return s.fail(ErrVoidReturn)
	}
	encoded, err := s.method.Outputs.Pack(values...)
	if err != nil {
		return s.fail(fmt.Errorf("encode return values of %s: %w", s.method.Sig, err))
	}
	s.enqueue(vm.MethodReplaceReturn, vm.MethodAppendReturn, encoded)
	return s
}

// Reverts declares an invocation reverting with the default reason. Nothing
// may be chained after it.
func (s *Stub) Reverts() *Stub {
	if s.receive {
		return s.RevertsWithReason(receiveRevertReason)
	}
	return s.RevertsWithReason(vm.DefaultRevertReason)
}

// RevertsWithReason declares an invocation reverting with reason. Nothing may
// be chained after it.
func (s *Stub) RevertsWithReason(reason string) *Stub {
	if s.skip() {
		return s
	}
	if s.revertSet {
		return s.fail(ErrRevertNotLast)
	}
	if s.receive {
		s.ops = append(s.ops, func(ctx context.Context, _ []byte) error {
			_, err := s.mock.admin(ctx, vm.MethodReceiveReverts, reason)
			return err
		})
	} else {
		s.enqueue(vm.MethodReplaceRevert, vm.MethodAppendRevert, reason)
	}
	s.revertSet = true
	return s
}

// WithArgs restricts the chain to invocations whose arguments encode exactly
// like values. Other invocations keep resolving against the configuration
// made without WithArgs.
func (s *Stub) WithArgs(values ...interface{}) *Stub {
	if s.skip() {
		return s
	}
	if s.receive {
		return s.fail(ErrReceiveReturn)
	}
	if s.argsSet {
		return s.fail(ErrArgsTwice)
	}
	data, err := packCall(s.method, values...)
	if err != nil {
		return s.fail(err)
	}
	s.key = data
	s.argsSet = true
	return s
}

// Err returns the validation failure of the pending chain, if any.
func (s *Stub) Err() error {
	if s.fatal != nil {
		return s.fatal
	}
	return s.err
}

// Reset discards the pending chain and any validation failure without
// contacting the endpoint. A lookup failure of an unknown function stays.
func (s *Stub) Reset() {
	s.reset()
}

// Commit applies the pending chain in declaration order, stopping at the first
// failure. The stub is reset for a new chain whatever the result.
func (s *Stub) Commit(ctx context.Context) error {
	defer s.reset()

	if err := s.Err(); err != nil {
		return err
	}
	key := common.CopyBytes(s.key)
	for i, op := range s.ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := op(ctx, key); err != nil {
			log.Debug("Stub commit failed", "mock", s.mock.address, "fn", s.Signature(), "op", i, "err", err)
			return err
		}
	}
	log.Debug("Stub committed", "mock", s.mock.address, "fn", s.Signature(), "ops", len(s.ops), "args", s.argsSet)
	return nil
}

// enqueue adds an admin call that replaces the key's queue when it is the
// first of the chain and appends to it otherwise.
func (s *Stub) enqueue(replaceMethod, appendMethod string, payload interface{}) {
	name := appendMethod
	if len(s.ops) == 0 {
		name = replaceMethod
	}
	s.ops = append(s.ops, func(ctx context.Context, key []byte) error {
		_, err := s.mock.admin(ctx, name, key, payload)
		return err
	})
}

func (s *Stub) skip() bool {
	return s.Err() != nil
}

func (s *Stub) fail(err error) *Stub {
	s.reset()
	s.err = err
	return s
}

func (s *Stub) reset() {
	s.ops = nil
	s.revertSet = false
	s.argsSet = false
	s.err = nil
	if s.method != nil {
		s.key = common.CopyBytes(s.method.ID)
	}
}
