package vm

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/clydemeng/doppelganger/tracing"
)

// Env is the view a native implementation has of the frame it executes in.
// Hosts implement it; natives never see the host directly.
type Env interface {
	// Caller is the immediate sender of the invocation.
	Caller() common.Address
	// Address is the account whose code is running.
	Address() common.Address
	// Value is the wei transferred with the invocation, never nil.
	Value() *uint256.Int
	// ReadOnly reports whether state writes are forbidden in this frame.
	ReadOnly() bool

	// GetState reads a storage slot of the running account.
	GetState(slot common.Hash) common.Hash
	// SetState writes a storage slot of the running account. It fails in a
	// read-only frame.
	SetState(slot, value common.Hash) error

	// Call invokes another endpoint with the running account as caller.
	Call(to common.Address, input []byte, value *uint256.Int) ([]byte, error)
	// StaticCall invokes another endpoint in a read-only frame.
	StaticCall(to common.Address, input []byte) ([]byte, error)

	// Hooks returns the host's tracing hooks, possibly nil.
	Hooks() *tracing.Hooks
}

// NativeContract is executable payload implemented in Go. A host runs it for
// every account whose code hash was registered with RegisterNative.
//
// A revert is signalled by returning the revert payload together with
// go-ethereum's vm.ErrExecutionReverted.
type NativeContract interface {
	Run(env Env, input []byte) ([]byte, error)
}

// natives keeps the global registry of native implementations keyed by the
// hash of the code that stands for them.
var natives sync.Map // map[common.Hash]NativeContract

// RegisterNative binds impl to code and returns the code hash. Registering
// the same code again replaces the implementation.
func RegisterNative(code []byte, impl NativeContract) common.Hash {
	h := crypto.Keccak256Hash(code)
	natives.Store(h, impl)
	return h
}

// UnregisterNative removes the implementation bound to codeHash.
func UnregisterNative(codeHash common.Hash) {
	natives.Delete(codeHash)
}

// LookupNative returns the implementation bound to code, if any.
func LookupNative(code []byte) (NativeContract, bool) {
	if len(code) == 0 {
		return nil, false
	}
	if v, ok := natives.Load(crypto.Keccak256Hash(code)); ok {
		return v.(NativeContract), true
	}
	return nil, false
}
