package tracing

import "github.com/ethereum/go-ethereum/common"

// DispatchReason describes how a mock endpoint resolved an incoming invocation.
type DispatchReason int

const (
	DispatchUnspecified    DispatchReason = iota
	DispatchReturned                      // configured return payload
	DispatchReverted                      // configured revert
	DispatchNotInitialized                // no queue for the selector or calldata
	DispatchReceived                      // bare value transfer accepted
	DispatchRelayed                       // forwarded to a third party
)

// ConfigureReason is a description of the registry mutation applied to a queue.
type ConfigureReason int

const (
	ConfigureUnspecified ConfigureReason = iota
	ConfigureReplace
	ConfigureAppend
)

// Hooks is a set of optional callbacks a host invokes while mock endpoints run.
// Nil fields are skipped.
type Hooks struct {
	// OnDispatch fires after an invocation of a mock endpoint is resolved.
	OnDispatch func(endpoint common.Address, input []byte, reason DispatchReason)
	// OnConfigure fires after a queue is mutated. key is the storage root of
	// the queue, length the queue length after the mutation.
	OnConfigure func(endpoint common.Address, key common.Hash, reason ConfigureReason, length int)
}

// String returns a human-readable string for the reason.
func (r DispatchReason) String() string {
	switch r {
	case DispatchUnspecified:
		return "unspecified"
	case DispatchReturned:
		return "returned"
	case DispatchReverted:
		return "reverted"
	case DispatchNotInitialized:
		return "not_initialized"
	case DispatchReceived:
		return "received"
	case DispatchRelayed:
		return "relayed"
	}
	return "unknown"
}

// String returns a human-readable string for the reason.
func (r ConfigureReason) String() string {
	switch r {
	case ConfigureUnspecified:
		return "unspecified"
	case ConfigureReplace:
		return "replace"
	case ConfigureAppend:
		return "append"
	}
	return "unknown"
}
