package vm

import (
	"errors"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// NotInitializedReason is the revert reason of an invocation no queue
	// matches.
	NotInitializedReason = "Mock on the method is not initialized"

	// DefaultRevertReason is the reason used when a revert is configured
	// without one.
	DefaultRevertReason = "Mock revert"
)

var (
	// ErrNotInitialized is returned when neither a specific nor a default
	// queue holds an outcome for an invocation.
	ErrNotInitialized = errors.New(NotInitializedReason)

	// ErrReceiveReturn is returned when a Return outcome is configured on the
	// receive key; a bare transfer has no output to carry it.
	ErrReceiveReturn = errors.New("Receive function return is not implemented.")
)

var (
	revertSelector = crypto.Keccak256([]byte("Error(string)"))[:SelectorLength]
	stringType, _  = abi.NewType("string", "", nil)
	revertArgs     = abi.Arguments{{Type: stringType}}
)

// EncodeRevert returns the Error(string) revert payload for reason.
func EncodeRevert(reason string) []byte {
	packed, err := revertArgs.Pack(reason)
	if err != nil {
		// Packing a string cannot fail.
		panic(err)
	}
	return append(common.CopyBytes(revertSelector), packed...)
}

// RevertError is returned to the top-level caller of an invocation that
// reverted. It wraps go-ethereum's ErrExecutionReverted.
type RevertError struct {
	Reason string // decoded reason, empty if the payload is not Error(string)
	data   []byte
}

// NewRevertError decodes the revert payload returned by an endpoint.
func NewRevertError(data []byte) *RevertError {
	reason, err := abi.UnpackRevert(data)
	if err != nil {
		reason = ""
	}
	return &RevertError{Reason: reason, data: common.CopyBytes(data)}
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return gethvm.ErrExecutionReverted.Error()
	}
	return gethvm.ErrExecutionReverted.Error() + ": " + e.Reason
}

// Unwrap lets errors.Is match gethvm.ErrExecutionReverted.
func (e *RevertError) Unwrap() error { return gethvm.ErrExecutionReverted }

// ErrorCode returns the JSON-RPC error code used for reverts.
func (e *RevertError) ErrorCode() int { return 3 }

// ErrorData returns the hex encoded revert payload.
func (e *RevertError) ErrorData() interface{} { return hexutil.Encode(e.data) }

// Data returns a copy of the raw revert payload.
func (e *RevertError) Data() []byte { return common.CopyBytes(e.data) }

// revert is the pair a native returns to make its frame fail with reason.
func revert(reason string) ([]byte, error) {
	return EncodeRevert(reason), gethvm.ErrExecutionReverted
}
