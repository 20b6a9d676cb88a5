package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// CallMsg carries the minimal fields a host needs to route an invocation to
// an endpoint. It is the boundary type between the mock facade and whatever
// backend executes the call.
//
// A nil Value means no value transfer.
type CallMsg struct {
	From  common.Address // Sender of the invocation
	To    common.Address // Endpoint being invoked
	Data  []byte         // Calldata: selector ++ encoded arguments, or empty
	Value *uint256.Int   // Wei transferred along with the call
}

// TransfersValue reports whether the message moves a non-zero amount.
func (m CallMsg) TransfersValue() bool {
	return m.Value != nil && !m.Value.IsZero()
}
