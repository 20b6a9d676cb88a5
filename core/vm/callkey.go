package vm

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SelectorLength is the width of a function selector in calldata.
const SelectorLength = 4

// Selector is the 4-byte function identifier at the head of calldata.
type Selector [SelectorLength]byte

// Hex returns the 0x-prefixed hex form of the selector.
func (s Selector) Hex() string { return hexutil.Encode(s[:]) }

// KeyKind distinguishes the three classes of call keys.
type KeyKind uint8

const (
	KeyDefault  KeyKind = iota + 1 // any calldata with the selector
	KeySpecific                    // exactly one calldata value
	KeyReceive                     // bare value transfers, empty calldata
)

// String implements fmt.Stringer.
func (k KeyKind) String() string {
	switch k {
	case KeyDefault:
		return "default"
	case KeySpecific:
		return "specific"
	case KeyReceive:
		return "receive"
	}
	return "unknown"
}

var errShortKey = errors.New("call key shorter than a selector")

// CallKey identifies a class of invocations a queue of outcomes applies to.
// Keys are immutable; compare them with Equal.
type CallKey struct {
	kind     KeyKind
	selector Selector
	data     []byte // full calldata, Specific only
}

// DefaultKey matches every invocation carrying sel, whatever its arguments.
func DefaultKey(sel Selector) CallKey {
	return CallKey{kind: KeyDefault, selector: sel}
}

// SpecificKey matches only invocations whose calldata equals data. data must
// start with a selector.
func SpecificKey(data []byte) (CallKey, error) {
	if len(data) < SelectorLength {
		return CallKey{}, errShortKey
	}
	var sel Selector
	copy(sel[:], data)
	return CallKey{kind: KeySpecific, selector: sel, data: common.CopyBytes(data)}, nil
}

// ReceiveKey is the reserved key for bare value transfers.
func ReceiveKey() CallKey {
	return CallKey{kind: KeyReceive}
}

// KeyForCalldata maps the key argument of the admin entry points to a call
// key: a bare selector addresses the default queue, anything longer the
// specific queue for that exact calldata.
func KeyForCalldata(data []byte) (CallKey, error) {
	switch {
	case len(data) < SelectorLength:
		return CallKey{}, fmt.Errorf("%w: %d bytes", errShortKey, len(data))
	case len(data) == SelectorLength:
		var sel Selector
		copy(sel[:], data)
		return DefaultKey(sel), nil
	default:
		return SpecificKey(data)
	}
}

// Kind returns the class of the key.
func (k CallKey) Kind() KeyKind { return k.kind }

// Selector returns the selector of a Default or Specific key.
func (k CallKey) Selector() Selector { return k.selector }

// Data returns a copy of the calldata of a Specific key.
func (k CallKey) Data() []byte { return common.CopyBytes(k.data) }

// Equal reports whether both keys address the same queue.
func (k CallKey) Equal(other CallKey) bool {
	return k.kind == other.kind && k.selector == other.selector && bytes.Equal(k.data, other.data)
}

// Hash is the storage root of the queue addressed by the key.
func (k CallKey) Hash() common.Hash {
	switch k.kind {
	case KeyDefault:
		return crypto.Keccak256Hash([]byte{byte(k.kind)}, k.selector[:])
	case KeySpecific:
		return crypto.Keccak256Hash([]byte{byte(k.kind)}, k.data)
	default:
		return crypto.Keccak256Hash([]byte{byte(k.kind)})
	}
}

// String implements fmt.Stringer.
func (k CallKey) String() string {
	switch k.kind {
	case KeyDefault:
		return "default(" + k.selector.Hex() + ")"
	case KeySpecific:
		return "specific(" + hexutil.Encode(k.data) + ")"
	case KeyReceive:
		return "receive"
	}
	return "invalid"
}
