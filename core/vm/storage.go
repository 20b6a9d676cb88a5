package vm

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Storage is the slot-level view of one account's storage the registry
// persists its queues in. Env satisfies it.
type Storage interface {
	GetState(slot common.Hash) common.Hash
	SetState(slot, value common.Hash) error
}

// -----------------------------------------------------------------------------
// Queue layout
//
//	key.Hash()                  element count
//	keccak(key.Hash() ++ u256(i)) header of element i: kind in byte 0,
//	                              payload length in the low 8 bytes
//	header+1 ...                payload, 32 bytes per slot, right padded
// -----------------------------------------------------------------------------

// maxPayload bounds a single stored payload so a corrupt header cannot make
// loadQueue walk an absurd number of slots.
const maxPayload = 1 << 24

func loadQueue(st Storage, key CallKey) (*Queue, error) {
	base := key.Hash()
	n := hashToUint64(st.GetState(base))

	q := new(Queue)
	for i := uint64(0); i < n; i++ {
		header := elementSlot(base, i)
		o, err := loadOutcome(st, header)
		if err != nil {
			return nil, fmt.Errorf("queue %v element %d: %w", key, i, err)
		}
		q.outcomes = append(q.outcomes, o)
	}
	return q, nil
}

func storeQueue(st Storage, key CallKey, q *Queue) error {
	base := key.Hash()
	if err := st.SetState(base, uint64ToHash(uint64(q.Len()))); err != nil {
		return err
	}
	for i, o := range q.outcomes {
		if err := storeOutcome(st, elementSlot(base, uint64(i)), o); err != nil {
			return err
		}
	}
	return nil
}

func loadOutcome(st Storage, header common.Hash) (Outcome, error) {
	raw := st.GetState(header)
	kind := OutcomeKind(raw[0])
	if kind != OutcomeReturn && kind != OutcomeRevert {
		return Outcome{}, fmt.Errorf("invalid outcome kind %d", kind)
	}
	size := binary.BigEndian.Uint64(raw[common.HashLength-8:])
	if size > maxPayload {
		return Outcome{}, fmt.Errorf("payload length %d exceeds limit", size)
	}
	payload := make([]byte, size)
	for off := uint64(0); off < size; off += common.HashLength {
		chunk := st.GetState(slotOffset(header, 1+off/common.HashLength))
		copy(payload[off:], chunk[:])
	}
	return Outcome{kind: kind, payload: payload}, nil
}

func storeOutcome(st Storage, header common.Hash, o Outcome) error {
	var raw common.Hash
	raw[0] = byte(o.kind)
	binary.BigEndian.PutUint64(raw[common.HashLength-8:], uint64(len(o.payload)))
	if err := st.SetState(header, raw); err != nil {
		return err
	}
	for off := 0; off < len(o.payload); off += common.HashLength {
		var chunk common.Hash
		copy(chunk[:], o.payload[off:])
		if err := st.SetState(slotOffset(header, uint64(1+off/common.HashLength)), chunk); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Slot helpers
// -----------------------------------------------------------------------------

func elementSlot(base common.Hash, i uint64) common.Hash {
	idx := uint256.NewInt(i).Bytes32()
	return crypto.Keccak256Hash(base[:], idx[:])
}

// slotOffset returns slot+n, wrapping at 2^256 like the EVM does.
func slotOffset(slot common.Hash, n uint64) common.Hash {
	v := new(uint256.Int).SetBytes32(slot[:])
	v.AddUint64(v, n)
	return v.Bytes32()
}

func hashToUint64(h common.Hash) uint64 {
	return new(uint256.Int).SetBytes32(h[:]).Uint64()
}

func uint64ToHash(n uint64) common.Hash {
	return uint256.NewInt(n).Bytes32()
}
