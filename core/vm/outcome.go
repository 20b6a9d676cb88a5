package vm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// OutcomeKind tags the two effects an invocation of a mock can have.
type OutcomeKind uint8

const (
	OutcomeReturn OutcomeKind = iota + 1
	OutcomeRevert
)

// Outcome is the configured effect of one invocation.
type Outcome struct {
	kind    OutcomeKind
	payload []byte // return data, or the revert reason as bytes
}

// Return yields an outcome that succeeds with data as the raw result.
func Return(data []byte) Outcome {
	return Outcome{kind: OutcomeReturn, payload: common.CopyBytes(data)}
}

// Revert yields an outcome that fails with reason.
func Revert(reason string) Outcome {
	return Outcome{kind: OutcomeRevert, payload: []byte(reason)}
}

// Kind returns the outcome tag.
func (o Outcome) Kind() OutcomeKind { return o.kind }

// ReturnData returns the payload of a Return outcome.
func (o Outcome) ReturnData() []byte {
	if o.kind != OutcomeReturn {
		return nil
	}
	return common.CopyBytes(o.payload)
}

// Reason returns the reason of a Revert outcome.
func (o Outcome) Reason() string {
	if o.kind != OutcomeRevert {
		return ""
	}
	return string(o.payload)
}

func (o Outcome) String() string {
	switch o.kind {
	case OutcomeReturn:
		return "return(" + hexutil.Encode(o.payload) + ")"
	case OutcomeRevert:
		return fmt.Sprintf("revert(%q)", o.payload)
	}
	return "invalid"
}

// Queue is the ordered sequence of outcomes configured for one call key.
//
// Resolve pops the front while more than one outcome is queued and peeks
// once a single one is left, so the last configured outcome repeats until
// the queue is replaced.
type Queue struct {
	outcomes []Outcome
}

// Len returns the number of queued outcomes.
func (q *Queue) Len() int { return len(q.outcomes) }

// Outcomes returns a copy of the queued outcomes, front first.
func (q *Queue) Outcomes() []Outcome {
	return append([]Outcome(nil), q.outcomes...)
}

// Replace discards every queued outcome and leaves o as the only one.
func (q *Queue) Replace(o Outcome) {
	q.outcomes = []Outcome{o}
}

// Append pushes o to the back of the queue.
func (q *Queue) Append(o Outcome) {
	q.outcomes = append(q.outcomes, o)
}

// Resolve returns the outcome for the next invocation. popped reports whether
// the queue changed and needs to be persisted.
func (q *Queue) Resolve() (o Outcome, popped bool, err error) {
	switch n := len(q.outcomes); {
	case n > 1:
		o, q.outcomes = q.outcomes[0], q.outcomes[1:]
		return o, true, nil
	case n == 1:
		return q.outcomes[0], false, nil
	default:
		return Outcome{}, false, ErrNotInitialized
	}
}
