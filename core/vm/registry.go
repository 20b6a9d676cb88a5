package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/clydemeng/doppelganger/tracing"
)

// Registry maps call keys to outcome queues kept in one account's storage.
// A key is either absent or holds at least one outcome.
type Registry struct {
	st      Storage
	address common.Address
	hooks   *tracing.Hooks
}

// NewRegistry returns a registry over st. address and hooks are only used
// for logging and tracing; hooks may be nil.
func NewRegistry(st Storage, address common.Address, hooks *tracing.Hooks) *Registry {
	return &Registry{st: st, address: address, hooks: hooks}
}

// ConfigureReplace installs o as the only outcome for key, discarding any
// prior configuration.
func (r *Registry) ConfigureReplace(key CallKey, o Outcome) error {
	if err := checkConfigurable(key, o); err != nil {
		return err
	}
	q := new(Queue)
	q.Replace(o)
	return r.store(key, q, tracing.ConfigureReplace)
}

// ConfigureAppend pushes o to the back of the queue for key. An absent key
// ends up with a single outcome.
func (r *Registry) ConfigureAppend(key CallKey, o Outcome) error {
	if err := checkConfigurable(key, o); err != nil {
		return err
	}
	q, err := loadQueue(r.st, key)
	if err != nil {
		return err
	}
	q.Append(o)
	return r.store(key, q, tracing.ConfigureAppend)
}

// Queue returns the outcomes currently configured for key.
func (r *Registry) Queue(key CallKey) (*Queue, error) {
	return loadQueue(r.st, key)
}

// Resolve picks the outcome for an invocation carrying data. A queue for the
// exact calldata wins over the default queue of its selector; a specific
// configuration never falls through to a default configured for a different
// argument value. Empty calldata must go through ResolveReceive instead.
func (r *Registry) Resolve(data []byte) (Outcome, CallKey, error) {
	if len(data) < SelectorLength {
		return Outcome{}, CallKey{}, ErrNotInitialized
	}
	specific, err := SpecificKey(data)
	if err != nil {
		return Outcome{}, CallKey{}, err
	}
	for _, key := range []CallKey{specific, DefaultKey(specific.Selector())} {
		o, ok, err := r.resolve(key)
		if err != nil {
			return Outcome{}, key, err
		}
		if ok {
			return o, key, nil
		}
	}
	return Outcome{}, CallKey{}, ErrNotInitialized
}

// ResolveReceive returns the outcome configured for bare transfers. ok is
// false if none was configured, in which case transfers are accepted.
func (r *Registry) ResolveReceive() (o Outcome, ok bool, err error) {
	return r.resolve(ReceiveKey())
}

func (r *Registry) resolve(key CallKey) (Outcome, bool, error) {
	q, err := loadQueue(r.st, key)
	if err != nil {
		return Outcome{}, false, err
	}
	if q.Len() == 0 {
		return Outcome{}, false, nil
	}
	o, popped, err := q.Resolve()
	if err != nil {
		return Outcome{}, false, err
	}
	if popped {
		if err := storeQueue(r.st, key, q); err != nil {
			return Outcome{}, false, err
		}
	}
	log.Trace("Mock outcome resolved", "mock", r.address, "key", key, "outcome", o, "remaining", q.Len())
	return o, true, nil
}

func (r *Registry) store(key CallKey, q *Queue, reason tracing.ConfigureReason) error {
	if err := storeQueue(r.st, key, q); err != nil {
		return err
	}
	log.Debug("Mock configured", "mock", r.address, "key", key, "op", reason, "length", q.Len())
	if r.hooks != nil && r.hooks.OnConfigure != nil {
		r.hooks.OnConfigure(r.address, key.Hash(), reason, q.Len())
	}
	return nil
}

func checkConfigurable(key CallKey, o Outcome) error {
	if key.Kind() == KeyReceive && o.Kind() == OutcomeReturn {
		return ErrReceiveReturn
	}
	return nil
}
