package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	gethtracing "github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/types"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/clydemeng/doppelganger/core/vm"
	"github.com/clydemeng/doppelganger/tracing"
)

var (
	// ErrAddressOccupied is returned when code is installed over an account
	// that already holds code and override was not requested.
	ErrAddressOccupied = errors.New("address already contains code")

	// ErrNoNative is returned when an invocation reaches code no native
	// implementation is registered for.
	ErrNoNative = errors.New("no native implementation for code")
)

// Host is an in-process runtime standing in for a chain node. World state
// lives in a go-ethereum StateDB; accounts with code are executed by the
// native implementation registered for that code.
//
// All operations are serialized, so calls and state changes are applied in
// the order they were issued.
type Host struct {
	mu     sync.Mutex
	state  *state.StateDB
	config Config
	hooks  *tracing.Hooks
}

// NewHost creates a host with an empty in-memory state funded per cfg. A nil
// cfg selects DefaultConfig; hooks may be nil.
func NewHost(cfg *Config, hooks *tracing.Hooks) (*Host, error) {
	if cfg == nil {
		cfg = &DefaultConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sdb, err := state.New(types.EmptyRootHash, state.NewDatabaseForTesting())
	if err != nil {
		return nil, fmt.Errorf("host state: %w", err)
	}
	h := &Host{state: sdb, config: *cfg, hooks: hooks}
	for _, acc := range cfg.Alloc {
		if acc.Balance == nil {
			continue
		}
		bal, _ := uint256.FromBig(acc.Balance)
		sdb.AddBalance(acc.Address, bal, gethtracing.BalanceIncreaseGenesisBalance)
	}
	sdb.Finalise(true)
	return h, nil
}

// Engine returns a short name identifying the execution backend.
func (h *Host) Engine() string { return "native" }

// CallContract executes msg and discards every state change afterwards, the
// way eth_call does. Reverts are returned as *vm.RevertError.
func (h *Host) CallContract(ctx context.Context, msg vm.CallMsg) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot := h.state.Snapshot()
	defer h.state.RevertToSnapshot(snapshot)

	ret, err := h.run(msg.From, msg.To, msg.Data, msg.Value, false, 0)
	log.Trace("Host call", "from", msg.From, "to", msg.To, "len", len(msg.Data), "err", err)
	return ret, wrapRevert(ret, err)
}

// CallContractCommit executes msg as a transaction from msg.From: the sender
// nonce is bumped and state changes are kept unless the call fails.
func (h *Host) CallContractCommit(ctx context.Context, msg vm.CallMsg) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.state.SetNonce(msg.From, h.state.GetNonce(msg.From)+1, gethtracing.NonceChangeEoACall)
	ret, err := h.run(msg.From, msg.To, msg.Data, msg.Value, false, 0)
	h.state.Finalise(true)

	log.Trace("Host transaction", "from", msg.From, "to", msg.To, "len", len(msg.Data), "transfer", msg.TransfersValue(), "err", err)
	return ret, wrapRevert(ret, err)
}

// InstallCode places code at addr. It fails with ErrAddressOccupied if addr
// already holds code, unless override is set. Storage of the account is left
// untouched.
func (h *Host) InstallCode(ctx context.Context, addr common.Address, code []byte, override bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if !override && h.state.GetCodeSize(addr) > 0 {
		return fmt.Errorf("%w: %s", ErrAddressOccupied, addr.Hex())
	}
	if !h.state.Exist(addr) {
		h.state.CreateAccount(addr)
	}
	h.state.SetCode(addr, common.CopyBytes(code))
	h.state.Finalise(true)

	log.Debug("Installed code", "addr", addr, "size", len(code), "override", override)
	return nil
}

// DeployCode places code at the address a contract created by from with its
// current nonce would get, and bumps the nonce.
func (h *Host) DeployCode(ctx context.Context, from common.Address, code []byte) (common.Address, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	nonce := h.state.GetNonce(from)
	addr := crypto.CreateAddress(from, nonce)
	if h.state.GetCodeSize(addr) > 0 {
		return common.Address{}, fmt.Errorf("%w: %s", ErrAddressOccupied, addr.Hex())
	}
	h.state.SetNonce(from, nonce+1, gethtracing.NonceChangeContractCreator)
	h.state.CreateAccount(addr)
	h.state.SetCode(addr, common.CopyBytes(code))
	h.state.Finalise(true)

	log.Debug("Deployed code", "from", from, "nonce", nonce, "addr", addr, "size", len(code))
	return addr, nil
}

// CodeAt returns the code installed at addr.
func (h *Host) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	return common.CopyBytes(h.state.GetCode(addr)), nil
}

// BalanceAt returns the balance of addr.
func (h *Host) BalanceAt(addr common.Address) *uint256.Int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return new(uint256.Int).Set(h.state.GetBalance(addr))
}

// NonceAt returns the nonce of addr.
func (h *Host) NonceAt(addr common.Address) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state.GetNonce(addr)
}

// StorageAt returns a raw storage slot of addr.
func (h *Host) StorageAt(addr common.Address, slot common.Hash) common.Hash {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state.GetState(addr, slot)
}

// Fund credits amount to addr out of thin air.
func (h *Host) Fund(addr common.Address, amount *uint256.Int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.state.AddBalance(addr, amount, gethtracing.BalanceChangeUnspecified)
	h.state.Finalise(true)
}

// run executes one frame. Every state change made by the frame, including
// the value transfer, is rolled back if it fails.
func (h *Host) run(caller, to common.Address, input []byte, value *uint256.Int, readOnly bool, depth int) ([]byte, error) {
	if depth > h.config.MaxCallDepth {
		return nil, gethvm.ErrDepth
	}
	if value == nil {
		value = new(uint256.Int)
	}
	snapshot := h.state.Snapshot()

	if !value.IsZero() {
		if readOnly {
			return nil, gethvm.ErrWriteProtection
		}
		if h.state.GetBalance(caller).Lt(value) {
			return nil, fmt.Errorf("%w: address %s", gethvm.ErrInsufficientBalance, caller.Hex())
		}
		h.state.SubBalance(caller, value, gethtracing.BalanceChangeTransfer)
		h.state.AddBalance(to, value, gethtracing.BalanceChangeTransfer)
	}

	code := h.state.GetCode(to)
	if len(code) == 0 {
		// Plain account: the transfer is all there is.
		return nil, nil
	}
	impl, ok := vm.LookupNative(code)
	if !ok {
		h.state.RevertToSnapshot(snapshot)
		return nil, fmt.Errorf("%w at %s", ErrNoNative, to.Hex())
	}
	f := &frame{
		host:     h,
		caller:   caller,
		address:  to,
		value:    value,
		readOnly: readOnly,
		depth:    depth,
	}
	ret, err := impl.Run(f, input)
	if err != nil {
		h.state.RevertToSnapshot(snapshot)
	}
	return ret, err
}

func wrapRevert(ret []byte, err error) error {
	if err == nil {
		return nil
	}
	var rerr *vm.RevertError
	if errors.As(err, &rerr) {
		return err
	}
	if errors.Is(err, gethvm.ErrExecutionReverted) {
		return vm.NewRevertError(ret)
	}
	return err
}

// frame implements vm.Env for a single invocation.
type frame struct {
	host     *Host
	caller   common.Address
	address  common.Address
	value    *uint256.Int
	readOnly bool
	depth    int
}

func (f *frame) Caller() common.Address  { return f.caller }
func (f *frame) Address() common.Address { return f.address }
func (f *frame) Value() *uint256.Int     { return new(uint256.Int).Set(f.value) }
func (f *frame) ReadOnly() bool          { return f.readOnly }
func (f *frame) Hooks() *tracing.Hooks   { return f.host.hooks }

func (f *frame) GetState(slot common.Hash) common.Hash {
	return f.host.state.GetState(f.address, slot)
}

func (f *frame) SetState(slot, value common.Hash) error {
	if f.readOnly {
		return gethvm.ErrWriteProtection
	}
	f.host.state.SetState(f.address, slot, value)
	return nil
}

func (f *frame) Call(to common.Address, input []byte, value *uint256.Int) ([]byte, error) {
	return f.host.run(f.address, to, input, value, f.readOnly, f.depth+1)
}

func (f *frame) StaticCall(to common.Address, input []byte) ([]byte, error) {
	return f.host.run(f.address, to, input, nil, true, f.depth+1)
}
