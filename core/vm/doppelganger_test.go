package vm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"

	"github.com/clydemeng/doppelganger/tracing"
)

type relayed struct {
	to     common.Address
	input  []byte
	static bool
}

// fakeEnv runs a Doppelganger on memStorage and records relayed calls.
type fakeEnv struct {
	*memStorage
	hooks   *tracing.Hooks
	calls   []relayed
	respond func(to common.Address, input []byte) ([]byte, error)
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{memStorage: newMemStorage()}
}

func (e *fakeEnv) Caller() common.Address  { return common.HexToAddress("0x01") }
func (e *fakeEnv) Address() common.Address { return testMock }
func (e *fakeEnv) Value() *uint256.Int     { return new(uint256.Int) }
func (e *fakeEnv) ReadOnly() bool          { return e.readOnly }
func (e *fakeEnv) Hooks() *tracing.Hooks   { return e.hooks }

func (e *fakeEnv) Call(to common.Address, input []byte, _ *uint256.Int) ([]byte, error) {
	e.calls = append(e.calls, relayed{to: to, input: input})
	return e.respond(to, input)
}

func (e *fakeEnv) StaticCall(to common.Address, input []byte) ([]byte, error) {
	e.calls = append(e.calls, relayed{to: to, input: input, static: true})
	return e.respond(to, input)
}

func runAdmin(t *testing.T, env *fakeEnv, method string, args ...interface{}) []byte {
	t.Helper()
	input, err := DoppelgangerABI.Pack(method, args...)
	if err != nil {
		t.Fatalf("pack %s: %v", method, err)
	}
	ret, err := new(Doppelganger).Run(env, input)
	if err != nil {
		t.Fatalf("%s: %v", method, err)
	}
	return ret
}

func expectRevert(t *testing.T, ret []byte, err error, reason string) {
	t.Helper()
	if !errors.Is(err, gethvm.ErrExecutionReverted) {
		t.Fatalf("expected revert, have %v", err)
	}
	got, uerr := abi.UnpackRevert(ret)
	if uerr != nil {
		t.Fatalf("revert payload %x: %v", ret, uerr)
	}
	if got != reason {
		t.Fatalf("have reason %q, want %q", got, reason)
	}
}

func TestDoppelgangerNotInitialized(t *testing.T) {
	env := newFakeEnv()
	ret, err := new(Doppelganger).Run(env, calldata(1))
	expectRevert(t, ret, err, NotInitializedReason)

	// Short calldata never matches a selector.
	ret, err = new(Doppelganger).Run(env, []byte{0xd0, 0x9d})
	expectRevert(t, ret, err, NotInitializedReason)
}

func TestDoppelgangerReturnQueue(t *testing.T) {
	env := newFakeEnv()
	runAdmin(t, env, MethodReplaceReturn, testSelector[:], []byte{1})
	runAdmin(t, env, MethodAppendReturn, testSelector[:], []byte{2})
	runAdmin(t, env, MethodAppendRevert, testSelector[:], "done")

	d := new(Doppelganger)
	for i, want := range [][]byte{{1}, {2}} {
		ret, err := d.Run(env, calldata(9))
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if !bytes.Equal(ret, want) {
			t.Fatalf("call %d: have %x, want %x", i, ret, want)
		}
	}
	for i := 0; i < 2; i++ {
		ret, err := d.Run(env, calldata(9))
		expectRevert(t, ret, err, "done")
	}
}

func TestDoppelgangerSpecificKey(t *testing.T) {
	env := newFakeEnv()
	runAdmin(t, env, MethodReplaceRevert, calldata(5), "five")

	ret, err := new(Doppelganger).Run(env, calldata(5))
	expectRevert(t, ret, err, "five")
	ret, err = new(Doppelganger).Run(env, calldata(6))
	expectRevert(t, ret, err, NotInitializedReason)
}

func TestDoppelgangerShortKeyRejected(t *testing.T) {
	env := newFakeEnv()
	input, _ := DoppelgangerABI.Pack(MethodReplaceReturn, []byte{1, 2}, []byte{1})
	_, err := new(Doppelganger).Run(env, input)
	if !errors.Is(err, gethvm.ErrExecutionReverted) {
		t.Fatalf("expected revert, have %v", err)
	}
	if env.writes != 0 {
		t.Fatalf("rejected configuration wrote storage")
	}
}

func TestDoppelgangerReceive(t *testing.T) {
	env := newFakeEnv()
	d := new(Doppelganger)
	if ret, err := d.Run(env, nil); err != nil || len(ret) != 0 {
		t.Fatalf("unconfigured receive must accept, ret=%x err=%v", ret, err)
	}
	runAdmin(t, env, MethodReceiveReverts, "no ether")
	ret, err := d.Run(env, nil)
	expectRevert(t, ret, err, "no ether")
}

func TestDoppelgangerRelay(t *testing.T) {
	target := common.HexToAddress("0xbeef")
	env := newFakeEnv()
	env.respond = func(to common.Address, input []byte) ([]byte, error) {
		if input[0] == 0xff {
			return EncodeRevert("target failed"), gethvm.ErrExecutionReverted
		}
		return []byte{0x2a}, nil
	}

	out, err := DoppelgangerABI.Unpack(MethodStaticCall, runAdmin(t, env, MethodStaticCall, target, []byte{1, 2, 3, 4}))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out[0].([]byte), []byte{0x2a}) {
		t.Fatalf("unexpected relayed result %x", out[0])
	}
	runAdmin(t, env, MethodCall, target, []byte{1, 2, 3, 4})

	if len(env.calls) != 2 || !env.calls[0].static || env.calls[1].static || env.calls[1].to != target {
		t.Fatalf("unexpected relayed calls %+v", env.calls)
	}

	input, _ := DoppelgangerABI.Pack(MethodCall, target, []byte{0xff})
	ret, err := new(Doppelganger).Run(env, input)
	expectRevert(t, ret, err, "target failed")
}

func TestDoppelgangerDispatchHook(t *testing.T) {
	var reasons []tracing.DispatchReason
	env := newFakeEnv()
	env.hooks = &tracing.Hooks{
		OnDispatch: func(_ common.Address, _ []byte, reason tracing.DispatchReason) {
			reasons = append(reasons, reason)
		},
	}
	d := new(Doppelganger)
	d.Run(env, calldata(0))
	runAdmin(t, env, MethodReplaceReturn, testSelector[:], []byte{1})
	d.Run(env, calldata(0))
	d.Run(env, nil)

	want := []tracing.DispatchReason{tracing.DispatchNotInitialized, tracing.DispatchReturned, tracing.DispatchReceived}
	if len(reasons) != len(want) {
		t.Fatalf("have %v, want %v", reasons, want)
	}
	for i := range want {
		if reasons[i] != want[i] {
			t.Fatalf("have %v, want %v", reasons, want)
		}
	}
}

func TestRevertError(t *testing.T) {
	err := NewRevertError(EncodeRevert("boom"))
	if err.Reason != "boom" {
		t.Fatalf("unexpected reason %q", err.Reason)
	}
	if !errors.Is(err, gethvm.ErrExecutionReverted) {
		t.Fatalf("revert error must wrap ErrExecutionReverted")
	}
	if err.Error() != "execution reverted: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if NewRevertError(nil).Error() != "execution reverted" {
		t.Fatalf("unexpected message for empty revert")
	}
	if !bytes.Equal(err.Data(), EncodeRevert("boom")) {
		t.Fatalf("unexpected payload %x", err.Data())
	}
	err.Data()[0] ^= 0xff
	if !bytes.Equal(err.Data(), EncodeRevert("boom")) {
		t.Fatalf("payload must be copied")
	}
	if err.ErrorCode() != 3 {
		t.Fatalf("unexpected code %d", err.ErrorCode())
	}
	if have, want := err.ErrorData(), hexutil.Encode(EncodeRevert("boom")); have != want {
		t.Fatalf("have %v, want %v", have, want)
	}
}
