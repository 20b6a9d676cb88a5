package vm

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/clydemeng/doppelganger/tracing"
)

// Admin entry points of the Doppelganger.
const (
	MethodReplaceReturn  = "__mock__replaceReturn"
	MethodAppendReturn   = "__mock__appendReturn"
	MethodReplaceRevert  = "__mock__replaceRevert"
	MethodAppendRevert   = "__mock__appendRevert"
	MethodReceiveReverts = "__mock__receiveReverts"
	MethodCall           = "__mock__call"
	MethodStaticCall     = "__mock__staticcall"
)

const doppelgangerABIJSON = `[
	{"type":"function","name":"__mock__replaceReturn","stateMutability":"nonpayable",
	 "inputs":[{"name":"key","type":"bytes"},{"name":"value","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"__mock__appendReturn","stateMutability":"nonpayable",
	 "inputs":[{"name":"key","type":"bytes"},{"name":"value","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"__mock__replaceRevert","stateMutability":"nonpayable",
	 "inputs":[{"name":"key","type":"bytes"},{"name":"reason","type":"string"}],"outputs":[]},
	{"type":"function","name":"__mock__appendRevert","stateMutability":"nonpayable",
	 "inputs":[{"name":"key","type":"bytes"},{"name":"reason","type":"string"}],"outputs":[]},
	{"type":"function","name":"__mock__receiveReverts","stateMutability":"nonpayable",
	 "inputs":[{"name":"reason","type":"string"}],"outputs":[]},
	{"type":"function","name":"__mock__call","stateMutability":"nonpayable",
	 "inputs":[{"name":"target","type":"address"},{"name":"data","type":"bytes"}],
	 "outputs":[{"name":"","type":"bytes"}]},
	{"type":"function","name":"__mock__staticcall","stateMutability":"view",
	 "inputs":[{"name":"target","type":"address"},{"name":"data","type":"bytes"}],
	 "outputs":[{"name":"","type":"bytes"}]}
]`

// DoppelgangerABI is the admin interface every mock endpoint exposes on top
// of the interface it impersonates.
var DoppelgangerABI abi.ABI

// DoppelgangerCode is the payload installed at a mock endpoint's address. It
// is an INVALID opcode followed by a tag, so it never runs as EVM bytecode.
var DoppelgangerCode = append([]byte{0xfe}, []byte("doppelganger/v1")...)

func init() {
	parsed, err := abi.JSON(strings.NewReader(doppelgangerABIJSON))
	if err != nil {
		panic(fmt.Sprintf("doppelganger: invalid admin ABI: %v", err))
	}
	DoppelgangerABI = parsed
	RegisterNative(DoppelgangerCode, new(Doppelganger))
}

// Doppelganger is the native payload of a mock endpoint. Admin entry points
// configure its registry or relay calls; every other invocation is resolved
// against the registry.
type Doppelganger struct{}

// Run implements NativeContract.
func (d *Doppelganger) Run(env Env, input []byte) ([]byte, error) {
	reg := NewRegistry(env, env.Address(), env.Hooks())

	if len(input) == 0 {
		return d.receive(env, reg)
	}
	if len(input) >= SelectorLength {
		if method, err := DoppelgangerABI.MethodById(input[:SelectorLength]); err == nil {
			return d.admin(env, reg, method, input[SelectorLength:])
		}
	}
	o, key, err := reg.Resolve(input)
	switch {
	case errors.Is(err, ErrNotInitialized):
		d.trace(env, input, tracing.DispatchNotInitialized)
		return revert(NotInitializedReason)
	case err != nil:
		return nil, err
	}
	log.Trace("Mock dispatched", "mock", env.Address(), "caller", env.Caller(), "key", key, "outcome", o)
	if o.Kind() == OutcomeRevert {
		d.trace(env, input, tracing.DispatchReverted)
		return revert(o.Reason())
	}
	d.trace(env, input, tracing.DispatchReturned)
	return o.ReturnData(), nil
}

func (d *Doppelganger) receive(env Env, reg *Registry) ([]byte, error) {
	o, ok, err := reg.ResolveReceive()
	if err != nil {
		return nil, err
	}
	if ok && o.Kind() == OutcomeRevert {
		d.trace(env, nil, tracing.DispatchReverted)
		return revert(o.Reason())
	}
	d.trace(env, nil, tracing.DispatchReceived)
	return nil, nil
}

func (d *Doppelganger) admin(env Env, reg *Registry, method *abi.Method, payload []byte) ([]byte, error) {
	args, err := method.Inputs.Unpack(payload)
	if err != nil {
		return revert(fmt.Sprintf("%s: %v", method.Name, err))
	}
	switch method.Name {
	case MethodReplaceReturn, MethodAppendReturn, MethodReplaceRevert, MethodAppendRevert:
		key, err := KeyForCalldata(args[0].([]byte))
		if err != nil {
			return revert(err.Error())
		}
		var o Outcome
		if method.Name == MethodReplaceReturn || method.Name == MethodAppendReturn {
			o = Return(args[1].([]byte))
		} else {
			o = Revert(args[1].(string))
		}
		if method.Name == MethodReplaceReturn || method.Name == MethodReplaceRevert {
			err = reg.ConfigureReplace(key, o)
		} else {
			err = reg.ConfigureAppend(key, o)
		}
		return nil, err

	case MethodReceiveReverts:
		return nil, reg.ConfigureReplace(ReceiveKey(), Revert(args[0].(string)))

	case MethodCall, MethodStaticCall:
		target, data := args[0].(common.Address), args[1].([]byte)
		var (
			ret []byte
			err error
		)
		if method.Name == MethodCall {
			ret, err = env.Call(target, data, nil)
		} else {
			ret, err = env.StaticCall(target, data)
		}
		if err != nil {
			// Bubble the target's revert payload unchanged.
			return ret, err
		}
		d.trace(env, data, tracing.DispatchRelayed)
		return method.Outputs.Pack(ret)
	}
	return nil, fmt.Errorf("unhandled admin method %s", method.Name)
}

func (d *Doppelganger) trace(env Env, input []byte, reason tracing.DispatchReason) {
	if h := env.Hooks(); h != nil && h.OnDispatch != nil {
		h.OnDispatch(env.Address(), bytes.Clone(input), reason)
	}
}
