package testcontract

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/clydemeng/doppelganger/core/vm"
)

// ForwarderABIJSON describes a contract that passes received ether on to a
// target in three different ways.
const ForwarderABIJSON = `[
	{"type":"function","name":"init","stateMutability":"nonpayable",
	 "inputs":[{"name":"target","type":"address"}],"outputs":[]},
	{"type":"function","name":"forwardByCall","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"forwardBySend","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"forwardByTransfer","stateMutability":"payable","inputs":[],"outputs":[]}
]`

var (
	// ForwarderABI is the parsed ForwarderABIJSON.
	ForwarderABI = mustParse(ForwarderABIJSON)

	// ForwarderCode is the payload that runs the native forwarder.
	ForwarderCode = []byte("\xfetestcontract/forwarder")
)

var forwarderTargetSlot = common.Hash{}

func init() {
	vm.RegisterNative(ForwarderCode, newNative(ForwarderABI, map[string]handler{
		"init": func(env vm.Env, args []interface{}) ([]interface{}, error) {
			return nil, storeAddress(env, forwarderTargetSlot, args[0].(common.Address))
		},
		// Bubbles the target's revert reason.
		"forwardByCall": func(env vm.Env, _ []interface{}) ([]interface{}, error) {
			data, err := env.Call(loadAddress(env, forwarderTargetSlot), nil, env.Value())
			if err != nil {
				return bubble(data, err)
			}
			return nil, nil
		},
		// Replaces the target's revert reason with its own.
		"forwardBySend": func(env vm.Env, _ []interface{}) ([]interface{}, error) {
			if _, err := env.Call(loadAddress(env, forwarderTargetSlot), nil, env.Value()); err != nil {
				return fail("forwardBySend failed")
			}
			return nil, nil
		},
		// Reverts without a reason.
		"forwardByTransfer": func(env vm.Env, _ []interface{}) ([]interface{}, error) {
			if _, err := env.Call(loadAddress(env, forwarderTargetSlot), nil, env.Value()); err != nil {
				return fail("")
			}
			return nil, nil
		},
	}))
}
