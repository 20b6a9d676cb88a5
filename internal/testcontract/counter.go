package testcontract

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clydemeng/doppelganger/core/vm"
)

// CounterABIJSON describes a counter holding one uint256.
const CounterABIJSON = `[
	{"type":"function","name":"read","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"increment","stateMutability":"nonpayable","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"increaseBy","stateMutability":"nonpayable",
	 "inputs":[{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"add","stateMutability":"view",
	 "inputs":[{"name":"a","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"addThree","stateMutability":"view",
	 "inputs":[{"name":"a","type":"uint256"},{"name":"b","type":"uint256"},{"name":"c","type":"uint256"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"increaseByThreeValues","stateMutability":"nonpayable",
	 "inputs":[{"name":"a","type":"uint256"},{"name":"b","type":"uint256"},{"name":"c","type":"uint256"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"divMod","stateMutability":"view",
	 "inputs":[{"name":"a","type":"uint256"},{"name":"b","type":"uint256"}],
	 "outputs":[{"name":"quotient","type":"uint256"},{"name":"remainder","type":"uint256"}]},
	{"type":"function","name":"reset","stateMutability":"nonpayable","inputs":[],"outputs":[]}
]`

var (
	// CounterABI is the parsed CounterABIJSON.
	CounterABI = mustParse(CounterABIJSON)

	// CounterCode is the payload that runs the native counter.
	CounterCode = []byte("\xfetestcontract/counter")
)

var counterSlot = common.Hash{}

func init() {
	vm.RegisterNative(CounterCode, newNative(CounterABI, map[string]handler{
		"read": func(env vm.Env, _ []interface{}) ([]interface{}, error) {
			return []interface{}{counterValue(env)}, nil
		},
		"increment": func(env vm.Env, _ []interface{}) ([]interface{}, error) {
			return increaseCounter(env, big.NewInt(1))
		},
		"increaseBy": func(env vm.Env, args []interface{}) ([]interface{}, error) {
			return increaseCounter(env, args[0].(*big.Int))
		},
		"add": func(env vm.Env, args []interface{}) ([]interface{}, error) {
			return []interface{}{new(big.Int).Add(counterValue(env), args[0].(*big.Int))}, nil
		},
		"addThree": func(env vm.Env, args []interface{}) ([]interface{}, error) {
			sum := counterValue(env)
			for _, a := range args {
				sum.Add(sum, a.(*big.Int))
			}
			return []interface{}{sum}, nil
		},
		"increaseByThreeValues": func(env vm.Env, args []interface{}) ([]interface{}, error) {
			sum := new(big.Int)
			for _, a := range args {
				sum.Add(sum, a.(*big.Int))
			}
			return increaseCounter(env, sum)
		},
		"divMod": func(env vm.Env, args []interface{}) ([]interface{}, error) {
			a, b := args[0].(*big.Int), args[1].(*big.Int)
			if b.Sign() == 0 {
				return fail("division by zero")
			}
			q, r := new(big.Int).QuoRem(a, b, new(big.Int))
			return []interface{}{q, r}, nil
		},
		"reset": func(env vm.Env, _ []interface{}) ([]interface{}, error) {
			return nil, env.SetState(counterSlot, common.Hash{})
		},
	}))
}

func counterValue(env vm.Env) *big.Int {
	return env.GetState(counterSlot).Big()
}

func increaseCounter(env vm.Env, by *big.Int) ([]interface{}, error) {
	v := new(big.Int).Add(counterValue(env), by)
	if err := env.SetState(counterSlot, common.BigToHash(v)); err != nil {
		return nil, err
	}
	return []interface{}{v}, nil
}
