package testcontract

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clydemeng/doppelganger/core/vm"
)

// ProxyABIJSON describes a contract that reads a counter-shaped target and
// caps the result at 10.
const ProxyABIJSON = `[
	{"type":"function","name":"init","stateMutability":"nonpayable",
	 "inputs":[{"name":"target","type":"address"}],"outputs":[]},
	{"type":"function","name":"readCapped","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"addCapped","stateMutability":"view",
	 "inputs":[{"name":"a","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"incrementTwice","stateMutability":"nonpayable","inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"increaseByTwice","stateMutability":"nonpayable",
	 "inputs":[{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"whoCalls","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"address"}]}
]`

var (
	// ProxyABI is the parsed ProxyABIJSON.
	ProxyABI = mustParse(ProxyABIJSON)

	// ProxyCode is the payload that runs the native proxy.
	ProxyCode = []byte("\xfetestcontract/proxy")
)

var (
	proxyTargetSlot = common.Hash{}
	proxyCap        = big.NewInt(10)
)

func init() {
	vm.RegisterNative(ProxyCode, newNative(ProxyABI, map[string]handler{
		"init": func(env vm.Env, args []interface{}) ([]interface{}, error) {
			return nil, storeAddress(env, proxyTargetSlot, args[0].(common.Address))
		},
		"readCapped": func(env vm.Env, _ []interface{}) ([]interface{}, error) {
			v, data, err := proxyQuery(env, true, "read")
			if err != nil {
				return bubble(data, err)
			}
			return []interface{}{capped(v)}, nil
		},
		"addCapped": func(env vm.Env, args []interface{}) ([]interface{}, error) {
			v, data, err := proxyQuery(env, true, "add", args[0])
			if err != nil {
				return bubble(data, err)
			}
			return []interface{}{capped(v)}, nil
		},
		"incrementTwice": func(env vm.Env, _ []interface{}) ([]interface{}, error) {
			return proxyTwice(env, "increment")
		},
		"increaseByTwice": func(env vm.Env, args []interface{}) ([]interface{}, error) {
			return proxyTwice(env, "increaseBy", args[0])
		},
		"whoCalls": func(env vm.Env, _ []interface{}) ([]interface{}, error) {
			return []interface{}{env.Caller()}, nil
		},
	}))
}

// proxyQuery invokes a uint256-returning counter method on the target.
func proxyQuery(env vm.Env, static bool, method string, args ...interface{}) (*big.Int, []byte, error) {
	input, err := CounterABI.Pack(method, args...)
	if err != nil {
		return nil, nil, err
	}
	target := loadAddress(env, proxyTargetSlot)

	var ret []byte
	if static {
		ret, err = env.StaticCall(target, input)
	} else {
		ret, err = env.Call(target, input, nil)
	}
	if err != nil {
		return nil, ret, err
	}
	out, err := CounterABI.Unpack(method, ret)
	if err != nil {
		return nil, nil, err
	}
	return out[0].(*big.Int), nil, nil
}

func proxyTwice(env vm.Env, method string, args ...interface{}) ([]interface{}, error) {
	sum := new(big.Int)
	for i := 0; i < 2; i++ {
		v, data, err := proxyQuery(env, false, method, args...)
		if err != nil {
			return bubble(data, err)
		}
		sum.Add(sum, v)
	}
	return []interface{}{sum}, nil
}

func capped(v *big.Int) *big.Int {
	if v.Cmp(proxyCap) > 0 {
		return new(big.Int).Set(proxyCap)
	}
	return v
}
