package testcontract

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clydemeng/doppelganger/core/vm"
)

// ERC20ABIJSON is the slice of the ERC20 interface RichChecker depends on.
const ERC20ABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"receive","stateMutability":"payable"}
]`

// RichCheckerABIJSON describes a contract that tells whether its caller holds
// more than a million tokens.
const RichCheckerABIJSON = `[
	{"type":"function","name":"init","stateMutability":"nonpayable",
	 "inputs":[{"name":"token","type":"address"}],"outputs":[]},
	{"type":"function","name":"check","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"bool"}]}
]`

var (
	// ERC20ABI is the parsed ERC20ABIJSON.
	ERC20ABI = mustParse(ERC20ABIJSON)

	// RichCheckerABI is the parsed RichCheckerABIJSON.
	RichCheckerABI = mustParse(RichCheckerABIJSON)

	// RichCheckerCode is the payload that runs the native balance checker.
	RichCheckerCode = []byte("\xfetestcontract/rich")

	// RichThreshold is the balance check() compares against: 1e6 tokens of
	// 18 decimals.
	RichThreshold = new(big.Int).Mul(big.NewInt(1_000_000), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
)

var richTokenSlot = common.Hash{}

func init() {
	vm.RegisterNative(RichCheckerCode, newNative(RichCheckerABI, map[string]handler{
		"init": func(env vm.Env, args []interface{}) ([]interface{}, error) {
			return nil, storeAddress(env, richTokenSlot, args[0].(common.Address))
		},
		"check": func(env vm.Env, _ []interface{}) ([]interface{}, error) {
			input, err := ERC20ABI.Pack("balanceOf", env.Caller())
			if err != nil {
				return nil, err
			}
			ret, err := env.StaticCall(loadAddress(env, richTokenSlot), input)
			if err != nil {
				return bubble(ret, err)
			}
			out, err := ERC20ABI.Unpack("balanceOf", ret)
			if err != nil {
				return nil, err
			}
			return []interface{}{out[0].(*big.Int).Cmp(RichThreshold) > 0}, nil
		},
	}))
}
