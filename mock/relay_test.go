package mock

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/clydemeng/doppelganger/core/vm"
	"github.com/clydemeng/doppelganger/internal/testcontract"
)

func TestStaticCallRelay(t *testing.T) {
	ctx := context.Background()
	h, m := newCounterMock(t)
	counter := deployNative(t, h, testcontract.CounterCode, &testcontract.CounterABI)
	_, err := counter.Transact(ctx, "increaseBy", big.NewInt(5))
	require.NoError(t, err)

	v, err := m.StaticCall(ctx, counter, "read")
	require.NoError(t, err)
	require.Equal(t, int64(5), v.(*big.Int).Int64())

	v, err = m.StaticCall(ctx, counter, "add(uint256)", big.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, int64(7), v.(*big.Int).Int64())

	// Several outputs stay a tuple.
	v, err = m.StaticCall(ctx, counter, "divMod", big.NewInt(7), big.NewInt(2))
	require.NoError(t, err)
	out := v.([]interface{})
	require.Equal(t, int64(3), out[0].(*big.Int).Int64())
	require.Equal(t, int64(1), out[1].(*big.Int).Int64())
}

func TestStaticCallErrors(t *testing.T) {
	ctx := context.Background()
	h, m := newCounterMock(t)
	counter := deployNative(t, h, testcontract.CounterCode, &testcontract.CounterABI)

	_, err := m.StaticCall(ctx, counter, "decrement")
	require.ErrorIs(t, err, ErrUnknownFunction)

	_, err = m.StaticCall(ctx, counter, "reset")
	require.ErrorIs(t, err, ErrNoOutputs)
	require.EqualError(t, err, "Cannot staticcall function with no outputs")

	// The target reverting surfaces its reason.
	_, err = m.StaticCall(ctx, counter, "divMod", big.NewInt(1), big.NewInt(0))
	requireRevert(t, err, "division by zero")
}

func TestCallRelay(t *testing.T) {
	ctx := context.Background()
	h, m := newCounterMock(t)
	counter := deployNative(t, h, testcontract.CounterCode, &testcontract.CounterABI)

	ret, err := m.Call(ctx, counter, "increment")
	require.NoError(t, err)
	require.Equal(t, int64(1), uint256Result(t, "increment", ret))

	ret, err = m.Call(ctx, counter, "increaseBy", big.NewInt(4))
	require.NoError(t, err)
	require.Equal(t, int64(5), uint256Result(t, "increaseBy", ret))
	require.Equal(t, int64(5), query(t, counter, "read").(*big.Int).Int64())

	ret, err = m.Call(ctx, counter, "reset")
	require.NoError(t, err)
	require.Empty(t, ret)
	require.Zero(t, query(t, counter, "read").(*big.Int).Sign())

	_, err = m.Call(ctx, counter, "decrement")
	require.ErrorIs(t, err, ErrUnknownFunction)
}

func TestRelayCallerIsMock(t *testing.T) {
	ctx := context.Background()
	h, m := newCounterMock(t)
	proxy := deployNative(t, h, testcontract.ProxyCode, &testcontract.ProxyABI)

	v, err := m.StaticCall(ctx, proxy, "whoCalls")
	require.NoError(t, err)
	require.Equal(t, m.Address(), v.(common.Address))

	require.Equal(t, owner, query(t, proxy, "whoCalls").(common.Address))
}

func TestProxyOverMock(t *testing.T) {
	ctx := context.Background()
	h, m := newCounterMock(t)
	proxy := deployNative(t, h, testcontract.ProxyCode, &testcontract.ProxyABI)
	_, err := proxy.Transact(ctx, "init", m.Address())
	require.NoError(t, err)

	// Reverts of the mock bubble through the proxy.
	_, err = proxy.Query(ctx, "readCapped")
	requireRevert(t, err, vm.NotInitializedReason)

	require.NoError(t, m.Stub("read").Returns(big.NewInt(15)).Commit(ctx))
	require.Equal(t, int64(10), query(t, proxy, "readCapped").(*big.Int).Int64())
	require.NoError(t, m.Stub("read").Returns(big.NewInt(4)).Commit(ctx))
	require.Equal(t, int64(4), query(t, proxy, "readCapped").(*big.Int).Int64())

	require.NoError(t, m.Stub("add").Returns(big.NewInt(100)).Commit(ctx))
	require.NoError(t, m.Stub("add").WithArgs(big.NewInt(1)).Returns(big.NewInt(2)).Commit(ctx))
	require.Equal(t, int64(2), query(t, proxy, "addCapped", big.NewInt(1)).(*big.Int).Int64())
	require.Equal(t, int64(10), query(t, proxy, "addCapped", big.NewInt(9)).(*big.Int).Int64())

	// Queued outcomes are consumed by the proxy's nested calls.
	require.NoError(t, m.Stub("increment").Returns(big.NewInt(1)).Returns(big.NewInt(2)).Commit(ctx))
	ret, err := proxy.Transact(ctx, "incrementTwice")
	require.NoError(t, err)
	out, err := testcontract.ProxyABI.Unpack("incrementTwice", ret)
	require.NoError(t, err)
	require.Equal(t, int64(3), out[0].(*big.Int).Int64())

	require.NoError(t, m.Stub("increaseBy").WithArgs(big.NewInt(3)).RevertsWithReason("too much").Commit(ctx))
	_, err = proxy.Transact(ctx, "increaseByTwice", big.NewInt(3))
	requireRevert(t, err, "too much")
}

func TestRichCheckerOverMockToken(t *testing.T) {
	ctx := context.Background()
	h := newHost(t)
	token, err := Deploy(ctx, h, owner, &testcontract.ERC20ABI, nil)
	require.NoError(t, err)
	checker := deployNative(t, h, testcontract.RichCheckerCode, &testcontract.RichCheckerABI)
	_, err = checker.Transact(ctx, "init", token.Address())
	require.NoError(t, err)

	rich := new(big.Int).Add(testcontract.RichThreshold, big.NewInt(1))
	require.NoError(t, token.Stub("balanceOf").Returns(big.NewInt(0)).Commit(ctx))
	require.NoError(t, token.Stub("balanceOf(address)").WithArgs(alice).Returns(rich).Commit(ctx))

	require.Equal(t, true, query(t, checker.WithFrom(alice), "check"))
	require.Equal(t, false, query(t, checker, "check"))

	require.NoError(t, token.Stub("balanceOf").RevertsWithReason("paused").Commit(ctx))
	_, err = checker.Query(ctx, "check")
	requireRevert(t, err, "paused")
}
