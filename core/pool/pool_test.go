package pool

import (
	"context"
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/fstnetwork/relayer/core/types"
)

type fixedGasEstimator struct{ gas uint64 }

func (f fixedGasEstimator) EstimateTokenTransferGas(context.Context, common.Address, *types.SignedRequest) (*uint256.Int, error) {
	return uint256.NewInt(f.gas), nil
}

func mustKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	prv, err := crypto.GenerateKey()
	require.NoError(t, err)
	return prv
}

func buildRequest(token common.Address, nonce, fee uint64) *types.Request {
	return &types.Request{
		Token:          token,
		Nonce:          uint256.NewInt(nonce),
		Fee:            uint256.NewInt(fee),
		GasAmount:      uint256.NewInt(1_000_000),
		Receiver:       common.HexToAddress("0x00000000000000000000000000000000000001"),
		Value:          uint256.NewInt(0),
		DelegateMode:   types.PublicMsgSender,
		RelayerAddress: common.Address{},
	}
}

func signedUnverified(t *testing.T, prv *ecdsa.PrivateKey, token common.Address, nonce, fee uint64) *types.UnverifiedRequest {
	t.Helper()
	u, err := types.Sign(buildRequest(token, nonce, fee), prv)
	require.NoError(t, err)
	return u
}

func newTestPool(gas uint64) *Pool {
	return New(NonceAndFeeSelector{}, nil, Params{MaxPerSender: 3, MaxCount: 1000}, fixedGasEstimator{gas: gas + types.IntrinsicGas})
}

func TestImportDoubleSubmitRejected(t *testing.T) {
	p := newTestPool(21000)
	prv := mustKey(t)
	token := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	req := signedUnverified(t, prv, token, 1, 100)

	_, err := p.Import(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, p.Status().RequestCount)

	_, err = p.Import(context.Background(), req)
	require.ErrorIs(t, err, ErrAlreadyImported)
	require.Equal(t, 1, p.Status().RequestCount)
}

func TestImportReplacementRequiresHigherFee(t *testing.T) {
	p := newTestPool(21000)
	prv := mustKey(t)
	token := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")

	first := signedUnverified(t, prv, token, 1, 100)
	signedFirst, err := p.Import(context.Background(), first)
	require.NoError(t, err)

	lower := signedUnverified(t, prv, token, 1, 50)
	_, err = p.Import(context.Background(), lower)
	var tooCheap *TooCheapToReplace
	require.ErrorAs(t, err, &tooCheap)
	require.True(t, p.ContainsHash(signedFirst.Hash()))

	higher := signedUnverified(t, prv, token, 1, 200)
	signedHigher, err := p.Import(context.Background(), higher)
	require.NoError(t, err)
	require.False(t, p.ContainsHash(signedFirst.Hash()))
	require.True(t, p.ContainsHash(signedHigher.Hash()))
}

func TestSenderQueueOverflowRejectedTooCheapToEnter(t *testing.T) {
	p := newTestPool(21000)
	prv := mustKey(t)
	token := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")

	for i := uint64(1); i <= 3; i++ {
		_, err := p.Import(context.Background(), signedUnverified(t, prv, token, i, 100+i))
		require.NoError(t, err)
	}
	require.Equal(t, 3, p.Status().RequestCount)

	// A 4th request whose nonce sorts after every queued one finds the queue
	// full and is rejected (TooCheapToEnter); nothing is evicted.
	_, err := p.Import(context.Background(), signedUnverified(t, prv, token, 10, 50))
	require.Error(t, err)
	var tooCheapToEnter *TooCheapToEnter
	require.ErrorAs(t, err, &tooCheapToEnter)
	require.Equal(t, 3, p.Status().RequestCount)
}

func TestReadyRequestsRespectsGasLimitAndRetags(t *testing.T) {
	p := newTestPool(100_000)
	prv := mustKey(t)
	token := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")

	for i := uint64(1); i <= 3; i++ {
		_, err := p.Import(context.Background(), signedUnverified(t, prv, token, i, 100+i))
		require.NoError(t, err)
	}

	processing := types.TagProcessing
	limit := uint256.NewInt(250_000) // room for 2 requests of 100_000 gas each, not 3
	out := p.ReadyRequests(&processing, ReadyRequestsOptions{GasLimit: limit})
	require.Len(t, out, 2)
	require.EqualValues(t, 1, out[0].Request.Nonce.Uint64())
	require.EqualValues(t, 2, out[1].Request.Nonce.Uint64())

	tags := p.Tags()
	require.Equal(t, types.TagProcessing, tags[out[0].Hash()])
	require.Equal(t, types.TagProcessing, tags[out[1].Hash()])

	// The third (nonce 3) request is still Ready and untouched.
	remaining := p.ReadyRequests(nil, ReadyRequestsOptions{})
	require.Len(t, remaining, 1)
	require.EqualValues(t, 3, remaining[0].Request.Nonce.Uint64())
}

func TestPrivateRequestDroppedForUnknownRelayer(t *testing.T) {
	p := newTestPool(21000)
	prv := mustKey(t)
	token := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")

	req := buildRequest(token, 1, 100)
	req.DelegateMode = types.PrivateMsgSender
	req.RelayerAddress = common.HexToAddress("0xbeefbeefbeefbeefbeefbeefbeefbeefbeefbeef")
	u, err := types.Sign(req, prv)
	require.NoError(t, err)

	signed, err := p.Import(context.Background(), u)
	require.NoError(t, err)
	require.Nil(t, signed)
	require.Equal(t, 0, p.Status().RequestCount)

	p.SetRelayers([]common.Address{req.RelayerAddress})
	signed, err = p.Import(context.Background(), u)
	require.NoError(t, err)
	require.NotNil(t, signed)
	require.Equal(t, 1, p.Status().RequestCount)
}

func TestImportRejectsWhenMemoryLimitExceeded(t *testing.T) {
	gas := fixedGasEstimator{gas: 21000 + types.IntrinsicGas}
	size := uint64(len(types.Empty().Pack()))
	p := New(NonceAndFeeSelector{}, nil, Params{MaxPerSender: 10, MaxCount: 1000, MaxMemUsage: size + size/2}, gas)
	prv := mustKey(t)
	token := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")

	_, err := p.Import(context.Background(), signedUnverified(t, prv, token, 1, 100))
	require.NoError(t, err)
	require.Equal(t, 1, p.Status().RequestCount)

	_, err = p.Import(context.Background(), signedUnverified(t, prv, token, 2, 100))
	require.ErrorIs(t, err, ErrMemoryLimitReached)
	require.Equal(t, 1, p.Status().RequestCount)
}

func TestAtMostOnceAcrossTwoReadyRequestsCalls(t *testing.T) {
	p := newTestPool(21000)
	senderA := mustKey(t)
	senderB := mustKey(t)
	token := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")

	for i := uint64(1); i <= 3; i++ {
		_, err := p.Import(context.Background(), signedUnverified(t, senderA, token, i, 100+i))
		require.NoError(t, err)
	}
	for i := uint64(1); i <= 2; i++ {
		_, err := p.Import(context.Background(), signedUnverified(t, senderB, token, i, 100+i))
		require.NoError(t, err)
	}

	processing := types.TagProcessing
	first := p.ReadyRequests(&processing, ReadyRequestsOptions{})
	second := p.ReadyRequests(&processing, ReadyRequestsOptions{})

	seen := map[common.Hash]bool{}
	for _, vr := range first {
		seen[vr.Hash()] = true
	}
	for _, vr := range second {
		require.False(t, seen[vr.Hash()], "hash %s appeared in both batches", vr.Hash())
	}
	require.Empty(t, second, "a second immediate call should see nothing left Ready")
}
