package machine

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/fstnetwork/relayer/core/chainmonitor"
	"github.com/fstnetwork/relayer/core/chainservice"
	"github.com/fstnetwork/relayer/core/pool"
	"github.com/fstnetwork/relayer/core/types"
)

type fixedGasEstimator struct{ gas *uint256.Int }

func (f fixedGasEstimator) EstimateTokenTransferGas(context.Context, common.Address, *types.SignedRequest) (*uint256.Int, error) {
	return f.gas, nil
}

type stubChain struct {
	nonce    *uint256.Int
	limit    *uint256.Int
	estimate *uint256.Int
	sentHash common.Hash
	sendErr  error
}

func (s *stubChain) StateOf(ctx context.Context, addr common.Address, currency chainservice.Currency) (chainservice.AccountState, error) {
	return chainservice.AccountState{Address: addr, Nonce: s.nonce, Balance: uint256.NewInt(0)}, nil
}

func (s *stubChain) BlockGasLimit(ctx context.Context, block chainservice.BlockID) (*uint256.Int, error) {
	return s.limit, nil
}

func (s *stubChain) EstimateGas(ctx context.Context, est chainservice.GasEstimation) (*uint256.Int, error) {
	return s.estimate, nil
}

func (s *stubChain) SendTransaction(ctx context.Context, tx *gethtypes.Transaction) (common.Hash, error) {
	if s.sendErr != nil {
		return common.Hash{}, s.sendErr
	}
	return s.sentHash, nil
}

type stubPricer struct{ price *uint256.Int }

func (s stubPricer) GasPrice(context.Context) (*uint256.Int, error) { return s.price, nil }

func signedRequest(t *testing.T, token common.Address, nonce uint64) *types.SignedRequest {
	t.Helper()
	prv, err := crypto.GenerateKey()
	require.NoError(t, err)
	req := &types.Request{
		Token:        token,
		Nonce:        uint256.NewInt(nonce),
		Fee:          uint256.NewInt(100),
		GasAmount:    uint256.NewInt(100000),
		Receiver:     common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Value:        uint256.NewInt(0),
		DelegateMode: types.PublicMsgSender,
	}
	unverified, err := types.Sign(req, prv)
	require.NoError(t, err)
	signed, err := unverified.Recover()
	require.NoError(t, err)
	return signed
}

func newTestMachine(t *testing.T, chain *stubChain) (*Machine, *pool.Pool) {
	t.Helper()
	gasEstimator := fixedGasEstimator{gas: uint256.NewInt(types.IntrinsicGas + 50000)}
	p := pool.New(pool.NonceAndFeeSelector{}, nil, pool.DefaultParams(), gasEstimator)
	dispatcher := common.HexToAddress("0xdddd000000000000000000000000000000dddd")
	p.SetDispatcher(dispatcher)

	relayerPrv, err := crypto.GenerateKey()
	require.NoError(t, err)
	relayerAddr := crypto.PubkeyToAddress(relayerPrv.PublicKey)

	monitor := chainmonitor.New(nil, time.Hour)
	m := New(relayerAddr, relayerPrv, big.NewInt(1), p, chain, stubPricer{price: uint256.NewInt(1)}, monitor)
	m.SetDispatcher(dispatcher)
	m.SetConfirmationCount(1)
	return m, p
}

func TestMachineHappyPathReachesTxExecuting(t *testing.T) {
	chain := &stubChain{
		nonce:    uint256.NewInt(5),
		limit:    uint256.NewInt(8_000_000),
		estimate: uint256.NewInt(100000),
		sentHash: common.HexToHash("0xbeef"),
	}
	m, p := newTestMachine(t, chain)

	token := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	req := signedRequest(t, token, 1)
	_, err := p.Import(context.Background(), req.UnverifiedRequest)
	require.NoError(t, err)

	state, err := m.Poll(context.Background(), TimeoutEvent())
	require.NoError(t, err)
	require.Equal(t, StatePreparing, state)
	require.Equal(t, 1, p.CountByTag(types.TagReady))

	state, err = m.Poll(context.Background(), TimeoutEvent())
	require.NoError(t, err)
	require.Equal(t, StateGasEstimating, state)
	require.Equal(t, 1, p.CountByTag(types.TagProcessing))

	state, err = m.Poll(context.Background(), NullEvent())
	require.NoError(t, err)
	require.Equal(t, StateTxBroadcasting, state)

	state, err = m.Poll(context.Background(), NullEvent())
	require.NoError(t, err)
	require.Equal(t, StateTxExecuting, state)

	state, err = m.Poll(context.Background(), NullEvent())
	require.NoError(t, err)
	require.Equal(t, StateTxExecuting, state)

	state, err = m.Poll(context.Background(), NullEvent())
	require.NoError(t, err)
	require.Equal(t, StateTxExecuting, state)
}

func TestMachineResetsToReadyOnChainError(t *testing.T) {
	chain := &stubChain{
		nonce:   uint256.NewInt(5),
		limit:   uint256.NewInt(8_000_000),
		sendErr: errPermanent{},
	}
	m, p := newTestMachine(t, chain)

	token := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	req := signedRequest(t, token, 1)
	_, err := p.Import(context.Background(), req.UnverifiedRequest)
	require.NoError(t, err)

	_, err = m.Poll(context.Background(), TimeoutEvent())
	require.NoError(t, err)
	_, err = m.Poll(context.Background(), NullEvent())
	require.NoError(t, err)
	chain.estimate = uint256.NewInt(100000)
	_, err = m.Poll(context.Background(), NullEvent())
	require.NoError(t, err)

	state, err := m.Poll(context.Background(), NullEvent())
	require.Error(t, err)
	require.Equal(t, StateReady, state)
	require.Equal(t, 1, p.CountByTag(types.TagReady))
}

func TestMachineDryRunDropsCollationWithoutSending(t *testing.T) {
	chain := &stubChain{
		nonce:    uint256.NewInt(5),
		limit:    uint256.NewInt(8_000_000),
		estimate: uint256.NewInt(100000),
	}
	m, p := newTestMachine(t, chain)
	m.SetDryRun(true)

	token := common.HexToAddress("0xaaaa000000000000000000000000000000aaaa")
	req := signedRequest(t, token, 1)
	_, err := p.Import(context.Background(), req.UnverifiedRequest)
	require.NoError(t, err)

	_, err = m.Poll(context.Background(), TimeoutEvent())
	require.NoError(t, err)
	_, err = m.Poll(context.Background(), NullEvent())
	require.NoError(t, err)
	_, err = m.Poll(context.Background(), NullEvent())
	require.NoError(t, err)

	state, err := m.Poll(context.Background(), NullEvent())
	require.NoError(t, err)
	require.Equal(t, StateReady, state)
	require.Equal(t, 1, p.CountByTag(types.TagReady))
}

type errPermanent struct{}

func (errPermanent) Error() string { return "permanent chain failure" }
