package chainservice

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	lru "github.com/hashicorp/golang-lru"
	"github.com/holiman/uint256"

	"github.com/fstnetwork/relayer/core/contractabi"
	"github.com/fstnetwork/relayer/core/types"
)

// stateCacheSize bounds the client's per-address state-lookup cache: one
// relayer machine re-reads its own nonce every Preparing step, and
// repeated token balance/nonce probes during admission shouldn't each
// cost a fresh eth_call.
const stateCacheSize = 1024

// stateCacheTTL is short enough that a cached nonce never stays stale
// across the account's next real transaction broadcast.
const stateCacheTTL = 2 * time.Second

type cachedState struct {
	state   AccountState
	expires time.Time
}

// ErrNoRequestsToEstimate is returned when EstimateGas is asked to price a
// token-transfer-request estimation with no underlying SignedRequest.
var ErrNoRequestsToEstimate = errors.New("chainservice: gas estimation missing signed request")

// ChainService is the full capability surface the relayer needs from the
// underlying node. The pool, machine and chain monitor packages only ever
// see the narrower GasEstimator, ChainAdapter and ChainPoller interfaces
// they declare themselves; Client happens to satisfy all three structurally.
type ChainService interface {
	BlockGasLimit(ctx context.Context, block BlockID) (*uint256.Int, error)
	BlockNumber(ctx context.Context) (*uint256.Int, error)
	StateOf(ctx context.Context, addr common.Address, currency Currency) (AccountState, error)
	BalanceOf(ctx context.Context, addr common.Address, currency Currency) (*uint256.Int, error)
	NonceOf(ctx context.Context, addr common.Address, currency Currency) (*uint256.Int, error)
	CodeOf(ctx context.Context, addr common.Address) ([]byte, error)
	EstimateGas(ctx context.Context, est GasEstimation) (*uint256.Int, error)
	GetTransactionByHash(ctx context.Context, hash common.Hash) (*gethtypes.Transaction, error)
	GetTransactionReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error)
	TransactionConfirmation(ctx context.Context, hash common.Hash) (Confirmation, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) (common.Hash, error)
	TokenDelegateEnable(ctx context.Context, token common.Address) (bool, error)
}

// Client adapts a single go-ethereum JSON-RPC endpoint to ChainService,
// the way ethclient.Client adapts rpc.Client to the public Ethereum API.
type Client struct {
	rpc        *rpc.Client
	stateCache *lru.Cache
}

// Dial connects to a JSON-RPC endpoint (http(s)://, ws(s)://, or an IPC
// socket path, anything rpc.DialContext accepts).
func Dial(ctx context.Context, endpoint string) (*Client, error) {
	c, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return NewClient(c), nil
}

// NewClient wraps an already-dialed rpc.Client.
func NewClient(c *rpc.Client) *Client {
	cache, err := lru.New(stateCacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size, which is a constant above
	}
	return &Client{rpc: c, stateCache: cache}
}

// Close releases the underlying connection.
func (c *Client) Close() { c.rpc.Close() }

func (c *Client) BlockGasLimit(ctx context.Context, block BlockID) (*uint256.Int, error) {
	var header struct {
		GasLimit hexutil.Uint64 `json:"gasLimit"`
	}
	if err := c.rpc.CallContext(ctx, &header, "eth_getBlockByNumber", block.String(), false); err != nil {
		return nil, err
	}
	return uint256.NewInt(uint64(header.GasLimit)), nil
}

func (c *Client) BlockNumber(ctx context.Context) (*uint256.Int, error) {
	var result hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &result, "eth_blockNumber"); err != nil {
		return nil, err
	}
	return uint256.NewInt(uint64(result)), nil
}

// GetBlockNumber is the plain uint64 form chainmonitor.ChainPoller needs.
func (c *Client) GetBlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

type stateCacheKey struct {
	addr     common.Address
	currency Currency
}

func (c *Client) StateOf(ctx context.Context, addr common.Address, currency Currency) (AccountState, error) {
	key := stateCacheKey{addr: addr, currency: currency}
	if cached, ok := c.stateCache.Get(key); ok {
		if entry := cached.(cachedState); time.Now().Before(entry.expires) {
			return entry.state, nil
		}
	}

	nonce, err := c.NonceOf(ctx, addr, currency)
	if err != nil {
		return AccountState{}, err
	}
	balance, err := c.BalanceOf(ctx, addr, currency)
	if err != nil {
		return AccountState{}, err
	}
	state := AccountState{Address: addr, Nonce: nonce, Balance: balance}
	c.stateCache.Add(key, cachedState{state: state, expires: time.Now().Add(stateCacheTTL)})
	return state, nil
}

func (c *Client) BalanceOf(ctx context.Context, addr common.Address, currency Currency) (*uint256.Int, error) {
	if currency.Kind == Ether {
		var result hexutil.Big
		if err := c.rpc.CallContext(ctx, &result, "eth_getBalance", addr, "latest"); err != nil {
			return nil, err
		}
		return uint256.MustFromBig((*big.Int)(&result)), nil
	}
	data, err := contractabi.EncodeBalanceOfCall(addr)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, currency.Token, data)
	if err != nil {
		return nil, err
	}
	return uint256.NewInt(0).SetBytes(out), nil
}

func (c *Client) NonceOf(ctx context.Context, addr common.Address, currency Currency) (*uint256.Int, error) {
	if currency.Kind == Ether {
		var result hexutil.Uint64
		if err := c.rpc.CallContext(ctx, &result, "eth_getTransactionCount", addr, "latest"); err != nil {
			return nil, err
		}
		return uint256.NewInt(uint64(result)), nil
	}
	data, err := contractabi.EncodeNonceOfCall(addr)
	if err != nil {
		return nil, err
	}
	out, err := c.call(ctx, currency.Token, data)
	if err != nil {
		return nil, err
	}
	return uint256.NewInt(0).SetBytes(out), nil
}

func (c *Client) CodeOf(ctx context.Context, addr common.Address) ([]byte, error) {
	var result hexutil.Bytes
	if err := c.rpc.CallContext(ctx, &result, "eth_getCode", addr, "latest"); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) EstimateGas(ctx context.Context, est GasEstimation) (*uint256.Int, error) {
	switch est.Kind {
	case EstimateTransaction:
		return c.estimateCallMsg(ctx, est.Transaction.To(), est.Transaction.Value(), est.Transaction.Data())
	case EstimateTokenTransferRequest:
		if est.Request == nil {
			return nil, ErrNoRequestsToEstimate
		}
		data, err := contractabi.EncodeDelegateTransferAndCall(est.Request)
		if err != nil {
			return nil, err
		}
		token := est.Request.Request.Token
		return c.estimateCallMsg(ctx, &token, big.NewInt(0), data)
	default:
		return nil, errors.New("chainservice: unknown gas estimation kind")
	}
}

func (c *Client) estimateCallMsg(ctx context.Context, to *common.Address, value *big.Int, data []byte) (*uint256.Int, error) {
	msg := map[string]interface{}{
		"to":    to,
		"value": (*hexutil.Big)(value),
		"data":  hexutil.Bytes(data),
	}
	var result hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &result, "eth_estimateGas", msg); err != nil {
		return nil, err
	}
	return uint256.NewInt(uint64(result)), nil
}

// EstimateTokenTransferGas adapts EstimateGas to the exact shape
// core/pool.GasEstimator expects.
func (c *Client) EstimateTokenTransferGas(ctx context.Context, relayer common.Address, req *types.SignedRequest) (*uint256.Int, error) {
	return c.EstimateGas(ctx, GasEstimation{Kind: EstimateTokenTransferRequest, Relayer: relayer, Request: req})
}

func (c *Client) GetTransactionByHash(ctx context.Context, hash common.Hash) (*gethtypes.Transaction, error) {
	var tx *gethtypes.Transaction
	if err := c.rpc.CallContext(ctx, &tx, "eth_getTransactionByHash", hash); err != nil {
		return nil, err
	}
	return tx, nil
}

func (c *Client) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	var receipt *gethtypes.Receipt
	if err := c.rpc.CallContext(ctx, &receipt, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	return receipt, nil
}

func (c *Client) TransactionConfirmation(ctx context.Context, hash common.Hash) (Confirmation, error) {
	receipt, err := c.GetTransactionReceipt(ctx, hash)
	if err != nil {
		return Confirmation{}, err
	}
	latest, err := c.BlockNumber(ctx)
	if err != nil {
		return Confirmation{}, err
	}
	conf := Confirmation{LatestBlockNumber: latest.Uint64()}
	if receipt != nil {
		n := receipt.BlockNumber.Uint64()
		conf.ReceiptBlockNumber = &n
	}
	return conf, nil
}

// GetTransactionConfirmation adapts TransactionConfirmation to the exact
// (latestBlock, receiptBlock, err) shape chainmonitor.ChainPoller expects.
func (c *Client) GetTransactionConfirmation(ctx context.Context, hash common.Hash) (uint64, *uint64, error) {
	conf, err := c.TransactionConfirmation(ctx, hash)
	if err != nil {
		return 0, nil, err
	}
	return conf.LatestBlockNumber, conf.ReceiptBlockNumber, nil
}

func (c *Client) SendTransaction(ctx context.Context, tx *gethtypes.Transaction) (common.Hash, error) {
	data, err := tx.MarshalBinary()
	if err != nil {
		return common.Hash{}, err
	}
	if err := c.rpc.CallContext(ctx, nil, "eth_sendRawTransaction", hexutil.Encode(data)); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

func (c *Client) TokenDelegateEnable(ctx context.Context, token common.Address) (bool, error) {
	data := contractabi.EncodeIsDelegateEnableCall(token)
	out, err := c.call(ctx, token, data)
	if err != nil {
		return false, err
	}
	return contractabi.DecodeIsDelegateEnableReturn(out)
}

func (c *Client) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := map[string]interface{}{"to": to, "data": hexutil.Bytes(data)}
	var result hexutil.Bytes
	if err := c.rpc.CallContext(ctx, &result, "eth_call", msg, "latest"); err != nil {
		return nil, err
	}
	return result, nil
}
