package chainservice

import (
	"context"
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/fstnetwork/relayer/core/types"
)

// ErrNoEndpoints is returned by Group operations when no endpoint has been
// added yet.
var ErrNoEndpoints = errors.New("chainservice: no endpoints configured")

// Group fans a ChainService out across several node endpoints, picked
// round-robin per call: add_endpoint/remove_endpoint/endpoints are part
// of the ChainService external interface, and a single endpoint can't
// usefully implement them.
type Group struct {
	mu        sync.Mutex
	endpoints []string
	clients   map[string]*Client
	next      int
}

// NewGroup returns an empty endpoint group. Endpoints are added with
// AddEndpoint.
func NewGroup() *Group {
	return &Group{clients: map[string]*Client{}}
}

// AddEndpoint dials url and adds it to the rotation.
func (g *Group) AddEndpoint(ctx context.Context, url string) error {
	client, err := Dial(ctx, url)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.clients[url]; exists {
		client.Close()
		return nil
	}
	g.clients[url] = client
	g.endpoints = append(g.endpoints, url)
	return nil
}

// RemoveEndpoint closes and drops url from the rotation.
func (g *Group) RemoveEndpoint(url string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	client, ok := g.clients[url]
	if !ok {
		return nil
	}
	client.Close()
	delete(g.clients, url)
	for i, e := range g.endpoints {
		if e == url {
			g.endpoints = append(g.endpoints[:i], g.endpoints[i+1:]...)
			break
		}
	}
	return nil
}

// Endpoints lists the currently configured endpoint URLs.
func (g *Group) Endpoints() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.endpoints))
	copy(out, g.endpoints)
	return out
}

// pick returns the next client in round-robin order.
func (g *Group) pick() (*Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	url := g.endpoints[g.next%len(g.endpoints)]
	g.next++
	return g.clients[url], nil
}

func (g *Group) BlockGasLimit(ctx context.Context, block BlockID) (*uint256.Int, error) {
	c, err := g.pick()
	if err != nil {
		return nil, err
	}
	return c.BlockGasLimit(ctx, block)
}

func (g *Group) BlockNumber(ctx context.Context) (*uint256.Int, error) {
	c, err := g.pick()
	if err != nil {
		return nil, err
	}
	return c.BlockNumber(ctx)
}

func (g *Group) GetBlockNumber(ctx context.Context) (uint64, error) {
	c, err := g.pick()
	if err != nil {
		return 0, err
	}
	return c.GetBlockNumber(ctx)
}

func (g *Group) StateOf(ctx context.Context, addr common.Address, currency Currency) (AccountState, error) {
	c, err := g.pick()
	if err != nil {
		return AccountState{}, err
	}
	return c.StateOf(ctx, addr, currency)
}

func (g *Group) BalanceOf(ctx context.Context, addr common.Address, currency Currency) (*uint256.Int, error) {
	c, err := g.pick()
	if err != nil {
		return nil, err
	}
	return c.BalanceOf(ctx, addr, currency)
}

func (g *Group) NonceOf(ctx context.Context, addr common.Address, currency Currency) (*uint256.Int, error) {
	c, err := g.pick()
	if err != nil {
		return nil, err
	}
	return c.NonceOf(ctx, addr, currency)
}

func (g *Group) CodeOf(ctx context.Context, addr common.Address) ([]byte, error) {
	c, err := g.pick()
	if err != nil {
		return nil, err
	}
	return c.CodeOf(ctx, addr)
}

func (g *Group) EstimateGas(ctx context.Context, est GasEstimation) (*uint256.Int, error) {
	c, err := g.pick()
	if err != nil {
		return nil, err
	}
	return c.EstimateGas(ctx, est)
}

// EstimateTokenTransferGas adapts EstimateGas to the exact shape
// core/pool.GasEstimator expects, picking the next endpoint in rotation.
func (g *Group) EstimateTokenTransferGas(ctx context.Context, relayer common.Address, req *types.SignedRequest) (*uint256.Int, error) {
	c, err := g.pick()
	if err != nil {
		return nil, err
	}
	return c.EstimateTokenTransferGas(ctx, relayer, req)
}

func (g *Group) GetTransactionByHash(ctx context.Context, hash common.Hash) (*gethtypes.Transaction, error) {
	c, err := g.pick()
	if err != nil {
		return nil, err
	}
	return c.GetTransactionByHash(ctx, hash)
}

func (g *Group) GetTransactionReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	c, err := g.pick()
	if err != nil {
		return nil, err
	}
	return c.GetTransactionReceipt(ctx, hash)
}

func (g *Group) TransactionConfirmation(ctx context.Context, hash common.Hash) (Confirmation, error) {
	c, err := g.pick()
	if err != nil {
		return Confirmation{}, err
	}
	return c.TransactionConfirmation(ctx, hash)
}

func (g *Group) GetTransactionConfirmation(ctx context.Context, hash common.Hash) (uint64, *uint64, error) {
	c, err := g.pick()
	if err != nil {
		return 0, nil, err
	}
	return c.GetTransactionConfirmation(ctx, hash)
}

func (g *Group) SendTransaction(ctx context.Context, tx *gethtypes.Transaction) (common.Hash, error) {
	c, err := g.pick()
	if err != nil {
		return common.Hash{}, err
	}
	return c.SendTransaction(ctx, tx)
}

func (g *Group) TokenDelegateEnable(ctx context.Context, token common.Address) (bool, error) {
	c, err := g.pick()
	if err != nil {
		return false, err
	}
	return c.TokenDelegateEnable(ctx, token)
}

// Close disconnects every endpoint in the group.
func (g *Group) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.clients {
		c.Close()
	}
}
