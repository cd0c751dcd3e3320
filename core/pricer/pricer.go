// Package pricer supplies the gas price a relayer machine signs its
// transactions with.
package pricer

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
)

// Fixed always returns the same configured price, for dry-run and test
// environments where a live node's fee market is irrelevant.
type Fixed struct {
	Price *uint256.Int
}

// GasPrice implements machine.GasPricer.
func (f Fixed) GasPrice(context.Context) (*uint256.Int, error) {
	return f.Price, nil
}

// Node asks the chain node's own `eth_gasPrice` endpoint, the way
// go-ethereum's gasprice oracle feeds `eth_gasPrice` for wallets that don't
// run their own fee estimation.
type Node struct {
	rpc *rpc.Client
}

// NewNode wraps an already-dialed JSON-RPC client.
func NewNode(client *rpc.Client) *Node { return &Node{rpc: client} }

// GasPrice implements machine.GasPricer.
func (n *Node) GasPrice(ctx context.Context) (*uint256.Int, error) {
	var result hexutil.Big
	if err := n.rpc.CallContext(ctx, &result, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return uint256.MustFromBig(result.ToInt()), nil
}
