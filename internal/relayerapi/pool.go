package relayerapi

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fstnetwork/relayer/core/pool"
	"github.com/fstnetwork/relayer/internal/rpcutil"
)

// PoolAPI implements the pool_* namespace: request submission and pool
// introspection.
type PoolAPI struct {
	Pool *pool.Pool
}

// Register wires every pool_* method into s.
func (a *PoolAPI) Register(s *Server) {
	s.Register("pool_status", a.status)
	s.Register("pool_submitRequest", a.submitRequest)
	s.Register("pool_requestByHash", a.requestByHash)
}

func (a *PoolAPI) status(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return a.Pool.Status(), nil
}

// submitRequest admits a signed TokenTransferRequest, returning its pool
// hash. A private-mode request bound to an unknown relayer is silently
// dropped by the pool, mirrored here as a null result rather than an
// error.
func (a *PoolAPI) submitRequest(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var wire rpcutil.TokenTransferRequest
	if err := decodeArg(params, 0, &wire); err != nil {
		return nil, err
	}
	unverified, err := wire.ToDomain()
	if err != nil {
		return nil, err
	}
	signed, err := a.Pool.Import(ctx, unverified)
	if err != nil {
		return nil, err
	}
	if signed == nil {
		return nil, nil
	}
	hash := signed.Hash()
	return hash, nil
}

func (a *PoolAPI) requestByHash(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var hash common.Hash
	if err := decodeArg(params, 0, &hash); err != nil {
		return nil, err
	}
	for _, vr := range a.Pool.AllRequests() {
		if vr.Hash() == hash {
			return rpcutil.FromDomain(vr.UnverifiedRequest), nil
		}
	}
	return nil, nil
}
