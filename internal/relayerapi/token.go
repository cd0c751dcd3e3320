package relayerapi

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fstnetwork/relayer/core/pool"
)

// TokenAPI implements the token_* namespace: token allow-list queries and
// maintenance.
type TokenAPI struct {
	Pool *pool.Pool
}

// Register wires every token_* method into s.
func (a *TokenAPI) Register(s *Server) {
	s.Register("token_status", a.status)
	s.Register("token_setAllowList", a.setAllowList)
}

// status reports, for each given token address, whether the pool currently
// accepts requests against it.
func (a *TokenAPI) status(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var tokens []common.Address
	if err := decodeArg(params, 0, &tokens); err != nil {
		return nil, err
	}
	return a.Pool.TokenStatus(tokens), nil
}

// setAllowList replaces the pool's token filter with an allow-list
// containing exactly the given tokens.
func (a *TokenAPI) setAllowList(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var tokens []common.Address
	if err := decodeArg(params, 0, &tokens); err != nil {
		return nil, err
	}
	a.Pool.SetFilter(pool.NewAllowListFilter(tokens))
	return true, nil
}
