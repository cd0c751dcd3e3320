package relayerapi

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fstnetwork/relayer/core/machineservice"
	"github.com/fstnetwork/relayer/internal/rpcutil"
)

// RelayerAPI implements the relayer_* namespace: the force-relay fast path
// and per-relayer state introspection.
type RelayerAPI struct {
	Scheduler *machineservice.Service
}

// Register wires every relayer_* method into s.
func (a *RelayerAPI) Register(s *Server) {
	s.Register("relayer_count", a.count)
	s.Register("relayer_state", a.state)
	s.Register("relayer_forceRelay", a.forceRelay)
}

func (a *RelayerAPI) count(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return a.Scheduler.RelayerCount(), nil
}

func (a *RelayerAPI) state(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var addr common.Address
	if err := decodeArg(params, 0, &addr); err != nil {
		return nil, err
	}
	st, err := a.Scheduler.RelayerState(addr)
	if err != nil {
		return nil, err
	}
	return st.String(), nil
}

// forceRelay feeds a signed request directly to an idle relayer when one
// is available, skipping the pool's regular admission queue.
func (a *RelayerAPI) forceRelay(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var wire rpcutil.TokenTransferRequest
	if err := decodeArg(params, 0, &wire); err != nil {
		return nil, err
	}
	unverified, err := wire.ToDomain()
	if err != nil {
		return nil, err
	}
	signed, err := a.Scheduler.ForceRelay(ctx, unverified)
	if err != nil {
		return nil, err
	}
	if signed == nil {
		return nil, nil
	}
	return signed.Hash(), nil
}
