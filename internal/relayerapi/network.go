package relayerapi

import (
	"context"
	"encoding/json"

	"github.com/fstnetwork/relayer/core/network"
)

// NetworkAPI implements the network_* namespace, backed by the stub
// core/network.Service.
type NetworkAPI struct {
	Network *network.Service
}

// Register wires every network_* method into s.
func (a *NetworkAPI) Register(s *Server) {
	s.Register("network_version", a.version)
	s.Register("network_peerCount", a.peerCount)
	s.Register("network_isListening", a.isListening)
}

func (a *NetworkAPI) version(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return a.Network.Version(), nil
}

func (a *NetworkAPI) peerCount(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return a.Network.PeerCount(), nil
}

func (a *NetworkAPI) isListening(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return a.Network.Listening(), nil
}
