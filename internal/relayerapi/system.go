package relayerapi

import (
	"context"
	"encoding/json"

	"github.com/fstnetwork/relayer/core/machineservice"
	"github.com/fstnetwork/relayer/core/pool"
)

// SystemAPI implements the system_* namespace: coarse process status.
type SystemAPI struct {
	Pool      *pool.Pool
	Scheduler *machineservice.Service
}

// Register wires every system_* method into s.
func (a *SystemAPI) Register(s *Server) {
	s.Register("system_status", a.status)
}

// SystemStatus is the result of system_status.
type SystemStatus struct {
	Pool         pool.Status `json:"pool"`
	RelayerCount int         `json:"relayerCount"`
}

func (a *SystemAPI) status(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return SystemStatus{
		Pool:         a.Pool.Status(),
		RelayerCount: a.Scheduler.RelayerCount(),
	}, nil
}
