package relayerapi

import (
	"context"
	"encoding/json"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fstnetwork/relayer/core/chainservice"
	"github.com/fstnetwork/relayer/core/machineservice"
)

// AdminAPI implements the admin_* namespace: relayer lifecycle, scheduler
// tuning, and chain-node endpoint management.
type AdminAPI struct {
	Scheduler *machineservice.Service
	Endpoints *chainservice.Group
}

// Register wires every admin_* method into s.
func (a *AdminAPI) Register(s *Server) {
	s.Register("admin_addRelayer", a.addRelayer)
	s.Register("admin_removeRelayer", a.removeRelayer)
	s.Register("admin_setInterval", a.setInterval)
	s.Register("admin_setDispatcherAddress", a.setDispatcherAddress)
	s.Register("admin_setChainId", a.setChainID)
	s.Register("admin_setConfirmationCount", a.setConfirmationCount)
	s.Register("admin_addEthereumEndpoint", a.addEthereumEndpoint)
	s.Register("admin_removeEthereumEndpoint", a.removeEthereumEndpoint)
	s.Register("admin_ethereumEndpoints", a.ethereumEndpoints)
}

// addRelayer decrypts a keystore JSON keyfile with the given passphrase
// and registers the resulting account with the scheduler.
func (a *AdminAPI) addRelayer(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var keyfileJSON, passphrase string
	if err := decodeArg(params, 0, &keyfileJSON); err != nil {
		return nil, err
	}
	if err := decodeArg(params, 1, &passphrase); err != nil {
		return nil, err
	}
	key, err := keystore.DecryptKey([]byte(keyfileJSON), passphrase)
	if err != nil {
		return nil, err
	}
	a.Scheduler.AddRelayer(key.Address, key.PrivateKey)
	return key.Address, nil
}

func (a *AdminAPI) removeRelayer(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var addr common.Address
	if err := decodeArg(params, 0, &addr); err != nil {
		return nil, err
	}
	if err := a.Scheduler.RemoveRelayer(addr); err != nil {
		return nil, err
	}
	return true, nil
}

func (a *AdminAPI) setInterval(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var seconds uint64
	if err := decodeArg(params, 0, &seconds); err != nil {
		return nil, err
	}
	if err := a.Scheduler.SetInterval(time.Duration(seconds) * time.Second); err != nil {
		return nil, err
	}
	return true, nil
}

func (a *AdminAPI) setDispatcherAddress(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var addr common.Address
	if err := decodeArg(params, 0, &addr); err != nil {
		return nil, err
	}
	a.Scheduler.SetDispatcherAddress(addr)
	return true, nil
}

func (a *AdminAPI) setChainID(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var id uint64
	if err := decodeArg(params, 0, &id); err != nil {
		return nil, err
	}
	a.Scheduler.SetChainID(new(big.Int).SetUint64(id))
	return true, nil
}

func (a *AdminAPI) setConfirmationCount(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var n uint64
	if err := decodeArg(params, 0, &n); err != nil {
		return nil, err
	}
	a.Scheduler.SetConfirmationCount(n)
	return true, nil
}

func (a *AdminAPI) addEthereumEndpoint(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var url string
	if err := decodeArg(params, 0, &url); err != nil {
		return nil, err
	}
	if err := a.Endpoints.AddEndpoint(ctx, url); err != nil {
		return nil, err
	}
	return true, nil
}

func (a *AdminAPI) removeEthereumEndpoint(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var url string
	if err := decodeArg(params, 0, &url); err != nil {
		return nil, err
	}
	if err := a.Endpoints.RemoveEndpoint(url); err != nil {
		return nil, err
	}
	return true, nil
}

func (a *AdminAPI) ethereumEndpoints(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return a.Endpoints.Endpoints(), nil
}
