// Package machineservice implements the multi-relayer scheduler: one
// time.Ticker driving every registered relayer machine's Poll, plus the
// add/remove/force-relay lifecycle operations exposed over the
// admin/relayer JSON-RPC surface.
package machineservice

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/fstnetwork/relayer/core/chainmonitor"
	"github.com/fstnetwork/relayer/core/machine"
	"github.com/fstnetwork/relayer/core/pool"
	"github.com/fstnetwork/relayer/core/types"
)

// Service owns every relayer's Machine and drives them on a shared tick.
type Service struct {
	mu sync.Mutex

	pool    *pool.Pool
	chain   machine.ChainAdapter
	pricer  machine.GasPricer
	monitor *chainmonitor.Service

	dispatcher    common.Address
	chainID       *big.Int
	confirmations uint64
	dryRun        bool

	machines map[common.Address]*machine.Machine
	retired  map[common.Address]bool

	interval time.Duration
	ticker   *time.Ticker
	cancel   context.CancelFunc
	running  bool
}

// New builds an empty scheduler. Relayers are added with AddRelayer.
func New(p *pool.Pool, chain machine.ChainAdapter, pricer machine.GasPricer, monitor *chainmonitor.Service, interval time.Duration) *Service {
	return &Service{
		pool:     p,
		chain:    chain,
		pricer:   pricer,
		monitor:  monitor,
		chainID:  big.NewInt(1),
		interval: interval,
		machines: map[common.Address]*machine.Machine{},
		retired:  map[common.Address]bool{},
	}
}

// AddRelayer registers addr, building a fresh Ready machine for it and
// admitting it to the pool's set of known private-mode relayers. Adding an
// address already registered is a no-op.
func (s *Service) AddRelayer(addr common.Address, prv *ecdsa.PrivateKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.retired, addr)
	if _, ok := s.machines[addr]; ok {
		return
	}
	m := machine.New(addr, prv, s.chainID, s.pool, s.chain, s.pricer, s.monitor)
	m.SetDispatcher(s.dispatcher)
	m.SetConfirmationCount(s.confirmations)
	m.SetDryRun(s.dryRun)
	s.machines[addr] = m
	s.refreshPoolRelayersLocked()
}

// RemoveRelayer retires addr: its machine is closed (chain-monitor
// subscription released) and it is removed from the active set. A
// retired address is remembered so a stray in-flight Poll for it is
// dropped rather than resurrecting the machine.
func (s *Service) RemoveRelayer(addr common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.machines[addr]
	if !ok {
		return ErrUnknownRelayer
	}
	m.Close()
	delete(s.machines, addr)
	s.retired[addr] = true
	s.refreshPoolRelayersLocked()
	return nil
}

func (s *Service) refreshPoolRelayersLocked() {
	relayers := make([]common.Address, 0, len(s.machines))
	for addr := range s.machines {
		relayers = append(relayers, addr)
	}
	s.pool.SetRelayers(relayers)
}

// SetInterval changes the scheduler's tick period. Zero is rejected: it
// would spin the ticker goroutine.
func (s *Service) SetInterval(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidIntervalValue
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
	if s.running {
		s.ticker.Reset(d)
	}
	return nil
}

// SetDispatcherAddress propagates the dispatcher contract address to the
// pool and to every registered machine.
func (s *Service) SetDispatcherAddress(addr common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatcher = addr
	s.pool.SetDispatcher(addr)
	for _, m := range s.machines {
		m.SetDispatcher(addr)
	}
}

// SetChainID propagates the signing chain id to every registered machine.
func (s *Service) SetChainID(id *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chainID = id
	for _, m := range s.machines {
		m.SetChainID(id)
	}
}

// SetConfirmationCount propagates the confirmation depth every machine
// waits for before considering a broadcast transaction final.
func (s *Service) SetConfirmationCount(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmations = n
	for _, m := range s.machines {
		m.SetConfirmationCount(n)
	}
}

// SetDryRun propagates dry-run mode to every registered machine: a dry-run
// machine builds and gas-estimates its collation, then drops it and goes
// from GasEstimating straight back to Ready, never entering TxBroadcasting.
func (s *Service) SetDryRun(dryRun bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dryRun = dryRun
	for _, m := range s.machines {
		m.SetDryRun(dryRun)
	}
}

// ForceRelay feeds req directly to an idle machine, bypassing the pool's
// own admission queue, when one is available. If every machine is busy,
// it falls back to ordinary pool admission: the request is picked up on
// a later tick like any other.
func (s *Service) ForceRelay(ctx context.Context, unverified *types.UnverifiedRequest) (*types.SignedRequest, error) {
	signed, err := unverified.Recover()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	var idle *machine.Machine
	for _, m := range s.machines {
		if m.IsIdle() {
			idle = m
			break
		}
	}
	s.mu.Unlock()

	if idle != nil {
		if _, err := idle.Poll(ctx, machine.SingleRequestEvent(signed)); err != nil {
			return nil, err
		}
		return signed, nil
	}
	return s.pool.Import(ctx, unverified)
}

// Tick advances every registered machine by one step: idle machines are
// only sent a Timeout if the pool currently holds Ready-tagged requests,
// avoiding pointless Preparing round-trips on an empty pool; busy
// machines always advance. Executed requests are reaped from the pool
// after every tick.
func (s *Service) Tick(ctx context.Context) {
	s.mu.Lock()
	machines := make([]*machine.Machine, 0, len(s.machines))
	for _, m := range s.machines {
		machines = append(machines, m)
	}
	s.mu.Unlock()

	hasReady := s.pool.CountByTag(types.TagReady) > 0
	for _, m := range machines {
		var ev machine.Event
		if m.IsIdle() {
			if !hasReady {
				continue
			}
			ev = machine.TimeoutEvent()
		} else {
			ev = machine.NullEvent()
		}
		if _, err := m.Poll(ctx, ev); err != nil {
			log.Warn("machineservice: relayer poll failed", "relayer", m.Address(), "err", err)
		}
	}

	s.pool.RemoveByTag(types.TagExecuted)
}

// Start launches the ticker-driven poll loop in a background goroutine.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.ticker = time.NewTicker(s.interval)
	ticker := s.ticker
	s.mu.Unlock()

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.Tick(runCtx)
			}
		}
	}()
	return nil
}

// Stop halts the poll loop started by Start.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	s.running = false
}

// RelayerCount reports how many relayer machines are currently registered.
func (s *Service) RelayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.machines)
}

// RelayerState reports the current State of addr's machine.
func (s *Service) RelayerState(addr common.Address) (machine.State, error) {
	s.mu.Lock()
	m, ok := s.machines[addr]
	s.mu.Unlock()
	if !ok {
		return 0, ErrUnknownRelayer
	}
	return m.State(), nil
}
