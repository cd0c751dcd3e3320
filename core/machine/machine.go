// Package machine implements the per-relayer broadcast state machine: one
// Machine owns exactly one relayer account's in-flight collation, stepping
// Ready -> Preparing -> GasEstimating -> TxBroadcasting -> TxExecuting ->
// Ready on each Poll.
package machine

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/fstnetwork/relayer/core/chainmonitor"
	"github.com/fstnetwork/relayer/core/chainservice"
	"github.com/fstnetwork/relayer/core/collation"
	"github.com/fstnetwork/relayer/core/pool"
	"github.com/fstnetwork/relayer/core/types"
)

// ChainAdapter is the narrow chain capability a Machine needs, separate
// from the pool's own GasEstimator and the monitor's own ChainPoller.
type ChainAdapter interface {
	StateOf(ctx context.Context, addr common.Address, currency chainservice.Currency) (chainservice.AccountState, error)
	BlockGasLimit(ctx context.Context, block chainservice.BlockID) (*uint256.Int, error)
	EstimateGas(ctx context.Context, est chainservice.GasEstimation) (*uint256.Int, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) (common.Hash, error)
}

// GasPricer supplies the gas price a Machine signs its transactions with
// (component C7).
type GasPricer interface {
	GasPrice(ctx context.Context) (*uint256.Int, error)
}

func tagPtr(t types.PoolRequestTag) *types.PoolRequestTag { return &t }

// adjustGasAmount turns a raw estimate into the gas limit a transaction is
// actually signed with: a 10% margin plus a fixed 50,000 buffer, capped at
// the block gas limit.
func adjustGasAmount(estimated, blockGasLimit *uint256.Int) *uint256.Int {
	margin := new(uint256.Int).Div(estimated, uint256.NewInt(10))
	adjusted := new(uint256.Int).Add(estimated, margin)
	adjusted.Add(adjusted, uint256.NewInt(50_000))
	if blockGasLimit != nil && !blockGasLimit.IsZero() && adjusted.Cmp(blockGasLimit) > 0 {
		return new(uint256.Int).Set(blockGasLimit)
	}
	return adjusted
}

// Machine drives one relayer account through its broadcast cycle. All
// exported methods are safe for concurrent use; machineservice calls Poll
// from one goroutine per tick but reads status from others.
type Machine struct {
	mu sync.Mutex

	address common.Address
	prv     *ecdsa.PrivateKey

	chainID       *big.Int
	dispatcher    common.Address
	confirmations uint64
	dryRun        bool

	pool      *pool.Pool
	chain     ChainAdapter
	pricer    GasPricer
	monitor   *chainmonitor.Service
	converter collation.RequestConverter

	state         State
	seedRequest   *types.SignedRequest
	collation     *collation.Collation
	blockGasLimit *uint256.Int
	broadcastHash common.Hash

	watcherID chainmonitor.WatcherID
	responses chan chainmonitor.Response
	sub       event.Subscription
}

// New builds a Ready machine for address, registering it with monitor so
// it has a standing subscription channel for the whole of its lifetime.
func New(address common.Address, prv *ecdsa.PrivateKey, chainID *big.Int, p *pool.Pool, chain ChainAdapter, pricer GasPricer, monitor *chainmonitor.Service) *Machine {
	id, ch, sub := monitor.RegisterChan()
	return &Machine{
		address:   address,
		prv:       prv,
		chainID:   chainID,
		pool:      p,
		chain:     chain,
		pricer:    pricer,
		monitor:   monitor,
		state:     StateReady,
		watcherID: id,
		responses: ch,
		sub:       sub,
	}
}

// Address returns the relayer account this machine drives.
func (m *Machine) Address() common.Address { return m.address }

// State reports the machine's current step.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsIdle reports whether the machine is Ready and so can accept a
// force_relay SingleRequest.
func (m *Machine) IsIdle() bool { return m.State() == StateReady }

// SetDispatcher updates the dispatcher contract address used to batch
// multi-token collations.
func (m *Machine) SetDispatcher(addr common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatcher = addr
}

// SetChainID updates the chain id used to sign transactions.
func (m *Machine) SetChainID(id *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chainID = id
}

// SetConfirmationCount updates how many confirmations TxExecuting waits
// for before considering a broadcast transaction final.
func (m *Machine) SetConfirmationCount(n uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations = n
}

// SetDryRun toggles dry-run mode: a gas-estimated collation is dropped and
// the machine resets straight to Ready instead of ever entering
// TxBroadcasting.
func (m *Machine) SetDryRun(dryRun bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dryRun = dryRun
}

// Close releases the machine's chain-monitor subscription. Call this when
// removing a relayer (remove_relayer).
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sub.Unsubscribe()
}

// Poll advances the machine exactly one step. Any error resets the
// machine to Ready, returning requests it was holding back to the pool's
// Ready tag, before being returned to the caller.
func (m *Machine) Poll(ctx context.Context, ev Event) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.step(ctx, ev)
	if err != nil {
		m.resetLocked()
		return StateReady, err
	}
	m.state = next
	return next, nil
}

func (m *Machine) step(ctx context.Context, ev Event) (State, error) {
	switch m.state {
	case StateReady:
		return m.stepReady(ev)
	case StatePreparing:
		return m.stepPreparing(ctx)
	case StateGasEstimating:
		return m.stepGasEstimating(ctx)
	case StateTxBroadcasting:
		return m.stepTxBroadcasting(ctx)
	case StateTxExecuting:
		return m.stepTxExecuting()
	default:
		return StateReady, nil
	}
}

func (m *Machine) stepReady(ev Event) (State, error) {
	switch ev.Kind {
	case EventSingleRequest:
		if ev.Request == nil {
			return StateReady, ErrMissingRequest
		}
		m.seedRequest = ev.Request
		return StatePreparing, nil
	case EventTimeout, EventThreshold:
		return StatePreparing, nil
	default:
		return StateReady, nil
	}
}

// stepPreparing queries the three pieces of chain state a collation needs
// (account nonce, block gas limit, gas price) in parallel, pulls as many
// Ready-tagged pool requests as the block gas limit allows, and builds the
// unsigned-then-fake-signed transaction.
func (m *Machine) stepPreparing(ctx context.Context) (State, error) {
	type stateResult struct {
		state chainservice.AccountState
		err   error
	}
	type limitResult struct {
		limit *uint256.Int
		err   error
	}
	type priceResult struct {
		price *uint256.Int
		err   error
	}

	stateCh := make(chan stateResult, 1)
	limitCh := make(chan limitResult, 1)
	priceCh := make(chan priceResult, 1)

	go func() {
		st, err := m.chain.StateOf(ctx, m.address, chainservice.EtherCurrency())
		stateCh <- stateResult{st, err}
	}()
	go func() {
		limit, err := m.chain.BlockGasLimit(ctx, chainservice.Pending())
		limitCh <- limitResult{limit, err}
	}()
	go func() {
		price, err := m.pricer.GasPrice(ctx)
		priceCh <- priceResult{price, err}
	}()

	sr, lr, pr := <-stateCh, <-limitCh, <-priceCh
	if sr.err != nil {
		return StateReady, sr.err
	}
	if lr.err != nil {
		return StateReady, lr.err
	}
	if pr.err != nil {
		return StateReady, pr.err
	}
	m.blockGasLimit = lr.limit

	c := collation.New()
	if m.seedRequest != nil {
		if err := c.Add(m.seedRequest); err != nil {
			return StateReady, err
		}
	}

	ready := m.pool.ReadyRequests(tagPtr(types.TagProcessing), pool.ReadyRequestsOptions{
		GasLimit:      lr.limit,
		RelayerFilter: m.address,
	})
	for _, vr := range ready {
		if c.Contains(vr.Hash()) {
			continue
		}
		if err := c.Add(vr.SignedRequest); err != nil {
			log.Warn("machine: dropping duplicate ready request", "hash", vr.Hash(), "err", err)
		}
	}

	if c.Empty() {
		return StateReady, nil
	}

	if err := c.UpdateUnestimated(m.dispatcher, sr.state.Nonce, pr.price, uint256.NewInt(0), m.converter); err != nil {
		return StateReady, err
	}
	if err := c.FakeClose(m.prv, m.chainID); err != nil {
		return StateReady, err
	}

	m.collation = c
	m.seedRequest = nil
	return StateGasEstimating, nil
}

func (m *Machine) stepGasEstimating(ctx context.Context) (State, error) {
	estimated, err := m.chain.EstimateGas(ctx, chainservice.GasEstimation{
		Kind:        chainservice.EstimateTransaction,
		Transaction: m.collation.SignedTx(),
	})
	if err != nil {
		return StateReady, err
	}
	gas := adjustGasAmount(estimated, m.blockGasLimit)
	if err := m.collation.CloseWithGas(m.prv, m.chainID, gas); err != nil {
		return StateReady, err
	}

	if m.dryRun {
		log.Info("machine: dry run, dropping collation", "relayer", m.address, "requests", len(m.collation.Requests()))
		m.pool.MarkByHash(m.collation.Hashes(), types.TagReady)
		m.collation = nil
		return StateReady, nil
	}

	return StateTxBroadcasting, nil
}

func (m *Machine) stepTxBroadcasting(ctx context.Context) (State, error) {
	hash, err := m.chain.SendTransaction(ctx, m.collation.SignedTx())
	if err != nil {
		return StateReady, err
	}
	m.broadcastHash = hash
	if err := m.monitor.Subscribe(m.watcherID, chainmonitor.TransactionExecuted(hash, m.confirmations)); err != nil {
		return StateReady, err
	}
	return StateTxExecuting, nil
}

func (m *Machine) stepTxExecuting() (State, error) {
	select {
	case resp := <-m.responses:
		if resp.Kind != chainmonitor.TaskTransactionExecuted || resp.TxHash != m.broadcastHash {
			return StateTxExecuting, nil
		}
		m.pool.MarkByHash(m.collation.Hashes(), types.TagExecuted)
		m.collation = nil
		return StateReady, nil
	default:
		return StateTxExecuting, nil
	}
}

// resetLocked drops the in-flight collation, returning its requests to the
// pool's Ready tag, and unsubscribes any outstanding monitor task.
func (m *Machine) resetLocked() {
	if m.collation != nil {
		reqs := m.collation.Reopen()
		hashes := make([]common.Hash, len(reqs))
		for i, r := range reqs {
			hashes[i] = r.Hash()
		}
		m.pool.MarkByHash(hashes, types.TagReady)
	}
	if m.broadcastHash != (common.Hash{}) {
		_ = m.monitor.Unsubscribe(m.watcherID, chainmonitor.TransactionExecuted(m.broadcastHash, m.confirmations))
		m.broadcastHash = common.Hash{}
	}
	m.seedRequest = nil
	m.collation = nil
	m.state = StateReady
}
