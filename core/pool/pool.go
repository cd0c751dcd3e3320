// Package pool implements the multi-sender, bounded priority request pool:
// admission, scoring, replacement, tagging and eviction of signed Token
// Transfer Requests.
package pool

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/fstnetwork/relayer/core/types"
)

// GasEstimator is the narrow chain capability the pool needs at admission
// time: a gas estimate for a signed transfer request, from the perspective
// of the given effective relayer. The estimate includes the transaction's
// intrinsic gas; Import subtracts types.IntrinsicGas to get the
// contract-side share it stores.
type GasEstimator interface {
	EstimateTokenTransferGas(ctx context.Context, relayer common.Address, req *types.SignedRequest) (*uint256.Int, error)
}

// ReadyRequestsOptions configures ReadyRequests / Pending traversals.
type ReadyRequestsOptions struct {
	GasLimit      *uint256.Int // 0 or nil means unlimited
	RelayerFilter common.Address
}

// Pool is the shared, mutex-guarded request pool. All suspending calls
// (gas estimation) happen outside the lock.
type Pool struct {
	mu sync.RWMutex

	selector Selector
	filter   TokenFilter
	params   Params
	gas      GasEstimator

	dispatcher common.Address
	relayers   map[common.Address]bool

	nextInsertionID uint64
	memUsage        uint64

	bySender map[common.Address]*SenderQueue
	byHash   map[common.Hash]*types.VerifiedRequest
	tags     map[common.Hash]types.PoolRequestTag

	best  *orderedSet
	worst *orderedSet
}

// New builds an empty pool bound to the given selector, filter, params and
// gas estimator.
func New(selector Selector, filter TokenFilter, params Params, gas GasEstimator) *Pool {
	if filter == nil {
		filter = AllowAllFilter{}
	}
	return &Pool{
		selector: selector,
		filter:   filter,
		params:   params,
		gas:      gas,
		relayers: map[common.Address]bool{},
		bySender: map[common.Address]*SenderQueue{},
		byHash:   map[common.Hash]*types.VerifiedRequest{},
		tags:     map[common.Hash]types.PoolRequestTag{},
		best:     newOrderedSet(selector),
		worst:    newOrderedSet(selector),
	}
}

func (p *Pool) isKnownRelayerOrDispatcherLocked(addr common.Address) bool {
	if addr == p.dispatcher {
		return true
	}
	return p.relayers[addr]
}

// Import verifies, gas-estimates and admits a request. It always returns
// a SignedRequest on success. A private-mode request bound to an unknown
// relayer is silently dropped (nil, nil): it is reserved for future peer
// gossip.
func (p *Pool) Import(ctx context.Context, unverified *types.UnverifiedRequest) (*types.SignedRequest, error) {
	signed, err := unverified.Recover()
	if err != nil {
		return nil, err
	}
	hash := signed.Hash()

	p.mu.Lock()
	if _, exists := p.byHash[hash]; exists {
		p.mu.Unlock()
		return nil, ErrAlreadyImported
	}
	if p.filter.IsDenied(signed.Request.Token) {
		p.mu.Unlock()
		return nil, ErrNotSupportedToken
	}
	effectiveRelayer := signed.Request.RelayerAddress
	if signed.Request.DelegateMode.IsPrivate() {
		if !p.isKnownRelayerOrDispatcherLocked(effectiveRelayer) {
			p.mu.Unlock()
			return nil, nil
		}
	}
	if p.params.MaxCount > 0 && len(p.byHash) >= p.params.MaxCount {
		p.mu.Unlock()
		return nil, ErrLimitReached
	}
	size := requestSize(signed)
	if p.params.MaxMemUsage > 0 && p.memUsage+size > p.params.MaxMemUsage {
		p.mu.Unlock()
		return nil, ErrMemoryLimitReached
	}
	insertionID := p.nextInsertionID
	p.nextInsertionID++
	p.mu.Unlock()

	estimated, err := p.gas.EstimateTokenTransferGas(ctx, effectiveRelayer, signed)
	if err != nil {
		return nil, ErrGasEstimationFailed
	}
	contractGas := new(uint256.Int).Sub(estimated, uint256.NewInt(types.IntrinsicGas))

	vr := &types.VerifiedRequest{SignedRequest: signed, InsertionID: insertionID, EstimatedGas: contractGas}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byHash[hash]; exists {
		return nil, ErrAlreadyImported
	}
	q, ok := p.bySender[signed.Sender]
	if !ok {
		q = NewSenderQueue(p.selector, p.params.MaxPerSender)
		p.bySender[signed.Sender] = q
	}
	outcome := q.Add(vr)
	switch outcome.Kind {
	case AddTooCheapToEnter:
		return nil, &TooCheapToEnter{Hash: hash, MinScore: outcome.MinScore}
	case AddTooCheap:
		return nil, &TooCheapToReplace{Old: outcome.Old, New: outcome.New}
	case AddReplaced:
		delete(p.byHash, outcome.Old.Hash())
		delete(p.tags, outcome.Old.Hash())
		p.memUsage -= requestSize(outcome.Old.SignedRequest)
	case AddPushedOut:
		delete(p.byHash, outcome.Old.Hash())
		delete(p.tags, outcome.Old.Hash())
		p.memUsage -= requestSize(outcome.Old.SignedRequest)
	}

	p.byHash[hash] = vr
	p.tags[hash] = types.TagReady
	p.memUsage += size
	p.refreshSenderExtremesLocked(signed.Sender, q)
	return signed, nil
}

// requestSize estimates a request's contribution to the pool's memory
// ceiling as its wire-packed byte length.
func requestSize(r *types.SignedRequest) uint64 {
	return uint64(len(r.Request.Pack()))
}

func (p *Pool) refreshSenderExtremesLocked(sender common.Address, q *SenderQueue) {
	if q.Len() == 0 {
		p.best.Remove(sender)
		p.worst.Remove(sender)
		delete(p.bySender, sender)
		return
	}
	p.best.Upsert(sender, q.Best())
	p.worst.Upsert(sender, q.Worst())
}

// ContainsHash reports whether hash is currently admitted.
func (p *Pool) ContainsHash(hash common.Hash) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.byHash[hash]
	return ok
}

// CountByTag returns the number of requests currently carrying tag.
func (p *Pool) CountByTag(tag types.PoolRequestTag) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, t := range p.tags {
		if t == tag {
			n++
		}
	}
	return n
}

// Tags returns a snapshot copy of the hash->tag map.
func (p *Pool) Tags() map[common.Hash]types.PoolRequestTag {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[common.Hash]types.PoolRequestTag, len(p.tags))
	for h, t := range p.tags {
		out[h] = t
	}
	return out
}

// AllRequests returns every admitted request, in no particular order.
func (p *Pool) AllRequests() []*types.VerifiedRequest {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*types.VerifiedRequest, 0, len(p.byHash))
	for _, r := range p.byHash {
		out = append(out, r)
	}
	return out
}

// MarkByHash retags the given hashes, skipping unknown hashes.
func (p *Pool) MarkByHash(hashes []common.Hash, tag types.PoolRequestTag) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range hashes {
		if _, ok := p.byHash[h]; ok {
			p.tags[h] = tag
		}
	}
}

// RemoveByHash deletes the given hashes from the pool entirely.
func (p *Pool) RemoveByHash(hashes []common.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, h := range hashes {
		p.removeLocked(h)
	}
}

func (p *Pool) removeLocked(hash common.Hash) {
	vr, ok := p.byHash[hash]
	if !ok {
		return
	}
	p.memUsage -= requestSize(vr.SignedRequest)
	q, ok := p.bySender[vr.Sender]
	if !ok {
		log.Warn("pool: removing request with no sender queue", "hash", hash)
		delete(p.byHash, hash)
		delete(p.tags, hash)
		return
	}
	idx := q.IndexOf(hash)
	if idx >= 0 {
		q.RemoveAt(idx)
	}
	delete(p.byHash, hash)
	delete(p.tags, hash)
	p.refreshSenderExtremesLocked(vr.Sender, q)
}

// RemoveByTag removes every request currently carrying tag, returning the
// removed hashes.
func (p *Pool) RemoveByTag(tag types.PoolRequestTag) []common.Hash {
	p.mu.Lock()
	defer p.mu.Unlock()
	var hashes []common.Hash
	for h, t := range p.tags {
		if t == tag {
			hashes = append(hashes, h)
		}
	}
	for _, h := range hashes {
		p.removeLocked(h)
	}
	return hashes
}

// RemoveByToken removes every request whose token is in tokens.
func (p *Pool) RemoveByToken(tokens []common.Address) []common.Hash {
	set := make(map[common.Address]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var hashes []common.Hash
	for h, vr := range p.byHash {
		if set[vr.Request.Token] {
			hashes = append(hashes, h)
		}
	}
	for _, h := range hashes {
		p.removeLocked(h)
	}
	return hashes
}

// RemoveBySender removes every request from the given senders.
func (p *Pool) RemoveBySender(senders []common.Address) []common.Hash {
	set := make(map[common.Address]bool, len(senders))
	for _, s := range senders {
		set[s] = true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var hashes []common.Hash
	for h, vr := range p.byHash {
		if set[vr.Sender] {
			hashes = append(hashes, h)
		}
	}
	for _, h := range hashes {
		p.removeLocked(h)
	}
	return hashes
}

// Clear empties the pool.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bySender = map[common.Address]*SenderQueue{}
	p.byHash = map[common.Hash]*types.VerifiedRequest{}
	p.tags = map[common.Hash]types.PoolRequestTag{}
	p.memUsage = 0
	p.best = newOrderedSet(p.selector)
	p.worst = newOrderedSet(p.selector)
}

// SetFilter replaces the token filter.
func (p *Pool) SetFilter(filter TokenFilter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if filter == nil {
		filter = AllowAllFilter{}
	}
	p.filter = filter
}

// SetParams replaces the pool's size bounds.
func (p *Pool) SetParams(params Params) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.params = params
	for _, q := range p.bySender {
		q.maxPerSender = params.MaxPerSender
	}
}

// SetRelayers replaces the set of addresses recognised as relayers, which
// gates admission of private-mode requests.
func (p *Pool) SetRelayers(relayers []common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := make(map[common.Address]bool, len(relayers))
	for _, r := range relayers {
		m[r] = true
	}
	p.relayers = m
}

// SetDispatcher sets the dispatcher contract address, which also qualifies
// as a valid bound relayer for private-mode requests.
func (p *Pool) SetDispatcher(addr common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatcher = addr
}

// TokenStatus reports, for each requested token, whether the filter
// currently allows it (true means allowed, false means denied).
func (p *Pool) TokenStatus(tokens []common.Address) map[common.Address]bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[common.Address]bool, len(tokens))
	for _, t := range tokens {
		out[t] = !p.filter.IsDenied(t)
	}
	return out
}

// Status is a coarse snapshot for diagnostics/RPC.
type Status struct {
	SenderCount  int
	RequestCount int
	MemUsage     uint64
	ByTag        map[types.PoolRequestTag]int
}

// Status summarises the pool's current occupancy.
func (p *Pool) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	byTag := map[types.PoolRequestTag]int{}
	for _, t := range p.tags {
		byTag[t]++
	}
	return Status{
		SenderCount:  len(p.bySender),
		MemUsage:     p.memUsage,
		RequestCount: len(p.byHash),
		ByTag:        byTag,
	}
}

// Pending drains the global best-requests traversal, refilling from each
// sender's next-best entry as its current best is yielded, producing a
// globally ordered, per-sender-monotone stream. Entries for which checker
// reports Stale are skipped (not consumed).
func (p *Pool) Pending(checker ReadyChecker) []*types.VerifiedRequest {
	if checker == nil {
		checker = AlwaysReadyChecker{}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pendingLocked(checker)
}

func (p *Pool) pendingLocked(checker ReadyChecker) []*types.VerifiedRequest {
	working := newOrderedSet(p.selector)
	working.entries = append([]*types.VerifiedRequest(nil), p.best.entries...)

	var out []*types.VerifiedRequest
	for len(working.entries) > 0 {
		best := working.entries[0]
		working.entries = working.entries[1:]

		if checker.Check(best) != Stale {
			out = append(out, best)
		}

		q := p.bySender[best.Sender]
		if q == nil {
			continue
		}
		idx := q.IndexOf(best.Hash())
		if idx < 0 {
			continue
		}
		if next := q.After(idx); next != nil {
			working.Upsert(best.Sender, next)
		}
	}
	return out
}

// UnorderedPending iterates all senders in arbitrary order, returning
// every currently-queued request regardless of tag.
func (p *Pool) UnorderedPending() []*types.VerifiedRequest {
	return p.AllRequests()
}

// ReadyRequests returns Ready-tagged requests in global best-order whose
// cumulative EstimatedGas does not exceed opts.GasLimit (nil/zero means
// unlimited). Private-mode requests are included only if bound to
// opts.RelayerFilter or the configured dispatcher. If newTag is non-nil,
// matching requests are atomically retagged before the call returns.
func (p *Pool) ReadyRequests(newTag *types.PoolRequestTag, opts ReadyRequestsOptions) []*types.VerifiedRequest {
	p.mu.Lock()
	defer p.mu.Unlock()

	ordered := p.pendingLocked(AlwaysReadyChecker{})

	var (
		out      []*types.VerifiedRequest
		sum      = new(uint256.Int)
		hasLimit = opts.GasLimit != nil && !opts.GasLimit.IsZero()
	)
	for _, vr := range ordered {
		if p.tags[vr.Hash()] != types.TagReady {
			continue
		}
		if vr.Request.DelegateMode.IsPrivate() {
			bound := vr.Request.RelayerAddress
			if bound != opts.RelayerFilter && bound != p.dispatcher {
				continue
			}
		}
		if hasLimit {
			next := new(uint256.Int).Add(sum, vr.EstimatedGas)
			if next.Cmp(opts.GasLimit) > 0 {
				continue
			}
			sum = next
		}
		out = append(out, vr)
	}

	if newTag != nil {
		for _, vr := range out {
			p.tags[vr.Hash()] = *newTag
		}
	}
	return out
}

// Cull runs CullFront over the given senders' queues using checker,
// returning the hashes removed.
func (p *Pool) Cull(senders []common.Address, checker ReadyChecker) []common.Hash {
	p.mu.Lock()
	defer p.mu.Unlock()
	var removed []common.Hash
	for _, s := range senders {
		q, ok := p.bySender[s]
		if !ok {
			continue
		}
		culled := q.CullFront(checker)
		for _, vr := range culled {
			h := vr.Hash()
			delete(p.byHash, h)
			delete(p.tags, h)
			p.memUsage -= requestSize(vr.SignedRequest)
			removed = append(removed, h)
		}
		p.refreshSenderExtremesLocked(s, q)
	}
	return removed
}
