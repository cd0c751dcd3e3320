package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/fstnetwork/relayer/core/types"
)

// ChangeKind classifies a structural mutation of a sender queue, so a
// selector can recompute scores affected by the change.
type ChangeKind uint8

const (
	ChangeInsertedAt ChangeKind = iota
	ChangeReplacedAt
	ChangeRemovedAt
	ChangeCulled
	ChangeEvent
)

// Change describes one structural mutation passed to Selector.OnChange.
type Change struct {
	Kind  ChangeKind
	Index int
	Count int
}

// ChooseAction is the selector's verdict when an incoming request lands on
// an already-occupied slot of a sender queue.
type ChooseAction uint8

const (
	InsertNew ChooseAction = iota
	ReplaceOld
	RejectNew
)

// Selector is the pluggable admission/ordering policy for a sender queue.
type Selector interface {
	// Compare orders two requests within one sender's queue.
	Compare(a, b *types.VerifiedRequest) int
	// Choose decides how an incoming request interacts with the request
	// already occupying its target slot.
	Choose(existing, incoming *types.VerifiedRequest) ChooseAction
	// ShouldIgnoreSenderLimit allows an incoming request to bypass the
	// per-sender queue depth cap (e.g. a privileged relayer-bound request).
	ShouldIgnoreSenderLimit(incoming *types.VerifiedRequest) bool
	// Score computes the parallel score array entry for req.
	Score(req *types.VerifiedRequest) *uint256.Int
	// CrossSenderLess orders two requests from different sender queues,
	// used by the pool's global best/worst traversal.
	CrossSenderLess(a, b *types.VerifiedRequest) bool
	// OnChange is invoked after every structural mutation of the queue so
	// the selector can recompute affected scores.
	OnChange(queue []*types.VerifiedRequest, scores []*uint256.Int, change Change)
}

// NonceAndFeeSelector is the baseline selector: orders a sender's queue by
// ascending nonce, replaces same-nonce entries only on strictly higher fee,
// and scores entries by fee.
type NonceAndFeeSelector struct{}

func (NonceAndFeeSelector) Compare(a, b *types.VerifiedRequest) int {
	return a.Request.Nonce.Cmp(b.Request.Nonce)
}

func (NonceAndFeeSelector) Choose(existing, incoming *types.VerifiedRequest) ChooseAction {
	if existing.Request.Nonce.Cmp(incoming.Request.Nonce) != 0 {
		return InsertNew
	}
	if incoming.Request.Fee.Cmp(existing.Request.Fee) > 0 {
		return ReplaceOld
	}
	return RejectNew
}

func (NonceAndFeeSelector) ShouldIgnoreSenderLimit(*types.VerifiedRequest) bool { return false }

func (NonceAndFeeSelector) Score(req *types.VerifiedRequest) *uint256.Int {
	return new(uint256.Int).Set(req.Request.Fee)
}

// CrossSenderLess ranks requests from different senders by
// (delegate_mode_priority, fee) lexicographically, preferring the earliest
// nonce for entries of the same sender (callers only invoke this across
// senders, so the nonce branch is unreachable in practice but kept for
// completeness against the source's documented rule).
func (s NonceAndFeeSelector) CrossSenderLess(a, b *types.VerifiedRequest) bool {
	if a.Sender == b.Sender {
		return a.Request.Nonce.Cmp(b.Request.Nonce) < 0
	}
	pa, pb := a.Request.DelegateMode.Priority(), b.Request.DelegateMode.Priority()
	if pa != pb {
		return pa > pb
	}
	return a.Request.Fee.Cmp(b.Request.Fee) > 0
}

func (NonceAndFeeSelector) OnChange([]*types.VerifiedRequest, []*uint256.Int, Change) {}

// TokenSelector layers a per-token priority weight on top of
// NonceAndFeeSelector: within a sender's queue, higher token priority sorts
// first and equal priorities fall back to nonce order; the score is the
// token priority alone. Same-priority, same-nonce replacement still needs a
// strictly higher fee, and cross-sender ordering is NonceAndFeeSelector's.
type TokenSelector struct {
	NonceAndFeeSelector
	priority map[common.Address]uint64
}

// NewTokenSelector builds a TokenSelector with the given per-token
// priorities (default weight 0 for tokens not present).
func NewTokenSelector(priority map[common.Address]uint64) *TokenSelector {
	if priority == nil {
		priority = map[common.Address]uint64{}
	}
	return &TokenSelector{priority: priority}
}

func (s *TokenSelector) tokenPriority(token common.Address) uint64 {
	return s.priority[token]
}

func (s *TokenSelector) Compare(a, b *types.VerifiedRequest) int {
	pa, pb := s.tokenPriority(a.Request.Token), s.tokenPriority(b.Request.Token)
	if pa != pb {
		if pa > pb {
			return -1
		}
		return 1
	}
	return s.NonceAndFeeSelector.Compare(a, b)
}

func (s *TokenSelector) Choose(existing, incoming *types.VerifiedRequest) ChooseAction {
	pe, pi := s.tokenPriority(existing.Request.Token), s.tokenPriority(incoming.Request.Token)
	if pe != pi {
		return InsertNew
	}
	return s.NonceAndFeeSelector.Choose(existing, incoming)
}

func (s *TokenSelector) Score(req *types.VerifiedRequest) *uint256.Int {
	return new(uint256.Int).SetUint64(s.tokenPriority(req.Request.Token))
}

// SetPriority updates a token's priority weight.
func (s *TokenSelector) SetPriority(token common.Address, weight uint64) {
	s.priority[token] = weight
}
