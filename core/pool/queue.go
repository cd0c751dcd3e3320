package pool

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/fstnetwork/relayer/core/types"
)

// AddOutcomeKind classifies the result of SenderQueue.Add.
type AddOutcomeKind uint8

const (
	AddOK AddOutcomeKind = iota
	AddPushedOut
	AddReplaced
	AddTooCheap
	AddTooCheapToEnter
)

// AddOutcome reports what happened to a SenderQueue.Add call, including
// the displaced request (if any) for pool bookkeeping.
type AddOutcome struct {
	Kind     AddOutcomeKind
	Old, New *types.VerifiedRequest
	MinScore *uint256.Int
}

// SenderQueue holds one sender's requests, kept sorted by the active
// selector, at most maxPerSender entries, with a parallel score array.
type SenderQueue struct {
	selector     Selector
	maxPerSender int
	entries      []*types.VerifiedRequest
	scores       []*uint256.Int
}

// NewSenderQueue constructs an empty queue bound to selector.
func NewSenderQueue(selector Selector, maxPerSender int) *SenderQueue {
	return &SenderQueue{selector: selector, maxPerSender: maxPerSender}
}

// Len reports the number of requests currently queued.
func (q *SenderQueue) Len() int { return len(q.entries) }

// Best returns the first (highest-priority) entry, or nil if empty.
func (q *SenderQueue) Best() *types.VerifiedRequest {
	if len(q.entries) == 0 {
		return nil
	}
	return q.entries[0]
}

// Worst returns the last (lowest-priority) entry, or nil if empty.
func (q *SenderQueue) Worst() *types.VerifiedRequest {
	if len(q.entries) == 0 {
		return nil
	}
	return q.entries[len(q.entries)-1]
}

// MinScore returns the worst entry's score, or nil if empty.
func (q *SenderQueue) MinScore() *uint256.Int {
	if len(q.scores) == 0 {
		return nil
	}
	return q.scores[len(q.scores)-1]
}

// Entries returns the queue contents in order (callers must not mutate the
// returned slice).
func (q *SenderQueue) Entries() []*types.VerifiedRequest { return q.entries }

// After returns the entry immediately following the one at index idx, or
// nil if idx is the last entry or out of range. Used by the pool's global
// best-requests traversal to pull in the next candidate from a sender
// whose best entry was just consumed.
func (q *SenderQueue) After(idx int) *types.VerifiedRequest {
	if idx+1 >= len(q.entries) {
		return nil
	}
	return q.entries[idx+1]
}

// IndexOf locates an entry by hash via linear scan (sender queues are
// small and bounded by maxPerSender).
func (q *SenderQueue) IndexOf(hash common.Hash) int {
	for i, e := range q.entries {
		if e.Hash() == hash {
			return i
		}
	}
	return -1
}

func (q *SenderQueue) searchIndex(incoming *types.VerifiedRequest) int {
	return sort.Search(len(q.entries), func(i int) bool {
		return q.selector.Compare(q.entries[i], incoming) >= 0
	})
}

// Add inserts incoming into the queue per the selector's admission and
// replacement policy.
func (q *SenderQueue) Add(incoming *types.VerifiedRequest) AddOutcome {
	idx := q.searchIndex(incoming)

	if idx == len(q.entries) {
		if len(q.entries) >= q.maxPerSender && !q.selector.ShouldIgnoreSenderLimit(incoming) {
			return AddOutcome{Kind: AddTooCheapToEnter, New: incoming, MinScore: q.MinScore()}
		}
		q.entries = append(q.entries, incoming)
		q.scores = append(q.scores, q.selector.Score(incoming))
		q.selector.OnChange(q.entries, q.scores, Change{Kind: ChangeInsertedAt, Index: idx})
		return AddOutcome{Kind: AddOK, New: incoming}
	}

	existing := q.entries[idx]
	switch q.selector.Choose(existing, incoming) {
	case ReplaceOld:
		q.entries[idx] = incoming
		q.scores[idx] = q.selector.Score(incoming)
		q.selector.OnChange(q.entries, q.scores, Change{Kind: ChangeReplacedAt, Index: idx})
		return AddOutcome{Kind: AddReplaced, Old: existing, New: incoming}
	case InsertNew:
		q.entries = append(q.entries, nil)
		copy(q.entries[idx+1:], q.entries[idx:])
		q.entries[idx] = incoming
		q.scores = append(q.scores, nil)
		copy(q.scores[idx+1:], q.scores[idx:])
		q.scores[idx] = q.selector.Score(incoming)
		q.selector.OnChange(q.entries, q.scores, Change{Kind: ChangeInsertedAt, Index: idx})

		if len(q.entries) > q.maxPerSender {
			last := len(q.entries) - 1
			pushedOut := q.entries[last]
			q.entries = q.entries[:last]
			q.scores = q.scores[:last]
			q.selector.OnChange(q.entries, q.scores, Change{Kind: ChangeRemovedAt, Index: last})
			return AddOutcome{Kind: AddPushedOut, Old: pushedOut, New: incoming}
		}
		return AddOutcome{Kind: AddOK, New: incoming}
	default: // RejectNew
		return AddOutcome{Kind: AddTooCheap, Old: existing, New: incoming}
	}
}

// RemoveAt removes the entry at idx, notifying the selector.
func (q *SenderQueue) RemoveAt(idx int) *types.VerifiedRequest {
	if idx < 0 || idx >= len(q.entries) {
		return nil
	}
	removed := q.entries[idx]
	q.entries = append(q.entries[:idx], q.entries[idx+1:]...)
	q.scores = append(q.scores[:idx], q.scores[idx+1:]...)
	q.selector.OnChange(q.entries, q.scores, Change{Kind: ChangeRemovedAt, Index: idx})
	return removed
}

// CullFront pops contiguous Stale entries from the front of the queue
// according to checker, stopping at the first Ready/Future entry.
func (q *SenderQueue) CullFront(checker ReadyChecker) []*types.VerifiedRequest {
	n := 0
	for n < len(q.entries) && checker.Check(q.entries[n]) == Stale {
		n++
	}
	if n == 0 {
		return nil
	}
	culled := append([]*types.VerifiedRequest(nil), q.entries[:n]...)
	q.entries = q.entries[n:]
	q.scores = q.scores[n:]
	q.selector.OnChange(q.entries, q.scores, Change{Kind: ChangeCulled, Count: n})
	return culled
}
