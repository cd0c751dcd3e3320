package pool

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fstnetwork/relayer/core/types"
)

// orderedSet keeps one entry per sender, sorted by a Selector's
// CrossSenderLess with insertion-id as the final tiebreaker, so the pool's
// global best/worst-requests sets can be maintained with O(log n) lookups.
type orderedSet struct {
	selector Selector
	entries  []*types.VerifiedRequest
}

func newOrderedSet(selector Selector) *orderedSet {
	return &orderedSet{selector: selector}
}

func (s *orderedSet) less(a, b *types.VerifiedRequest) bool {
	if a.Sender == b.Sender {
		return false
	}
	if s.selector.CrossSenderLess(a, b) {
		return true
	}
	if s.selector.CrossSenderLess(b, a) {
		return false
	}
	return a.InsertionID < b.InsertionID
}

func (s *orderedSet) search(req *types.VerifiedRequest) int {
	return sort.Search(len(s.entries), func(i int) bool {
		return !s.less(s.entries[i], req)
	})
}

// Upsert inserts or replaces the entry for req.Sender.
func (s *orderedSet) Upsert(sender common.Address, req *types.VerifiedRequest) {
	s.Remove(sender)
	idx := s.search(req)
	s.entries = append(s.entries, nil)
	copy(s.entries[idx+1:], s.entries[idx:])
	s.entries[idx] = req
}

// Remove deletes the entry for sender, if present.
func (s *orderedSet) Remove(sender common.Address) {
	for i, e := range s.entries {
		if e.Sender == sender {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// First returns the best-ranked entry, or nil if the set is empty.
func (s *orderedSet) First() *types.VerifiedRequest {
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[0]
}

// All returns a defensive copy of the set's contents in rank order.
func (s *orderedSet) All() []*types.VerifiedRequest {
	out := make([]*types.VerifiedRequest, len(s.entries))
	copy(out, s.entries)
	return out
}
