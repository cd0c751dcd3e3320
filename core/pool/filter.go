package pool

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/fstnetwork/relayer/core/types"
)

// TokenFilter decides whether a token is accepted for admission.
type TokenFilter interface {
	IsDenied(token common.Address) bool
}

// AllowAllFilter accepts every token; it is the default when no explicit
// supported-token list is configured.
type AllowAllFilter struct{}

func (AllowAllFilter) IsDenied(common.Address) bool { return false }

// AllowListFilter denies any token not present in the configured set.
type AllowListFilter struct {
	allowed map[common.Address]bool
}

// NewAllowListFilter builds a filter that denies any token outside tokens.
func NewAllowListFilter(tokens []common.Address) *AllowListFilter {
	m := make(map[common.Address]bool, len(tokens))
	for _, t := range tokens {
		m[t] = true
	}
	return &AllowListFilter{allowed: m}
}

func (f *AllowListFilter) IsDenied(token common.Address) bool {
	return !f.allowed[token]
}

// Set replaces the allow-list contents.
func (f *AllowListFilter) Set(tokens []common.Address) {
	m := make(map[common.Address]bool, len(tokens))
	for _, t := range tokens {
		m[t] = true
	}
	f.allowed = m
}

// ReadyState classifies a pooled request against external, possibly
// time-varying conditions (e.g. sender balance) for culling.
type ReadyState uint8

const (
	Ready ReadyState = iota
	Stale
	Future
)

// ReadyChecker evaluates a request's ReadyState. The default checker used
// when none is configured always returns Ready.
type ReadyChecker interface {
	Check(req *types.VerifiedRequest) ReadyState
}

// AlwaysReadyChecker is the default hook: every request is Ready.
type AlwaysReadyChecker struct{}

func (AlwaysReadyChecker) Check(*types.VerifiedRequest) ReadyState { return Ready }
