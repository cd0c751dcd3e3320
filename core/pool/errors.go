package pool

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/fstnetwork/relayer/core/types"
)

var (
	// ErrAlreadyImported is returned when a request with the same hash is
	// already present in the pool.
	ErrAlreadyImported = errors.New("already imported")
	// ErrNotSupportedToken is returned when the token filter denies the
	// request's token.
	ErrNotSupportedToken = errors.New("token not supported")
	// ErrGasEstimationFailed is returned when the chain service cannot
	// estimate gas for the request.
	ErrGasEstimationFailed = errors.New("gas estimation failed")
	// ErrLimitReached is returned when the pool's total capacity would be
	// exceeded by admitting the request.
	ErrLimitReached = errors.New("pool limit reached")
	// ErrMemoryLimitReached is returned when admitting the request would
	// exceed the pool's configured memory ceiling.
	ErrMemoryLimitReached = errors.New("pool memory limit reached")
	// ErrUnknownSender is a warning-level internal error: an operation
	// referenced a sender with no queue in the pool.
	ErrUnknownSender = errors.New("unknown sender queue")
)

// TooCheapToReplace is returned when a same-sender same-nonce replacement
// does not beat the existing request under the active selector.
type TooCheapToReplace struct {
	Old, New *types.VerifiedRequest
}

func (e *TooCheapToReplace) Error() string {
	return fmt.Sprintf("too cheap to replace %s with %s", e.Old.Hash(), e.New.Hash())
}

// TooCheapToEnter is returned when a sender queue is full and the
// incoming request sorts after its last entry under the selector's order;
// scores are not compared. MinScore carries the last entry's score.
type TooCheapToEnter struct {
	Hash     common.Hash
	MinScore *uint256.Int
}

func (e *TooCheapToEnter) Error() string {
	return fmt.Sprintf("too cheap to enter: %s below min score %s", e.Hash, e.MinScore)
}

// TooCheap describes an insertion at an occupied slot rejected by the
// selector's Choose decision. Import reports that case as
// TooCheapToReplace; nothing in this package returns TooCheap.
type TooCheap struct {
	Old, New *types.VerifiedRequest
}

func (e *TooCheap) Error() string {
	return fmt.Sprintf("too cheap: %s rejected in favor of %s", e.New.Hash(), e.Old.Hash())
}
