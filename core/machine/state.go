package machine

import "github.com/fstnetwork/relayer/core/types"

// State is a step of the per-relayer broadcast cycle:
// Ready -> Preparing -> GasEstimating -> TxBroadcasting ->
// TxExecuting -> Ready. Any error encountered mid-cycle resets the
// machine straight back to Ready.
type State uint8

const (
	StateReady State = iota
	StatePreparing
	StateGasEstimating
	StateTxBroadcasting
	StateTxExecuting
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StatePreparing:
		return "preparing"
	case StateGasEstimating:
		return "gas_estimating"
	case StateTxBroadcasting:
		return "tx_broadcasting"
	case StateTxExecuting:
		return "tx_executing"
	default:
		return "unknown"
	}
}

// EventKind is what prompts a Ready machine to leave Ready. States other
// than Ready ignore the event and simply run their next step.
type EventKind uint8

const (
	// EventNull is a no-op tick: a Ready machine stays Ready.
	EventNull EventKind = iota
	// EventTimeout is the scheduler's regular tick, sent to a Ready
	// machine only when the pool holds Ready-tagged requests.
	EventTimeout
	// EventThreshold moves a Ready machine to Preparing exactly as
	// EventTimeout does. Nothing in this tree sends it: the scheduler's
	// Tick only sends EventTimeout and EventNull.
	EventThreshold
	// EventSingleRequest seeds the machine directly with one signed
	// request, bypassing the pool (the force-relay fast path). It takes
	// priority over Timeout/Threshold: a scheduler offering a machine a
	// SingleRequest should prefer it to a generic trigger.
	EventSingleRequest
)

// Event is delivered to a Machine's Poll call.
type Event struct {
	Kind    EventKind
	Request *types.SignedRequest // set when Kind == EventSingleRequest
}

// NullEvent is the event sent on a tick with nothing to do.
func NullEvent() Event { return Event{Kind: EventNull} }

// TimeoutEvent is the regular-tick trigger.
func TimeoutEvent() Event { return Event{Kind: EventTimeout} }

// ThresholdEvent builds an EventThreshold event.
func ThresholdEvent() Event { return Event{Kind: EventThreshold} }

// SingleRequestEvent seeds the machine directly with req.
func SingleRequestEvent(req *types.SignedRequest) Event {
	return Event{Kind: EventSingleRequest, Request: req}
}
