// Package chainmonitor implements the de-duplicated polling engine that
// tracks on-chain conditions (transaction confirmations, block-number
// thresholds) on behalf of many subscribers.
package chainmonitor

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"
)

// resolvedTaskCacheSize bounds how many recently-fired tasks are
// remembered. A burst of many shared tasks resolving in one poll, each
// with a watcher racing to Subscribe a moment after retire(), would
// otherwise silently re-register a task the monitor already answered;
// the cache lets Subscribe short-circuit those with an immediate replay.
const resolvedTaskCacheSize = 4096

// TaskKind discriminates the two supported monitor conditions.
type TaskKind uint8

const (
	TaskTransactionExecuted TaskKind = iota
	TaskBlockNumberReached
)

// Task is a hashable (comparable) monitor condition: two Tasks with
// identical fields are the same task, so N subscribers to the same
// condition share one poller.
type Task struct {
	Kind              TaskKind
	TxHash            common.Hash // TaskTransactionExecuted
	ConfirmationCount uint64      // TaskTransactionExecuted
	BlockNumber       uint64      // TaskBlockNumberReached
}

// TransactionExecuted builds a Task waiting for hash to reach
// confirmations confirmations.
func TransactionExecuted(hash common.Hash, confirmations uint64) Task {
	return Task{Kind: TaskTransactionExecuted, TxHash: hash, ConfirmationCount: confirmations}
}

// BlockNumberReached builds a Task waiting for the chain head to reach n.
// Kept for wire-format completeness; nothing in this tree currently
// subscribes to it.
func BlockNumberReached(n uint64) Task {
	return Task{Kind: TaskBlockNumberReached, BlockNumber: n}
}

// Response is delivered to every watcher subscribed to the Task that fired.
type Response struct {
	Kind        TaskKind
	TxHash      common.Hash
	BlockNumber uint64
}

// WatcherID opaquely identifies a registered subscriber.
type WatcherID uint64

// ErrInvalidWatcherID is returned by Subscribe/Unsubscribe for an unknown
// WatcherID.
var ErrInvalidWatcherID = errInvalidWatcherID{}

type errInvalidWatcherID struct{}

func (errInvalidWatcherID) Error() string { return "invalid watcher id" }

// ChainPoller is the narrow chain capability the monitor needs: reading a
// transaction's confirmation depth and the current block number.
type ChainPoller interface {
	GetTransactionConfirmation(ctx context.Context, hash common.Hash) (latestBlock uint64, receiptBlock *uint64, err error)
	GetBlockNumber(ctx context.Context) (uint64, error)
}

type watcher struct {
	feed  event.Feed
	tasks map[Task]bool
}

// Service is the single process-wide chain monitor.
type Service struct {
	mu       sync.Mutex
	chain    ChainPoller
	interval time.Duration

	watchers    map[WatcherID]*watcher
	subscribers map[Task]map[WatcherID]bool
	resolved    *lru.Cache
	nextID      uint64
}

// New builds a chain monitor polling chain every interval.
func New(chain ChainPoller, interval time.Duration) *Service {
	resolved, err := lru.New(resolvedTaskCacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size, which is a constant above
	}
	return &Service{
		chain:       chain,
		interval:    interval,
		watchers:    map[WatcherID]*watcher{},
		subscribers: map[Task]map[WatcherID]bool{},
		resolved:    resolved,
	}
}

// RegisterChan creates a new watcher and returns its id plus a channel-based
// subscription, which is what relayer machines actually consume.
func (s *Service) RegisterChan() (WatcherID, chan Response, event.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := WatcherID(s.nextID)
	s.nextID++
	w := &watcher{tasks: map[Task]bool{}}
	s.watchers[id] = w
	ch := make(chan Response, 8)
	sub := w.feed.Subscribe(ch)
	return id, ch, sub
}

// Subscribe adds task to id's interest set. If task was already resolved
// by a previous poll (within the resolved-task cache's retention), the
// cached Response is replayed to the watcher immediately instead of
// waiting for a fresh poll to rediscover it.
func (s *Service) Subscribe(id WatcherID, task Task) error {
	s.mu.Lock()
	w, ok := s.watchers[id]
	if !ok {
		s.mu.Unlock()
		return ErrInvalidWatcherID
	}
	if cached, ok := s.resolved.Get(task); ok {
		s.mu.Unlock()
		w.feed.Send(cached.(Response))
		return nil
	}
	w.tasks[task] = true
	if s.subscribers[task] == nil {
		s.subscribers[task] = map[WatcherID]bool{}
	}
	s.subscribers[task][id] = true
	s.mu.Unlock()
	return nil
}

// Unsubscribe removes task from id's interest set.
func (s *Service) Unsubscribe(id WatcherID, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.watchers[id]
	if !ok {
		return ErrInvalidWatcherID
	}
	delete(w.tasks, task)
	if subs := s.subscribers[task]; subs != nil {
		delete(subs, id)
		if len(subs) == 0 {
			delete(s.subscribers, task)
		}
	}
	return nil
}

// RegisterAndSubscribe is a convenience combining RegisterChan + Subscribe.
func (s *Service) RegisterAndSubscribe(task Task) (WatcherID, chan Response, event.Subscription) {
	id, ch, sub := s.RegisterChan()
	_ = s.Subscribe(id, task)
	return id, ch, sub
}

// PollOnce advances every distinct subscribed Task once. Tasks that fire
// broadcast a Response to every subscriber and are then retired; tasks
// that error are logged and retired; tasks that are not yet ready remain
// subscribed for the next tick.
func (s *Service) PollOnce(ctx context.Context) {
	s.mu.Lock()
	tasks := make([]Task, 0, len(s.subscribers))
	for t := range s.subscribers {
		tasks = append(tasks, t)
	}
	watchersByTask := make(map[Task][]*watcher, len(tasks))
	for _, t := range tasks {
		var ws []*watcher
		for id := range s.subscribers[t] {
			ws = append(ws, s.watchers[id])
		}
		watchersByTask[t] = ws
	}
	s.mu.Unlock()

	for _, task := range tasks {
		resp, ready, err := s.evaluate(ctx, task)
		if err != nil {
			log.Warn("chainmonitor: task poll failed", "task", task, "err", err)
			s.retire(task)
			continue
		}
		if !ready {
			continue
		}
		for _, w := range watchersByTask[task] {
			w.feed.Send(resp)
		}
		s.resolved.Add(task, resp)
		s.retire(task)
	}
}

func (s *Service) retire(task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.subscribers[task] {
		if w, ok := s.watchers[id]; ok {
			delete(w.tasks, task)
		}
	}
	delete(s.subscribers, task)
}

func (s *Service) evaluate(ctx context.Context, task Task) (Response, bool, error) {
	switch task.Kind {
	case TaskTransactionExecuted:
		latest, receiptBlock, err := s.chain.GetTransactionConfirmation(ctx, task.TxHash)
		if err != nil {
			return Response{}, false, err
		}
		if receiptBlock == nil {
			return Response{}, false, nil
		}
		if latest < *receiptBlock || latest-*receiptBlock < task.ConfirmationCount {
			return Response{}, false, nil
		}
		return Response{Kind: TaskTransactionExecuted, TxHash: task.TxHash}, true, nil
	case TaskBlockNumberReached:
		latest, err := s.chain.GetBlockNumber(ctx)
		if err != nil {
			return Response{}, false, err
		}
		if latest < task.BlockNumber {
			return Response{}, false, nil
		}
		return Response{Kind: TaskBlockNumberReached, BlockNumber: latest}, true, nil
	default:
		return Response{}, false, nil
	}
}

// Run polls on every tick of s.interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.PollOnce(ctx)
		}
	}
}

// TaskCount reports the number of distinct tasks currently being polled,
// primarily for tests asserting de-duplication (scenario S6).
func (s *Service) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}
