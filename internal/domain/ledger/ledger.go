// Package ledger tracks outstanding remote requests so the client never issues
// a duplicate network request for the same resource.
package ledger

import (
	"context"
	"sync"

	"github.com/okian/badgeboard/internal/domain/model"
	"github.com/okian/badgeboard/pkg/logger"
	"github.com/okian/badgeboard/pkg/metrics"
)

// State is the lifecycle stage of a tracked request.
type State int

const (
	// StateNone means the key is not tracked.
	StateNone State = iota
	// StateInFlight means the request was handed to the fetch layer.
	StateInFlight
	// StateResponseReady means the response arrived and awaits consumption.
	StateResponseReady
)

func (s State) String() string {
	switch s {
	case StateInFlight:
		return "in_flight"
	case StateResponseReady:
		return "response_ready"
	default:
		return "none"
	}
}

// Ledger records which requests are outstanding.
type Ledger interface {
	// TryEnqueue atomically checks that key is untracked and marks it in
	// flight. Returns true only for the single caller that won.
	TryEnqueue(ctx context.Context, key model.RequestKey) bool

	IsInFlight(key model.RequestKey) bool
	IsResponseReady(key model.RequestKey) bool

	// MarkEnqueued marks key in flight unconditionally.
	MarkEnqueued(ctx context.Context, key model.RequestKey)
	// MarkResolved moves key to response-ready.
	MarkResolved(ctx context.Context, key model.RequestKey)
	// Clear stops tracking key. Unknown keys are ignored.
	Clear(ctx context.Context, key model.RequestKey)

	State(key model.RequestKey) State
	Stats() Stats
}

// Stats is a point-in-time count of tracked keys.
type Stats struct {
	InFlight      int `json:"in_flight"`
	ResponseReady int `json:"response_ready"`
}

type inMemoryLedger struct {
	mu      sync.RWMutex
	entries map[model.RequestKey]State
	ready   int
	log     logger.Logger
}

// NewInMemoryLedger creates an empty ledger.
func NewInMemoryLedger(opts ...Option) Ledger {
	l := &inMemoryLedger{
		entries: make(map[model.RequestKey]State),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.GetOrNop().Named("ledger")
	}
	return l
}

func (l *inMemoryLedger) TryEnqueue(ctx context.Context, key model.RequestKey) bool {
	l.mu.Lock()
	if _, exists := l.entries[key]; exists {
		l.mu.Unlock()
		metrics.RecordLedgerDedupeHit(key.Kind.String())
		l.log.Debug(ctx, "request already tracked", logger.String("key", key.String()))
		return false
	}
	l.set(key, StateInFlight)
	l.mu.Unlock()
	return true
}

func (l *inMemoryLedger) IsInFlight(key model.RequestKey) bool {
	return l.State(key) == StateInFlight
}

func (l *inMemoryLedger) IsResponseReady(key model.RequestKey) bool {
	return l.State(key) == StateResponseReady
}

func (l *inMemoryLedger) MarkEnqueued(_ context.Context, key model.RequestKey) {
	l.mu.Lock()
	l.set(key, StateInFlight)
	l.mu.Unlock()
}

func (l *inMemoryLedger) MarkResolved(_ context.Context, key model.RequestKey) {
	l.mu.Lock()
	l.set(key, StateResponseReady)
	l.mu.Unlock()
}

func (l *inMemoryLedger) Clear(_ context.Context, key model.RequestKey) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, exists := l.entries[key]
	if !exists {
		return
	}
	if prev == StateResponseReady {
		l.ready--
	}
	delete(l.entries, key)
	l.publish()
}

func (l *inMemoryLedger) State(key model.RequestKey) State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries[key]
}

func (l *inMemoryLedger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Stats{InFlight: len(l.entries) - l.ready, ResponseReady: l.ready}
}

// set must be called with l.mu held.
func (l *inMemoryLedger) set(key model.RequestKey, state State) {
	prev := l.entries[key]
	if prev == StateResponseReady {
		l.ready--
	}
	if state == StateResponseReady {
		l.ready++
	}
	l.entries[key] = state
	l.publish()
}

// publish must be called with l.mu held.
func (l *inMemoryLedger) publish() {
	metrics.UpdateLedgerSizes(len(l.entries)-l.ready, l.ready)
}
