package leaderboard

import (
	"context"
	"sync"
)

// Signal is the outcome of a single per-frame trigger evaluation.
type Signal int

const (
	SignalNone Signal = iota
	SignalStart
	SignalCancel
	SignalSubmit
)

func (s Signal) String() string {
	switch s {
	case SignalStart:
		return "start"
	case SignalCancel:
		return "cancel"
	case SignalSubmit:
		return "submit"
	default:
		return "none"
	}
}

// Trigger decides when a run starts, is canceled or is submitted. It is
// evaluated once per frame while the run is inactive or active.
type Trigger interface {
	Evaluate(ctx context.Context) Signal
	// Value returns the score to submit.
	Value() int
	// Reset discards any partial progress.
	Reset()
}

type idleTrigger struct{}

func (idleTrigger) Evaluate(context.Context) Signal { return SignalNone }
func (idleTrigger) Value() int                      { return 0 }
func (idleTrigger) Reset()                          {}

// ManualTrigger is a Trigger driven from outside the frame loop. Queued
// signals are delivered one per evaluation in the order they were queued.
type ManualTrigger struct {
	mu      sync.Mutex
	pending []Signal
	value   int
}

// NewManualTrigger returns an empty manual trigger.
func NewManualTrigger() *ManualTrigger {
	return &ManualTrigger{}
}

// Start queues a start signal.
func (m *ManualTrigger) Start() { m.push(SignalStart) }

// Cancel queues a cancel signal.
func (m *ManualTrigger) Cancel() { m.push(SignalCancel) }

// Submit records value and queues a submit signal.
func (m *ManualTrigger) Submit(value int) {
	m.mu.Lock()
	m.value = value
	m.pending = append(m.pending, SignalSubmit)
	m.mu.Unlock()
}

func (m *ManualTrigger) push(s Signal) {
	m.mu.Lock()
	m.pending = append(m.pending, s)
	m.mu.Unlock()
}

func (m *ManualTrigger) Evaluate(context.Context) Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return SignalNone
	}
	s := m.pending[0]
	m.pending = m.pending[1:]
	return s
}

func (m *ManualTrigger) Value() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value
}

// Reset drops queued signals. The last submitted value is kept for
// diagnostics.
func (m *ManualTrigger) Reset() {
	m.mu.Lock()
	m.pending = nil
	m.mu.Unlock()
}
