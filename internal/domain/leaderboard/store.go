// Package leaderboard owns the leaderboards of the loaded game: their run
// state and the rank entries merged from server responses.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/okian/badgeboard/internal/domain/model"
	"github.com/okian/badgeboard/pkg/logger"
	"github.com/okian/badgeboard/pkg/metrics"
)

// Presenter displays a scoreboard after a merge.
type Presenter interface {
	ShowScoreboard(ctx context.Context, id model.LeaderboardID)
}

// RunNotifier is an optional Presenter extension told about runs starting
// and being canceled.
type RunNotifier interface {
	LeaderboardStarted(ctx context.Context, def model.Definition)
	LeaderboardCanceled(ctx context.Context, def model.Definition)
}

// Submitter hands a finished run's score to the background fetch layer.
type Submitter interface {
	SubmitScore(ctx context.Context, id model.LeaderboardID, score int) error
}

// Display selects which notifications reach the presenter.
type Display struct {
	Started    bool
	Canceled   bool
	Scoreboard bool
}

// DisplayAll shows every notification.
func DisplayAll() Display {
	return Display{Started: true, Canceled: true, Scoreboard: true}
}

// Registration pairs a definition with the trigger that drives its runs.
type Registration struct {
	Definition model.Definition
	Trigger    Trigger
}

// Store is the lock-guarded leaderboard collection, in insertion order.
type Store struct {
	mu     sync.RWMutex
	boards []*Leaderboard

	enabled   atomic.Bool
	display   atomic.Pointer[Display]
	presenter Presenter
	submitter Submitter
	log       logger.Logger
}

// NewStore creates an empty store with leaderboards enabled.
func NewStore(opts ...Option) *Store {
	s := &Store{}
	s.enabled.Store(true)
	s.SetDisplay(DisplayAll())
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.GetOrNop().Named("leaderboard")
	}
	if s.presenter == nil {
		s.presenter = nopPresenter{}
	}
	return s
}

// Enabled reports the global leaderboard feature flag.
func (s *Store) Enabled() bool { return s.enabled.Load() }

// SetEnabled flips the global leaderboard feature flag.
func (s *Store) SetEnabled(enabled bool) { s.enabled.Store(enabled) }

// Display returns the notification toggles.
func (s *Store) Display() Display { return *s.display.Load() }

// SetDisplay replaces the notification toggles. Run state is unaffected.
func (s *Store) SetDisplay(d Display) { s.display.Store(&d) }

// AddLeaderboard appends a leaderboard. It is a silent no-op when
// leaderboards are disabled. A nil trigger never fires.
func (s *Store) AddLeaderboard(ctx context.Context, def model.Definition, trig Trigger) bool {
	if !s.Enabled() {
		s.log.Debug(ctx, "leaderboards disabled, skipping definition", logger.Uint("id", uint(def.ID)))
		return false
	}

	s.mu.Lock()
	s.boards = append(s.boards, newLeaderboard(def, trig))
	n := len(s.boards)
	s.mu.Unlock()

	metrics.UpdateLeaderboardCount(n)
	return true
}

// FindByID returns the first leaderboard with id.
func (s *Store) FindByID(id model.LeaderboardID) (*Leaderboard, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, lb := range s.boards {
		if lb.ID() == id {
			return lb, true
		}
	}
	return nil, false
}

// List returns the leaderboards in insertion order.
func (s *Store) List() []*Leaderboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Leaderboard, len(s.boards))
	copy(out, s.boards)
	return out
}

// Count returns the collection size.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.boards)
}

// Clear drops every leaderboard.
func (s *Store) Clear() {
	s.mu.Lock()
	s.boards = nil
	s.mu.Unlock()
	metrics.UpdateLeaderboardCount(0)
}

// LoadGame replaces the collection with regs and returns how many were added.
func (s *Store) LoadGame(ctx context.Context, regs []Registration) int {
	s.Clear()
	added := 0
	for _, r := range regs {
		if s.AddLeaderboard(ctx, r.Definition, r.Trigger) {
			added++
		}
	}
	s.log.Info(ctx, "game leaderboards loaded", logger.Int("count", added), logger.Bool("enabled", s.Enabled()))
	return added
}

// ApplySubmissionResponse replaces the target leaderboard's entries with the
// response's, sorted by rank, then shows the scoreboard. A response for an
// unknown leaderboard is dropped and reported as ErrUnknownLeaderboard.
func (s *Store) ApplySubmissionResponse(ctx context.Context, resp model.SubmissionResponse) error {
	lb, ok := s.FindByID(resp.LeaderboardID)
	if !ok {
		s.log.Error(ctx, "assertion failed: submission response for unknown leaderboard",
			logger.Uint("id", uint(resp.LeaderboardID)))
		metrics.RecordLeaderboardDesync()
		metrics.RecordErrorByComponent("leaderboard", "desync")
		return fmt.Errorf("%w: %d", ErrUnknownLeaderboard, resp.LeaderboardID)
	}

	sorted := make([]model.RankEntry, len(resp.TopEntries))
	copy(sorted, resp.TopEntries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rank < sorted[j].Rank
	})

	completed := lb.merge(resp, sorted)
	metrics.RecordLeaderboardMerge()

	for _, e := range sorted {
		s.log.Debug(ctx, fmt.Sprintf("(%d) %s: %s", e.Rank, e.Username, resp.Format.FormatScore(e.Score)),
			logger.Uint("id", uint(resp.LeaderboardID)))
	}
	s.log.Info(ctx, "leaderboard merged",
		logger.Uint("id", uint(resp.LeaderboardID)),
		logger.Int("entries", len(sorted)),
		logger.Bool("completed_run", completed),
		logger.String("best", resp.Format.FormatScore(resp.BestScore)))

	if s.Display().Scoreboard {
		s.presenter.ShowScoreboard(ctx, resp.LeaderboardID)
	}
	return nil
}

// SubmissionFailed abandons an outstanding submission whose server round
// trip failed, returning the run to inactive.
func (s *Store) SubmissionFailed(ctx context.Context, id model.LeaderboardID, cause error) {
	lb, ok := s.FindByID(id)
	if !ok {
		return
	}
	if lb.transition(StateSubmitting, StateInactive) {
		lb.trigger.Reset()
		s.log.Warn(ctx, "leaderboard submission failed", logger.Uint("id", uint(id)), logger.Error(cause))
	}
}

// Test evaluates every leaderboard's trigger once. No-op when disabled.
func (s *Store) Test(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	for _, lb := range s.List() {
		s.testOne(ctx, lb)
	}
}

func (s *Store) testOne(ctx context.Context, lb *Leaderboard) {
	switch lb.State() {
	case StateInactive:
		if lb.trigger.Evaluate(ctx) == SignalStart && lb.transition(StateInactive, StateActive) {
			s.notifyStarted(ctx, lb)
		}
	case StateActive:
		switch lb.trigger.Evaluate(ctx) {
		case SignalCancel:
			if lb.transition(StateActive, StateInactive) {
				lb.trigger.Reset()
				s.notifyCanceled(ctx, lb)
			}
		case SignalSubmit:
			if lb.transition(StateActive, StateSubmitting) {
				s.submit(ctx, lb)
			}
		default:
		}
	case StateSubmitted:
		if lb.transition(StateSubmitted, StateInactive) {
			lb.trigger.Reset()
		}
	case StateSubmitting:
		// waiting for ApplySubmissionResponse
	}
}

func (s *Store) submit(ctx context.Context, lb *Leaderboard) {
	value := lb.trigger.Value()
	lb.mu.Lock()
	lb.submitted = value
	lb.mu.Unlock()

	err := ErrNoSubmitter
	if s.submitter != nil {
		err = s.submitter.SubmitScore(ctx, lb.ID(), value)
	}
	if err != nil {
		s.log.Warn(ctx, "score submission not accepted", logger.Uint("id", uint(lb.ID())), logger.Error(err))
		metrics.RecordErrorByComponent("leaderboard", "submit")
		if lb.transition(StateSubmitting, StateInactive) {
			lb.trigger.Reset()
		}
		return
	}
	s.log.Debug(ctx, "score submitted", logger.Uint("id", uint(lb.ID())), logger.Int("score", value))
}

// Reset forces every run back to inactive regardless of the feature flag.
func (s *Store) Reset() {
	for _, lb := range s.List() {
		lb.reset()
	}
}

func (s *Store) notifyStarted(ctx context.Context, lb *Leaderboard) {
	if !s.Display().Started {
		return
	}
	if n, ok := s.presenter.(RunNotifier); ok {
		n.LeaderboardStarted(ctx, lb.Definition())
	}
}

func (s *Store) notifyCanceled(ctx context.Context, lb *Leaderboard) {
	if !s.Display().Canceled {
		return
	}
	if n, ok := s.presenter.(RunNotifier); ok {
		n.LeaderboardCanceled(ctx, lb.Definition())
	}
}

type nopPresenter struct{}

func (nopPresenter) ShowScoreboard(context.Context, model.LeaderboardID) {}
