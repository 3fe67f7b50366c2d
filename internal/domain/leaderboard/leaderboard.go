package leaderboard

import (
	"sync"

	"github.com/okian/badgeboard/internal/domain/model"
	"github.com/okian/badgeboard/pkg/metrics"
)

// Leaderboard is one ranking owned by the Store. Entries are replaced
// wholesale on every merge; readers get a copy of either the old or the new
// list.
type Leaderboard struct {
	mu      sync.RWMutex
	def     model.Definition
	entries []model.RankEntry
	state   RunState
	trigger Trigger

	submitted int
}

func newLeaderboard(def model.Definition, trig Trigger) *Leaderboard {
	if trig == nil {
		trig = idleTrigger{}
	}
	return &Leaderboard{def: def, trigger: trig}
}

// ID returns the leaderboard identity.
func (lb *Leaderboard) ID() model.LeaderboardID {
	return lb.def.ID
}

// Definition returns the current definition, including metadata refreshed by
// the last merge.
func (lb *Leaderboard) Definition() model.Definition {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.def
}

// Entries returns a copy of the rank entries.
func (lb *Leaderboard) Entries() []model.RankEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	out := make([]model.RankEntry, len(lb.entries))
	copy(out, lb.entries)
	return out
}

// State returns the current run state.
func (lb *Leaderboard) State() RunState {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.state
}

// SubmittedScore returns the last score handed to the submitter.
func (lb *Leaderboard) SubmittedScore() int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.submitted
}

// transition moves the run from one state to another. It fails when the run
// is no longer in from, e.g. after a concurrent Reset.
func (lb *Leaderboard) transition(from, to RunState) bool {
	if !canTransition(from, to) {
		return false
	}
	lb.mu.Lock()
	if lb.state != from {
		lb.mu.Unlock()
		return false
	}
	lb.state = to
	lb.mu.Unlock()
	metrics.RecordLeaderboardTransition(to.String())
	return true
}

// merge publishes sorted entries and the server's metadata in one step.
// Returns true when an outstanding submission was completed by this merge.
func (lb *Leaderboard) merge(resp model.SubmissionResponse, sorted []model.RankEntry) bool {
	lb.mu.Lock()
	lb.entries = sorted
	if resp.Title != "" {
		lb.def.Title = resp.Title
	}
	if resp.FormatKnown {
		lb.def.Format = resp.Format
	}
	lb.def.LowerIsBetter = resp.LowerIsBetter
	if resp.GameID != 0 {
		lb.def.GameID = resp.GameID
	}
	completed := lb.state == StateSubmitting
	if completed {
		lb.state = StateSubmitted
	}
	lb.mu.Unlock()

	if completed {
		metrics.RecordLeaderboardTransition(StateSubmitted.String())
	}
	return completed
}

func (lb *Leaderboard) reset() {
	lb.mu.Lock()
	prev := lb.state
	lb.state = StateInactive
	lb.mu.Unlock()

	lb.trigger.Reset()
	if prev != StateInactive {
		metrics.RecordLeaderboardTransition(StateInactive.String())
	}
}
