package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/badgeboard/internal/domain/leaderboard"
	"github.com/okian/badgeboard/internal/domain/model"
)

type leaderboardView struct {
	ID             model.LeaderboardID `json:"id"`
	GameID         model.GameID        `json:"game_id"`
	Title          string              `json:"title"`
	Description    string              `json:"description,omitempty"`
	Format         string              `json:"format"`
	LowerIsBetter  bool                `json:"lower_is_better"`
	State          string              `json:"state"`
	SubmittedScore *int                `json:"submitted_score,omitempty"`
}

type entryView struct {
	model.RankEntry
	Formatted string `json:"formatted"`
}

type leaderboardDetail struct {
	leaderboardView
	Entries []entryView `json:"entries"`
}

type controlResponse struct {
	ID     model.LeaderboardID `json:"id"`
	Action string              `json:"action"`
	Status string              `json:"status"`
}

func newLeaderboardView(lb *leaderboard.Leaderboard) leaderboardView {
	def := lb.Definition()
	state := lb.State()
	v := leaderboardView{
		ID:            def.ID,
		GameID:        def.GameID,
		Title:         def.Title,
		Description:   def.Description,
		Format:        def.Format.String(),
		LowerIsBetter: def.LowerIsBetter,
		State:         state.String(),
	}
	if state == leaderboard.StateSubmitting || state == leaderboard.StateSubmitted {
		score := lb.SubmittedScore()
		v.SubmittedScore = &score
	}
	return v
}

// LeaderboardHandler serves the leaderboard collection.
type LeaderboardHandler struct {
	deps         LeaderboardDependencies
	allowControl bool
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, allowControl bool) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, allowControl: allowControl}
}

// HandleList handles GET /leaderboards.
func (h *LeaderboardHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	boards := h.deps.Leaderboards()
	out := make([]leaderboardView, 0, len(boards))
	for _, lb := range boards {
		out = append(out, newLeaderboardView(lb))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /leaderboards/{id}.
func (h *LeaderboardHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	lb, ok := h.lookup(w, r, op)
	if !ok {
		return
	}
	format := lb.Definition().Format
	entries := lb.Entries()
	detail := leaderboardDetail{
		leaderboardView: newLeaderboardView(lb),
		Entries:         make([]entryView, 0, len(entries)),
	}
	for _, e := range entries {
		detail.Entries = append(detail.Entries, entryView{RankEntry: e, Formatted: format.FormatScore(e.Score)})
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleControl handles POST /leaderboards/{id}/{start|cancel|submit}.
// Signals are queued on the manual trigger and applied on the next frame.
func (h *LeaderboardHandler) HandleControl(w http.ResponseWriter, r *http.Request) {
	const op = "api.control_leaderboard"
	if !h.allowControl {
		writeError(w, http.StatusForbidden, "control_disabled", nil)
		return
	}
	lb, ok := h.lookup(w, r, op)
	if !ok {
		return
	}
	trig, ok := h.deps.Trigger(lb.ID())
	if !ok {
		writeError(w, http.StatusConflict, "no_manual_trigger", wrapKind(op, ErrConflict, nil))
		return
	}

	action := r.PathValue("action")
	switch action {
	case "start":
		trig.Start()
	case "cancel":
		trig.Cancel()
	case "submit":
		score, err := strconv.Atoi(r.URL.Query().Get("score"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, fmt.Errorf("score: %w", err)))
			return
		}
		trig.Submit(score)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, fmt.Errorf("unknown action %q", action)))
		return
	}
	writeJSON(w, http.StatusAccepted, controlResponse{ID: lb.ID(), Action: action, Status: "queued"})
}

func (h *LeaderboardHandler) lookup(w http.ResponseWriter, r *http.Request, op string) (*leaderboard.Leaderboard, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
		return nil, false
	}
	lb, ok := h.deps.Leaderboard(model.LeaderboardID(id))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", wrapKind(op, ErrNotFound, fmt.Errorf("leaderboard %d", id)))
		return nil, false
	}
	return lb, true
}
