// Package api serves the local diagnostics endpoints of the client.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/badgeboard/internal/adapters/assetcache"
	"github.com/okian/badgeboard/internal/domain/leaderboard"
	"github.com/okian/badgeboard/internal/domain/model"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	StatsProvider
	LeaderboardDependencies
	AssetDependencies
}

// Server wires HTTP routes for the diagnostics API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	assetHandler       *AssetHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := serverConfig{maxAssetDimension: defaultMaxAssetDimension}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.allowControl),
		assetHandler:       NewAssetHandler(deps, cfg.maxAssetDimension),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /leaderboards", MetricsMiddleware(s.leaderboardHandler.HandleList, "leaderboards"))
	mux.HandleFunc("GET /leaderboards/{id}", MetricsMiddleware(s.leaderboardHandler.HandleGet, "leaderboard"))
	mux.HandleFunc("POST /leaderboards/{id}/{action}", MetricsMiddleware(s.leaderboardHandler.HandleControl, "leaderboard_control"))
	mux.HandleFunc("GET /assets/{kind}/{id}", MetricsMiddleware(s.assetHandler.HandleGet, "assets"))
}

// LeaderboardDependencies is the read and control surface over the store.
type LeaderboardDependencies interface {
	Leaderboards() []*leaderboard.Leaderboard
	Leaderboard(id model.LeaderboardID) (*leaderboard.Leaderboard, bool)
	Trigger(id model.LeaderboardID) (*leaderboard.ManualTrigger, bool)
}

// AssetDependencies resolves cached assets.
type AssetDependencies interface {
	FetchOrLoad(ctx context.Context, kind model.AssetKind, identifier string, size model.Size) (assetcache.Result, error)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
