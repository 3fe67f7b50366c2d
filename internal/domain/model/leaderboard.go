package model

import (
	"strconv"
	"time"
)

// LeaderboardID identifies a leaderboard on the server.
type LeaderboardID uint32

func (id LeaderboardID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// GameID identifies a game on the server.
type GameID uint32

// RankEntry is one row of a leaderboard as reported by the server.
type RankEntry struct {
	Rank        uint      `json:"rank"`
	Username    string    `json:"username"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Definition describes a leaderboard for the loaded game.
type Definition struct {
	ID            LeaderboardID
	GameID        GameID
	Title         string
	Description   string
	Format        Format
	LowerIsBetter bool
}

// SubmissionResponse is the typed result of parsing the server's reply to a
// leaderboard submission. FormatKnown is false when the reply named no
// format; Format is then the zero value and must not replace a configured one.
type SubmissionResponse struct {
	LeaderboardID  LeaderboardID
	GameID         GameID
	Title          string
	Format         Format
	FormatKnown    bool
	LowerIsBetter  bool
	SubmittedScore int
	BestScore      int
	ScoreFormatted string
	TopEntries     []RankEntry
}
