package leaderboard

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrUnknownLeaderboard = errors.New("unknown leaderboard")
	ErrNoSubmitter        = errors.New("no score submitter configured")
)
