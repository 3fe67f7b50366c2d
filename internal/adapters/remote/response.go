package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/okian/badgeboard/internal/domain/model"
)

type submissionEnvelope struct {
	Success  *bool               `json:"Success"`
	Error    string              `json:"Error"`
	Response *submissionResponse `json:"Response"`
}

type submissionResponse struct {
	LBData         *lbData    `json:"LBData"`
	Score          int        `json:"Score"`
	BestScore      int        `json:"BestScore"`
	ScoreFormatted string     `json:"ScoreFormatted"`
	TopEntries     []topEntry `json:"TopEntries"`
}

type lbData struct {
	Format        string   `json:"Format"`
	LeaderboardID uint32   `json:"LeaderboardID"`
	GameID        uint32   `json:"GameID"`
	Title         string   `json:"Title"`
	LowerIsBetter flexBool `json:"LowerIsBetter"`
}

type topEntry struct {
	Rank          uint   `json:"Rank"`
	User          string `json:"User"`
	Score         int    `json:"Score"`
	DateSubmitted int64  `json:"DateSubmitted"`
}

// flexBool accepts true/false as well as the 0/1 the server sends.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", "1", `"1"`:
		*b = true
	case "false", "0", `"0"`, "null":
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

// ParseSubmissionResponse decodes the reply to a leaderboard submission.
// Everything that may be missing from the document is checked here.
func ParseSubmissionResponse(payload []byte) (model.SubmissionResponse, error) {
	var env submissionEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return model.SubmissionResponse{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if env.Success != nil && !*env.Success {
		msg := env.Error
		if msg == "" {
			msg = "no reason given"
		}
		return model.SubmissionResponse{}, fmt.Errorf("%w: %s", ErrServerRejected, msg)
	}
	if env.Response == nil {
		return model.SubmissionResponse{}, fmt.Errorf("%w: missing Response", ErrMalformedResponse)
	}
	r := env.Response
	if r.LBData == nil {
		return model.SubmissionResponse{}, fmt.Errorf("%w: missing LBData", ErrMalformedResponse)
	}
	if r.LBData.LeaderboardID == 0 {
		return model.SubmissionResponse{}, fmt.Errorf("%w: missing LeaderboardID", ErrMalformedResponse)
	}

	out := model.SubmissionResponse{
		LeaderboardID:  model.LeaderboardID(r.LBData.LeaderboardID),
		GameID:         model.GameID(r.LBData.GameID),
		Title:          r.LBData.Title,
		Format:         model.ParseFormat(r.LBData.Format),
		FormatKnown:    strings.TrimSpace(r.LBData.Format) != "",
		LowerIsBetter:  bool(r.LBData.LowerIsBetter),
		SubmittedScore: r.Score,
		BestScore:      r.BestScore,
		ScoreFormatted: r.ScoreFormatted,
		TopEntries:     make([]model.RankEntry, 0, len(r.TopEntries)),
	}
	for _, e := range r.TopEntries {
		out.TopEntries = append(out.TopEntries, model.RankEntry{
			Rank:        e.Rank,
			Username:    e.User,
			Score:       e.Score,
			SubmittedAt: time.Unix(e.DateSubmitted, 0).UTC(),
		})
	}
	return out, nil
}
