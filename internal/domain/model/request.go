package model

import (
	"time"

	"github.com/google/uuid"
)

// RequestKind identifies a kind of background request.
type RequestKind int

const (
	RequestUnknown RequestKind = iota
	RequestBadge
	RequestUserPicture
	RequestSubmitLeaderboard
)

func (k RequestKind) String() string {
	switch k {
	case RequestBadge:
		return "badge"
	case RequestUserPicture:
		return "userpic"
	case RequestSubmitLeaderboard:
		return "submit_leaderboard"
	default:
		return "unknown"
	}
}

// RequestKey is the deduplication key shared by every background request:
// at most one request per key is outstanding at a time.
type RequestKey struct {
	Kind RequestKind
	ID   string
}

func (k RequestKey) String() string {
	return k.Kind.String() + ":" + k.ID
}

// Job is a unit of background work flowing through the fetch queue.
type Job struct {
	ID         string
	Key        RequestKey
	Params     map[string]string
	EnqueuedAt time.Time
}

// NewJob builds a job with a fresh correlation id.
func NewJob(key RequestKey, params map[string]string) Job {
	return Job{
		ID:         uuid.NewString(),
		Key:        key,
		Params:     params,
		EnqueuedAt: time.Now(),
	}
}

// Param returns a parameter or "" when absent.
func (j Job) Param(name string) string {
	if j.Params == nil {
		return ""
	}
	return j.Params[name]
}

// Asset returns the asset kind downloaded by k, if any.
func (k RequestKind) Asset() (AssetKind, bool) {
	switch k {
	case RequestBadge:
		return AssetBadge, true
	case RequestUserPicture:
		return AssetUserPicture, true
	default:
		return 0, false
	}
}
