package fetch

import "errors"

// Sentinel kinds for fetch layer errors.
var (
	ErrQueueRejected     = errors.New("fetch queue rejected job")
	ErrSubmissionPending = errors.New("submission already pending")
	ErrUnknownJob        = errors.New("unknown job kind")
	ErrBadJob            = errors.New("malformed job")
	ErrAbandoned         = errors.New("job abandoned before it ran")
)
