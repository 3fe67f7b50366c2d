package remote

import "errors"

// Sentinel kinds for remote server errors.
var (
	ErrUnexpectedStatus  = errors.New("unexpected http status")
	ErrMalformedResponse = errors.New("malformed server response")
	ErrServerRejected    = errors.New("server rejected request")
	ErrMissingCredential = errors.New("missing username or token")
)
