package metrics

import "errors"

// ErrInvalidRefreshInterval rejects a non-positive poll interval.
var ErrInvalidRefreshInterval = errors.New("metrics refresh interval must be positive")
