package assetcache

import "errors"

// Sentinel kinds for asset cache errors.
var (
	ErrUnknownKind       = errors.New("unknown asset kind")
	ErrInvalidIdentifier = errors.New("invalid asset identifier")
	ErrReadCache         = errors.New("read cached asset")
)
