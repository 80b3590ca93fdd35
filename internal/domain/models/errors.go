package models

import "errors"

// Domain error kinds. Callers compare with errors.Is; the HTTP layer maps
// each one to a stable response code.
var (
	ErrInvalidMetrics    = errors.New("invalid metrics")
	ErrNoAssets          = errors.New("no assets to aggregate")
	ErrUnsafeConditions  = errors.New("unsafe market conditions")
	ErrMaxTradesExceeded = errors.New("max concurrent trades exceeded")
	ErrNotFound          = errors.New("trade not found")
	ErrInvalidState      = errors.New("invalid trade state transition")
	ErrStoreUnavailable  = errors.New("persistent store unavailable")
	ErrSourceUnavailable = errors.New("metric source unavailable")
)
