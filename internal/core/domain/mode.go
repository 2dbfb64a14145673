package domain

import "go.trai.ch/zerr"

// CacheMode controls how the replay cache participates in a run.
type CacheMode string

const (
	// CacheDisabled bypasses the cache entirely: no reads, no writes.
	CacheDisabled CacheMode = "disabled"
	// CacheDefault reads and writes the cache best-effort.
	CacheDefault CacheMode = "default"
	// CacheRequire treats a miss as fatal. Used in CI to guarantee a run is a
	// pure replay of recorded traffic.
	CacheRequire CacheMode = "require"
)

// ParseCacheMode validates a mode string from configuration or flags.
func ParseCacheMode(s string) (CacheMode, error) {
	switch CacheMode(s) {
	case CacheDisabled, CacheDefault, CacheRequire:
		return CacheMode(s), nil
	case "":
		return CacheDefault, nil
	default:
		return "", zerr.With(ErrConfigParseFailed, "cacheMode", s)
	}
}
