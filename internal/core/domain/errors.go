package domain

import "go.trai.ch/zerr"

var (
	// ErrEntryExists is returned when a cache key that is already present in any
	// layer is written again. This is a protocol violation: replay entries are
	// immutable, and a second write means the harness is about to mask
	// non-determinism. Callers must treat it as fatal.
	ErrEntryExists = zerr.New("cache entry already exists")

	// ErrCorruptEntry is returned when a stored value fails its checksum or does
	// not deserialize. It is never treated as a cache miss.
	ErrCorruptEntry = zerr.New("cache entry is corrupt")

	// ErrCacheMissRequired is returned when a cache miss occurs in require mode,
	// where every request must replay from the cache.
	ErrCacheMissRequired = zerr.New("cache miss in require mode")

	// ErrGCActive is returned when a garbage collection window is opened while one
	// is already active.
	ErrGCActive = zerr.New("garbage collection already active")

	// ErrGCNotActive is returned when a garbage collection window is closed without
	// one being active.
	ErrGCNotActive = zerr.New("no garbage collection active")

	// ErrStoreCreateFailed is returned when the cache store directory or files cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create cache store")

	// ErrStoreOpenFailed is returned when a cache layer file cannot be opened.
	ErrStoreOpenFailed = zerr.New("failed to open cache layer")

	// ErrStoreReadFailed is returned when a cache layer cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read cache layer")

	// ErrStoreWriteFailed is returned when a cache layer cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write cache layer")

	// ErrStoreSwapFailed is returned when the compacted base cannot be swapped in.
	ErrStoreSwapFailed = zerr.New("failed to swap compacted base layer")

	// ErrCanonicalizeFailed is returned when a request payload cannot be canonicalized for hashing.
	ErrCanonicalizeFailed = zerr.New("failed to canonicalize request payload")

	// ErrEntryMarshalFailed is returned when a cache entry cannot be marshaled.
	ErrEntryMarshalFailed = zerr.New("failed to marshal cache entry")

	// ErrBaselineReadFailed is returned when the baseline file cannot be read.
	ErrBaselineReadFailed = zerr.New("failed to read baseline file")

	// ErrBaselineParseFailed is returned when the baseline file cannot be parsed.
	ErrBaselineParseFailed = zerr.New("failed to parse baseline file")

	// ErrBaselineWriteFailed is returned when the baseline file cannot be written.
	ErrBaselineWriteFailed = zerr.New("failed to write baseline file")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigNotFound is returned when no replay.yaml can be found.
	ErrConfigNotFound = zerr.New("could not find replay.yaml")

	// ErrSuiteReadFailed is returned when a suite file cannot be read.
	ErrSuiteReadFailed = zerr.New("failed to read suite file")

	// ErrSuiteParseFailed is returned when a suite file cannot be parsed.
	ErrSuiteParseFailed = zerr.New("failed to parse suite file")

	// ErrNoScenarios is returned when a run is requested with no matching scenarios.
	ErrNoScenarios = zerr.New("no scenarios to run")

	// ErrScenarioInvalid is returned when a scenario definition is incomplete.
	ErrScenarioInvalid = zerr.New("invalid scenario definition")

	// ErrRunFailed is returned when at least one scenario worsened or failed fatally.
	ErrRunFailed = zerr.New("run failed")

	// ErrRunnerClosed is returned when work is submitted to a runner that has been closed.
	ErrRunnerClosed = zerr.New("runner is closed")

	// ErrEndpointFailed is returned when the endpoint call fails for a reason other
	// than rate limiting.
	ErrEndpointFailed = zerr.New("endpoint request failed")
)
