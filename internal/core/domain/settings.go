package domain

import "time"

// Settings is the resolved harness configuration for one invocation.
type Settings struct {
	// Root is the project root (the directory containing replay.yaml).
	Root string
	// CacheDir is the replay cache directory.
	CacheDir string
	// CacheMode controls cache participation for the run.
	CacheMode CacheMode
	// CacheSalt versions the cache; bumping it starts recording afresh.
	CacheSalt string
	// BaselinePath is the persisted baseline file.
	BaselinePath string
	// SuitePaths are the scenario suite files to load.
	SuitePaths []string
	// Parallelism bounds how many runs execute concurrently.
	Parallelism int
	// Runs is the default repetition count per scenario.
	Runs int
	// Retry configures the backoff coordinator.
	Retry RetrySettings
	// Endpoint configures the live model endpoint.
	Endpoint EndpointSettings
}

// RetrySettings configures rate limit recovery.
type RetrySettings struct {
	// BaseDelay is multiplied by the attempt number for each backoff wait.
	BaseDelay time.Duration
	// Ceiling is the maximum number of retries per call.
	Ceiling int
}

// EndpointSettings configures the live model endpoint.
type EndpointSettings struct {
	// BaseURL overrides the API base URL; empty means the client default.
	BaseURL string
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string
	// Limit paces outbound dispatches per model.
	Limit RateLimit
}

// RateLimit is N dispatches per interval, converted by the paced worker into a
// minimum inter-dispatch delay.
type RateLimit struct {
	N   int
	Per time.Duration
}

// Interval returns the minimum spacing between dispatches, zero if unlimited.
func (l RateLimit) Interval() time.Duration {
	if l.N <= 0 || l.Per <= 0 {
		return 0
	}
	return l.Per / time.Duration(l.N)
}

// Suite is a parsed scenario suite file.
type Suite struct {
	// Name labels the suite in reports.
	Name string
	// DefaultRuns applies to scenarios that do not set their own count.
	DefaultRuns int
	// Scenarios are the suite's test cases.
	Scenarios []Scenario
}
