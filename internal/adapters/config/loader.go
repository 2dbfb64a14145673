// Package config loads the harness configuration and scenario suite files.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"go.trai.ch/replay/internal/core/domain"
	"go.trai.ch/replay/internal/core/ports"
)

const (
	defaultParallelism = 4
	defaultRuns        = 1
	defaultBaseDelay   = time.Second
	defaultCeiling     = 3
	defaultAPIKeyEnv   = "REPLAY_API_KEY"
)

// Loader implements ports.ConfigLoader using YAML files.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a Loader.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// ConfigFile is the structure of replay.yaml.
type ConfigFile struct {
	Cache    CacheDTO    `yaml:"cache"`
	Suites   []string    `yaml:"suites"`
	Runs     int         `yaml:"runs"`
	Parallel int         `yaml:"parallelism"`
	Retry    RetryDTO    `yaml:"retry"`
	Endpoint EndpointDTO `yaml:"endpoint"`
}

// CacheDTO configures the replay cache.
type CacheDTO struct {
	Dir  string `yaml:"dir"`
	Mode string `yaml:"mode"`
	Salt string `yaml:"salt"`
}

// RetryDTO configures the backoff coordinator. Durations use Go notation
// ("500ms", "2s").
type RetryDTO struct {
	BaseDelay string `yaml:"baseDelay"`
	Ceiling   int    `yaml:"ceiling"`
}

// EndpointDTO configures the live endpoint.
type EndpointDTO struct {
	BaseURL   string `yaml:"baseUrl"`
	APIKeyEnv string `yaml:"apiKeyEnv"`
	Limit     struct {
		N   int    `yaml:"n"`
		Per string `yaml:"per"`
	} `yaml:"limit"`
}

// SuiteFile is the structure of a scenario suite file.
type SuiteFile struct {
	Name      string        `yaml:"name"`
	Runs      int           `yaml:"runs"`
	Scenarios []ScenarioDTO `yaml:"scenarios"`
}

// ScenarioDTO is one scenario definition in a suite file.
type ScenarioDTO struct {
	Name        string         `yaml:"name"`
	Model       string         `yaml:"model"`
	Prompt      string         `yaml:"prompt"`
	Messages    []MessageDTO   `yaml:"messages"`
	Temperature float64        `yaml:"temperature"`
	MaxTokens   int            `yaml:"maxTokens"`
	Runs        int            `yaml:"runs"`
	Optional    bool           `yaml:"optional"`
	Assert      []AssertionDTO `yaml:"assert"`
}

// MessageDTO is one prompt message.
type MessageDTO struct {
	Role    string `yaml:"role"`
	Content string `yaml:"content"`
}

// AssertionDTO is one pass/fail check.
type AssertionDTO struct {
	Contains string `yaml:"contains,omitempty"`
	Matches  string `yaml:"matches,omitempty"`
	NotEmpty bool   `yaml:"notEmpty,omitempty"`
}

// Load walks up from cwd until it finds replay.yaml and returns the resolved
// settings. All relative paths in the file are resolved against the directory
// containing it.
func (l *Loader) Load(cwd string) (*domain.Settings, error) {
	path, err := findConfig(cwd)
	if err != nil {
		return nil, err
	}
	root := filepath.Dir(path)

	//nolint:gosec // path is derived from the user's working directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrConfigReadFailed, err), "path", path)
	}

	var file ConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, zerr.With(errors.Join(domain.ErrConfigParseFailed, err), "path", path)
	}

	settings, err := resolve(root, file)
	if err != nil {
		return nil, err
	}
	if len(settings.SuitePaths) == 0 {
		l.Logger.Warn("no suites configured in " + domain.ConfigFileName)
	}
	return settings, nil
}

func findConfig(cwd string) (string, error) {
	dir := cwd
	for {
		path := filepath.Join(dir, domain.ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", zerr.With(domain.ErrConfigNotFound, "cwd", cwd)
		}
		dir = parent
	}
}

func resolve(root string, file ConfigFile) (*domain.Settings, error) {
	mode, err := domain.ParseCacheMode(file.Cache.Mode)
	if err != nil {
		return nil, err
	}

	settings := &domain.Settings{
		Root:         root,
		CacheDir:     filepath.Join(root, domain.DefaultCachePath()),
		CacheMode:    mode,
		CacheSalt:    file.Cache.Salt,
		BaselinePath: filepath.Join(root, domain.DefaultBaselinePath()),
		Parallelism:  defaultParallelism,
		Runs:         defaultRuns,
		Retry: domain.RetrySettings{
			BaseDelay: defaultBaseDelay,
			Ceiling:   defaultCeiling,
		},
		Endpoint: domain.EndpointSettings{
			BaseURL:   file.Endpoint.BaseURL,
			APIKeyEnv: defaultAPIKeyEnv,
			Limit:     domain.RateLimit{N: file.Endpoint.Limit.N},
		},
	}

	if file.Endpoint.Limit.Per != "" {
		per, err := parseDuration(file.Endpoint.Limit.Per, "endpoint.limit.per")
		if err != nil {
			return nil, err
		}
		settings.Endpoint.Limit.Per = per
	}

	if file.Cache.Dir != "" {
		settings.CacheDir = resolvePath(root, file.Cache.Dir)
	}
	for _, suite := range file.Suites {
		settings.SuitePaths = append(settings.SuitePaths, resolvePath(root, suite))
	}
	if file.Parallel > 0 {
		settings.Parallelism = file.Parallel
	}
	if file.Runs > 0 {
		settings.Runs = file.Runs
	}
	if file.Retry.BaseDelay != "" {
		delay, err := parseDuration(file.Retry.BaseDelay, "retry.baseDelay")
		if err != nil {
			return nil, err
		}
		settings.Retry.BaseDelay = delay
	}
	if file.Retry.Ceiling > 0 {
		settings.Retry.Ceiling = file.Retry.Ceiling
	}
	if file.Endpoint.APIKeyEnv != "" {
		settings.Endpoint.APIKeyEnv = file.Endpoint.APIKeyEnv
	}
	return settings, nil
}

func parseDuration(raw, field string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, zerr.With(zerr.With(domain.ErrConfigParseFailed, "field", field), "value", raw)
	}
	return d, nil
}

func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// LoadSuite parses one scenario suite file.
func (l *Loader) LoadSuite(path string) (domain.Suite, error) {
	//nolint:gosec // path comes from the resolved configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Suite{}, zerr.With(errors.Join(domain.ErrSuiteReadFailed, err), "path", path)
	}

	var file SuiteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return domain.Suite{}, zerr.With(errors.Join(domain.ErrSuiteParseFailed, err), "path", path)
	}

	suite := domain.Suite{
		Name:        file.Name,
		DefaultRuns: file.Runs,
	}
	if suite.Name == "" {
		suite.Name = suiteNameFromPath(path)
	}

	for _, dto := range file.Scenarios {
		sc, err := dto.toDomain()
		if err != nil {
			return domain.Suite{}, err
		}
		suite.Scenarios = append(suite.Scenarios, sc)
	}
	return suite, nil
}

func suiteNameFromPath(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func (d ScenarioDTO) toDomain() (domain.Scenario, error) {
	sc := domain.Scenario{
		Name:        d.Name,
		Model:       d.Model,
		Temperature: d.Temperature,
		MaxTokens:   d.MaxTokens,
		Runs:        d.Runs,
		Optional:    d.Optional,
	}

	// A bare prompt is shorthand for a single user message.
	if d.Prompt != "" {
		sc.Messages = append(sc.Messages, domain.ChatMessage{Role: "user", Content: d.Prompt})
	}
	for _, m := range d.Messages {
		sc.Messages = append(sc.Messages, domain.ChatMessage{Role: m.Role, Content: m.Content})
	}

	for _, a := range d.Assert {
		assertion, err := a.toDomain(d.Name)
		if err != nil {
			return domain.Scenario{}, err
		}
		sc.Assertions = append(sc.Assertions, assertion)
	}

	if err := sc.Validate(); err != nil {
		return domain.Scenario{}, err
	}
	return sc, nil
}

func (d AssertionDTO) toDomain(scenario string) (domain.Assertion, error) {
	switch {
	case d.Contains != "":
		return domain.Assertion{Kind: domain.AssertContains, Value: d.Contains}, nil
	case d.Matches != "":
		return domain.Assertion{Kind: domain.AssertMatches, Value: d.Matches}, nil
	case d.NotEmpty:
		return domain.Assertion{Kind: domain.AssertNotEmpty}, nil
	default:
		return domain.Assertion{}, zerr.With(zerr.With(domain.ErrScenarioInvalid, "scenario", scenario), "reason", "empty assertion")
	}
}
