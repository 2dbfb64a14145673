// Package app implements the application layer for replay.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"

	"go.trai.ch/replay/internal/adapters/baseline" //nolint:depguard // Wired in app layer
	"go.trai.ch/replay/internal/adapters/cache"    //nolint:depguard // Wired in app layer
	"go.trai.ch/replay/internal/adapters/endpoint" //nolint:depguard // Wired in app layer
	"go.trai.ch/replay/internal/adapters/store"    //nolint:depguard // Wired in app layer
	"go.trai.ch/replay/internal/core/domain"
	"go.trai.ch/replay/internal/core/ports"
	"go.trai.ch/replay/internal/engine/executor"
	"go.trai.ch/replay/internal/engine/runner"
	"go.trai.ch/replay/internal/engine/throttle"
	"go.trai.ch/replay/internal/report"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	out          io.Writer

	// newEndpoint builds the live endpoint; tests replace it with a stub.
	newEndpoint func(cfg domain.EndpointSettings, apiKey string, logger ports.Logger) ports.Endpoint
}

// New creates a new App instance.
func New(loader ports.ConfigLoader, logger ports.Logger) *App {
	return &App{
		configLoader: loader,
		logger:       logger,
		out:          os.Stdout,
		newEndpoint: func(cfg domain.EndpointSettings, apiKey string, logger ports.Logger) ports.Endpoint {
			return endpoint.NewOpenAI(cfg, apiKey, logger)
		},
	}
}

// SetOutput redirects report output. Used for testing.
func (a *App) SetOutput(w io.Writer) {
	a.out = w
}

// WithEndpointFactory replaces the live endpoint constructor. Used for testing.
func (a *App) WithEndpointFactory(fn func(cfg domain.EndpointSettings, apiKey string, logger ports.Logger) ports.Endpoint) *App {
	a.newEndpoint = fn
	return a
}

// RunOptions carries the per-invocation overrides for Run.
type RunOptions struct {
	// Filters selects scenarios by name; empty means all.
	Filters []string
	// Runs overrides the configured repetition count when positive.
	Runs int
	// Parallelism overrides the configured concurrency ceiling when positive.
	Parallelism int
	// CacheMode overrides the configured cache mode when non-empty.
	CacheMode string
	// UpdateBaseline persists the fresh summaries after the run.
	UpdateBaseline bool
	// JSONOutput switches the report to JSON.
	JSONOutput bool
}

// Run executes the configured suites and reports the baseline diff. A
// non-optional worsened scenario makes the run fail.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	settings, err := a.loadSettings(opts)
	if err != nil {
		return err
	}
	suite, err := a.loadSuites(settings)
	if err != nil {
		return err
	}

	st, err := store.Open(settings.CacheDir)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	apiKey := os.Getenv(settings.Endpoint.APIKeyEnv)
	live := apiKey != ""
	if !live && settings.CacheMode == domain.CacheDefault {
		a.logger.Info("no API key in $" + settings.Endpoint.APIKeyEnv + ", misses cannot be recorded")
	}

	locks := cache.NewLockMap()
	fetcher := cache.NewFetcher(
		cache.NewSlotted(st, locks, cache.KindModelCall, settings.CacheSalt),
		locks,
		settings.CacheMode,
		a.logger,
	)
	coordinator := throttle.NewCoordinator(settings.Endpoint.Limit, settings.Retry, a.logger)
	tasks := runner.New(settings.Parallelism)
	defer tasks.Close()

	exec := executor.New(executor.Config{
		Runner:      tasks,
		Fetcher:     fetcher,
		Throttler:   coordinator,
		Endpoint:    a.newEndpoint(settings.Endpoint, apiKey, a.logger),
		Logger:      a.logger,
		Salt:        settings.CacheSalt,
		Live:        live,
		DefaultRuns: settings.Runs,
	})

	baselines := baseline.NewStore(settings.BaselinePath)
	prev, err := baselines.Load()
	if err != nil {
		return err
	}

	res, err := exec.Execute(ctx, suite, prev, opts.Filters)
	if err != nil {
		return err
	}

	if err := a.writeReport(report.Report{
		Suite:     suite.Name,
		Diff:      res.Diff,
		Summaries: res.Summaries,
		Replayed:  res.Replayed,
		Exhausted: coordinator.Exhausted(),
	}, opts.JSONOutput); err != nil {
		return err
	}

	if opts.UpdateBaseline {
		if err := baselines.Save(res.Summaries, res.Skipped); err != nil {
			return err
		}
		a.logger.Info("baseline updated: " + settings.BaselinePath)
	}

	if res.Diff.HasRegressions() {
		return zerr.With(domain.ErrRunFailed, "worsened", strconv.Itoa(len(res.Diff.Worsened)))
	}
	return nil
}

// Compare diffs the summaries in path against the persisted baseline without
// executing anything.
func (a *App) Compare(_ context.Context, path string, jsonOutput bool) error {
	settings, err := a.loadSettings(RunOptions{})
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return zerr.With(domain.ErrBaselineReadFailed, "path", path)
		}
		return errors.Join(domain.ErrBaselineReadFailed, err)
	}

	prev, err := baseline.NewStore(settings.BaselinePath).Load()
	if err != nil {
		return err
	}
	curr, err := baseline.NewStore(path).Load()
	if err != nil {
		return err
	}

	diff := domain.DiffBaselines(prev, curr, nil)
	if err := a.writeReport(report.Report{
		Suite:     path,
		Diff:      diff,
		Summaries: curr,
	}, jsonOutput); err != nil {
		return err
	}

	if diff.HasRegressions() {
		return zerr.With(domain.ErrRunFailed, "worsened", strconv.Itoa(len(diff.Worsened)))
	}
	return nil
}

// GC compacts the cache: every live entry is migrated into a fresh base
// layer, then the overlays are deleted.
func (a *App) GC(ctx context.Context) error {
	settings, err := a.loadSettings(RunOptions{})
	if err != nil {
		return err
	}

	st, err := store.Open(settings.CacheDir)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	keys := st.Keys()
	if err := st.StartGC(); err != nil {
		return err
	}

	// Reading a key during a GC window migrates it into the replacement base.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(settings.Parallelism)
	for _, key := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, _, getErr := st.Get(key)
			return getErr
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := st.FinishGC(); err != nil {
		return err
	}
	a.logger.Info(fmt.Sprintf("compacted %d entries in %s", len(keys), settings.CacheDir))
	return nil
}

func (a *App) loadSettings(opts RunOptions) (*domain.Settings, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve working directory")
	}

	settings, err := a.configLoader.Load(cwd)
	if err != nil {
		return nil, err
	}

	if opts.Runs > 0 {
		settings.Runs = opts.Runs
	}
	if opts.Parallelism > 0 {
		settings.Parallelism = opts.Parallelism
	}
	if opts.CacheMode != "" {
		mode, err := domain.ParseCacheMode(opts.CacheMode)
		if err != nil {
			return nil, err
		}
		settings.CacheMode = mode
	}
	return settings, nil
}

// loadSuites merges all configured suite files into one suite. Suite-level
// default run counts are baked into the scenarios so the merge loses nothing.
func (a *App) loadSuites(settings *domain.Settings) (domain.Suite, error) {
	if len(settings.SuitePaths) == 0 {
		return domain.Suite{}, zerr.With(domain.ErrNoScenarios, "reason", "no suites configured")
	}

	merged := domain.Suite{Name: "all"}
	seen := make(map[string]bool)

	for i, path := range settings.SuitePaths {
		suite, err := a.configLoader.LoadSuite(path)
		if err != nil {
			return domain.Suite{}, err
		}
		if i == 0 && len(settings.SuitePaths) == 1 && suite.Name != "" {
			merged.Name = suite.Name
		}
		for _, sc := range suite.Scenarios {
			if seen[sc.Name] {
				return domain.Suite{}, zerr.With(zerr.With(domain.ErrScenarioInvalid, "scenario", sc.Name), "reason", "duplicate name across suites")
			}
			seen[sc.Name] = true

			if sc.Runs == 0 {
				sc.Runs = suite.DefaultRuns
			}
			merged.Scenarios = append(merged.Scenarios, sc)
		}
	}

	return merged, nil
}

func (a *App) writeReport(r report.Report, jsonOutput bool) error {
	if jsonOutput {
		return report.JSON(a.out, r)
	}
	return report.Text(a.out, r)
}
