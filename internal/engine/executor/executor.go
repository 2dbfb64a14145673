// Package executor drives a suite of scenarios through the replay cache and
// folds the outcomes into baseline summaries.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.trai.ch/replay/internal/core/domain"
	"go.trai.ch/replay/internal/core/ports"
	"go.trai.ch/replay/internal/engine/runner"
)

// Config wires the executor's collaborators.
type Config struct {
	Runner    *runner.Runner
	Fetcher   ports.Fetcher
	Throttler ports.Throttler
	Endpoint  ports.Endpoint
	Logger    ports.Logger

	// Salt is the cache version salt for every request hash.
	Salt string
	// Live reports whether a real endpoint is reachable for misses.
	Live bool
	// DefaultRuns applies when neither scenario nor suite set a count.
	DefaultRuns int
}

// Executor runs every selected scenario its configured number of times, with
// the runner bounding concurrency. Runs replay from the cache when recorded;
// misses go through the throttling coordinator to the endpoint.
type Executor struct {
	cfg Config
}

// Result is the outcome of one suite execution.
type Result struct {
	// Summaries holds the fresh pass-rate summary per executed scenario.
	Summaries map[string]domain.BaselineSummary
	// Diff compares the fresh summaries against the previous baselines.
	Diff domain.BaselineDiff
	// Skipped names scenarios excluded by the filter.
	Skipped []string
	// Replayed counts runs answered from the cache.
	Replayed int
}

// New creates an Executor.
func New(cfg Config) *Executor {
	if cfg.DefaultRuns < 1 {
		cfg.DefaultRuns = 1
	}
	return &Executor{cfg: cfg}
}

type runOutcome struct {
	scenario string
	pass     bool
	replayed bool
}

// Execute runs suite and diffs the results against prev. filter selects
// scenarios by name; empty means all. Skipped scenarios keep their previous
// baseline in the diff instead of counting as removed.
func (e *Executor) Execute(
	ctx context.Context,
	suite domain.Suite,
	prev map[string]domain.BaselineSummary,
	filter []string,
) (Result, error) {
	selected, skipped := selectScenarios(suite, filter)
	if len(selected) == 0 {
		return Result{}, domain.ErrNoScenarios
	}
	for i := range selected {
		if err := selected[i].Validate(); err != nil {
			return Result{}, err
		}
	}

	outcomes, tasks, err := e.submit(ctx, suite, selected)
	if err != nil {
		return Result{}, err
	}
	for _, task := range tasks {
		if waitErr := task.Wait(); waitErr != nil {
			return Result{}, waitErr
		}
	}

	summaries := make(map[string]domain.BaselineSummary, len(selected))
	replayed := 0
	for _, sc := range selected {
		pass, fail := 0, 0
		for _, out := range outcomes {
			if out.scenario != sc.Name {
				continue
			}
			if out.pass {
				pass++
			} else {
				fail++
			}
			if out.replayed {
				replayed++
			}
		}
		summary := domain.NewBaselineSummary(sc.Name, pass, fail, sc.Optional)
		summaries[sc.Name] = summary
		e.cfg.Logger.Info(fmt.Sprintf("scenario %s: %d/%d passed", sc.Name, pass, summary.Samples()))
	}

	return Result{
		Summaries: summaries,
		Diff:      domain.DiffBaselines(prev, summaries, skipped),
		Skipped:   skipped,
		Replayed:  replayed,
	}, nil
}

// submit enqueues every run of every scenario on the runner. The outcomes
// slice is fully written once all returned tasks have completed.
func (e *Executor) submit(ctx context.Context, suite domain.Suite, selected []domain.Scenario) ([]runOutcome, []*runner.Task, error) {
	total := 0
	for _, sc := range selected {
		total += e.runsFor(suite, sc)
	}

	outcomes := make([]runOutcome, total)
	tasks := make([]*runner.Task, 0, total)

	idx := 0
	for _, sc := range selected {
		req, err := domain.NewCacheRequest(sc.Request(), e.cfg.Salt)
		if err != nil {
			return nil, nil, err
		}

		for run := range e.runsFor(suite, sc) {
			info := domain.RunInfo{Scenario: sc.Name, RunIndex: run, Live: e.cfg.Live}
			slot := idx
			tasks = append(tasks, e.cfg.Runner.Submit(ctx, func(ctx context.Context) error {
				out, runErr := e.runOne(ctx, sc, info, req)
				if runErr != nil {
					return runErr
				}
				outcomes[slot] = out
				return nil
			}))
			idx++
		}
	}
	return outcomes, tasks, nil
}

// runOne executes a single run. Cache protocol violations abort the suite;
// any other failure is folded into the scenario's fail count.
func (e *Executor) runOne(ctx context.Context, sc domain.Scenario, info domain.RunInfo, req domain.CacheRequest) (runOutcome, error) {
	resp, replayed, err := e.cfg.Fetcher.Fetch(ctx, info, sc.Model, req, func(ctx context.Context) (domain.ModelResponse, error) {
		return e.cfg.Throttler.Execute(ctx, sc.Model, func(ctx context.Context) (domain.ModelResponse, error) {
			return e.cfg.Endpoint.Complete(ctx, sc.Request())
		})
	})
	if err != nil {
		if fatal(err) {
			return runOutcome{}, err
		}
		e.cfg.Logger.Warn(fmt.Sprintf("run %s failed: %v", info, err))
		return runOutcome{scenario: sc.Name}, nil
	}
	if resp.RateLimited {
		e.cfg.Logger.Warn(fmt.Sprintf("run %s rate limited, counting as failed", info))
		return runOutcome{scenario: sc.Name}, nil
	}

	pass := true
	for _, a := range sc.Assertions {
		if !a.Holds(resp.Content) {
			pass = false
			break
		}
	}
	return runOutcome{scenario: sc.Name, pass: pass, replayed: replayed}, nil
}

func (e *Executor) runsFor(suite domain.Suite, sc domain.Scenario) int {
	if sc.Runs > 0 {
		return sc.Runs
	}
	if suite.DefaultRuns > 0 {
		return suite.DefaultRuns
	}
	return e.cfg.DefaultRuns
}

// fatal reports errors that indicate the replay guarantee is already broken;
// they abort the whole suite instead of failing a single run.
func fatal(err error) bool {
	return errors.Is(err, domain.ErrEntryExists) ||
		errors.Is(err, domain.ErrCorruptEntry) ||
		errors.Is(err, domain.ErrCacheMissRequired) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// selectScenarios partitions the suite by the name filter, keeping suite
// order for the selection and sorting the skipped names.
func selectScenarios(suite domain.Suite, filter []string) (selected []domain.Scenario, skipped []string) {
	if len(filter) == 0 {
		return suite.Scenarios, nil
	}

	wanted := make(map[string]bool, len(filter))
	for _, name := range filter {
		wanted[name] = true
	}

	for _, sc := range suite.Scenarios {
		if wanted[sc.Name] {
			selected = append(selected, sc)
		} else {
			skipped = append(skipped, sc.Name)
		}
	}
	sort.Strings(skipped)
	return selected, skipped
}
