package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"go.trai.ch/replay/internal/adapters/cache"
	"go.trai.ch/replay/internal/adapters/store"
	"go.trai.ch/replay/internal/core/domain"
	"go.trai.ch/replay/internal/core/ports"
	"go.trai.ch/replay/internal/core/ports/mocks"
	"go.trai.ch/replay/internal/engine/runner"
)

type fixture struct {
	store    *store.Layered
	endpoint *mocks.MockEndpoint
	executor *Executor
}

// passthrough satisfies ports.Throttler without pacing; coordinator behavior
// has its own tests.
type passthrough struct{}

func (passthrough) Execute(ctx context.Context, _ string, call ports.CallFunc) (domain.ModelResponse, error) {
	return call(ctx)
}

func newFixture(t *testing.T, dir string, mode domain.CacheMode, live bool) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	s, err := store.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	locks := cache.NewLockMap()
	slotted := cache.NewSlotted(s, locks, cache.KindModelCall, "v1")
	endpoint := mocks.NewMockEndpoint(ctrl)

	return &fixture{
		store:    s,
		endpoint: endpoint,
		executor: New(Config{
			Runner:      runner.New(4),
			Fetcher:     cache.NewFetcher(slotted, locks, mode, logger),
			Throttler:   passthrough{},
			Endpoint:    endpoint,
			Logger:      logger,
			Salt:        "v1",
			Live:        live,
			DefaultRuns: 1,
		}),
	}
}

func testSuite(runs int) domain.Suite {
	return domain.Suite{
		Name:        "smoke",
		DefaultRuns: runs,
		Scenarios: []domain.Scenario{
			{
				Name:  "greeting",
				Model: "gpt-test",
				Messages: []domain.ChatMessage{
					{Role: "user", Content: "say hello"},
				},
				Assertions: []domain.Assertion{
					{Kind: domain.AssertContains, Value: "hello"},
				},
			},
		},
	}
}

func TestExecutor_RecordsThenReplays(t *testing.T) {
	dir := t.TempDir()
	suite := testSuite(3)

	first := newFixture(t, dir, domain.CacheDefault, true)
	// Three runs, three slots, three live calls.
	first.endpoint.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		Return(domain.ModelResponse{Content: "hello there", Status: 200}, nil).
		Times(3)

	res, err := first.executor.Execute(t.Context(), suite, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.NewBaselineSummary("greeting", 3, 0, false), res.Summaries["greeting"])
	assert.Equal(t, 0, res.Replayed)
	require.NoError(t, first.store.Close())

	// A second pass over the same store replays every run without touching
	// the endpoint.
	second := newFixture(t, dir, domain.CacheDefault, true)
	res, err = second.executor.Execute(t.Context(), suite, res.Summaries, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Replayed)
	require.Len(t, res.Diff.Unchanged, 1)
	assert.Equal(t, "greeting", res.Diff.Unchanged[0].Name)
}

func TestExecutor_RequireModeMissIsFatal(t *testing.T) {
	f := newFixture(t, t.TempDir(), domain.CacheRequire, true)

	_, err := f.executor.Execute(t.Context(), testSuite(1), nil, nil)
	require.ErrorIs(t, err, domain.ErrCacheMissRequired)
}

func TestExecutor_OfflineMissIsFatal(t *testing.T) {
	f := newFixture(t, t.TempDir(), domain.CacheDefault, false)

	_, err := f.executor.Execute(t.Context(), testSuite(1), nil, nil)
	require.ErrorIs(t, err, domain.ErrCacheMissRequired)
}

func TestExecutor_FailedAssertionCountsAsFail(t *testing.T) {
	f := newFixture(t, t.TempDir(), domain.CacheDefault, true)
	f.endpoint.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		Return(domain.ModelResponse{Content: "goodbye", Status: 200}, nil).
		Times(2)

	res, err := f.executor.Execute(t.Context(), testSuite(2), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.NewBaselineSummary("greeting", 0, 2, false), res.Summaries["greeting"])
}

func TestExecutor_EndpointErrorFailsRunNotSuite(t *testing.T) {
	f := newFixture(t, t.TempDir(), domain.CacheDefault, true)
	f.endpoint.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		Return(domain.ModelResponse{}, domain.ErrEndpointFailed).
		Times(2)

	res, err := f.executor.Execute(t.Context(), testSuite(2), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.NewBaselineSummary("greeting", 0, 2, false), res.Summaries["greeting"])
}

func TestExecutor_ExhaustedRateLimitFailsRunUncached(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir, domain.CacheDefault, true)
	f.endpoint.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		Return(domain.ModelResponse{RateLimited: true, Status: 429}, nil)

	res, err := f.executor.Execute(t.Context(), testSuite(1), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.NewBaselineSummary("greeting", 0, 1, false), res.Summaries["greeting"])
	require.NoError(t, f.store.Close())

	// The rate-limited response must not have been recorded: a rerun against
	// the same store still reaches the endpoint.
	rerun := newFixture(t, dir, domain.CacheDefault, true)
	rerun.endpoint.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		Return(domain.ModelResponse{Content: "hello again", Status: 200}, nil)

	res, err = rerun.executor.Execute(t.Context(), testSuite(1), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.NewBaselineSummary("greeting", 1, 0, false), res.Summaries["greeting"])
}

func TestExecutor_FilterSkipsAndPreservesBaseline(t *testing.T) {
	suite := testSuite(1)
	suite.Scenarios = append(suite.Scenarios, domain.Scenario{
		Name:  "refusal",
		Model: "gpt-test",
		Messages: []domain.ChatMessage{
			{Role: "user", Content: "do something forbidden"},
		},
		Assertions: []domain.Assertion{
			{Kind: domain.AssertNotEmpty},
		},
	})

	f := newFixture(t, t.TempDir(), domain.CacheDefault, true)
	f.endpoint.EXPECT().
		Complete(gomock.Any(), gomock.Any()).
		Return(domain.ModelResponse{Content: "hello world", Status: 200}, nil)

	prev := map[string]domain.BaselineSummary{
		"greeting": domain.NewBaselineSummary("greeting", 1, 0, false),
		"refusal":  domain.NewBaselineSummary("refusal", 5, 0, false),
	}

	res, err := f.executor.Execute(t.Context(), suite, prev, []string{"greeting"})
	require.NoError(t, err)
	assert.Equal(t, []string{"refusal"}, res.Skipped)
	assert.NotContains(t, res.Summaries, "refusal")
	// Skipped scenarios are neither removed nor compared.
	assert.Empty(t, res.Diff.Removed)
}

func TestExecutor_NoScenariosSelected(t *testing.T) {
	f := newFixture(t, t.TempDir(), domain.CacheDefault, true)

	_, err := f.executor.Execute(t.Context(), testSuite(1), nil, []string{"nope"})
	require.ErrorIs(t, err, domain.ErrNoScenarios)
}

func TestExecutor_InvalidScenarioRejected(t *testing.T) {
	f := newFixture(t, t.TempDir(), domain.CacheDefault, true)

	suite := testSuite(1)
	suite.Scenarios[0].Model = ""
	_, err := f.executor.Execute(t.Context(), suite, nil, nil)
	require.ErrorIs(t, err, domain.ErrScenarioInvalid)
}

func TestExecutor_CacheDisabledAlwaysCallsEndpoint(t *testing.T) {
	dir := t.TempDir()
	for range 2 {
		f := newFixture(t, dir, domain.CacheDisabled, true)
		f.endpoint.EXPECT().
			Complete(gomock.Any(), gomock.Any()).
			Return(domain.ModelResponse{Content: "hello", Status: 200}, nil)

		res, err := f.executor.Execute(t.Context(), testSuite(1), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Replayed)
		require.NoError(t, f.store.Close())
	}
}
