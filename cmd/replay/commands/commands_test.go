package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/replay/cmd/replay/commands"
	"go.trai.ch/replay/internal/app"
	"go.trai.ch/replay/internal/build"
)

type mockApp struct {
	runFunc     func(ctx context.Context, opts app.RunOptions) error
	compareFunc func(ctx context.Context, path string, jsonOutput bool) error
	gcFunc      func(ctx context.Context) error
}

func (m *mockApp) Run(ctx context.Context, opts app.RunOptions) error {
	if m.runFunc != nil {
		return m.runFunc(ctx, opts)
	}
	return nil
}

func (m *mockApp) Compare(ctx context.Context, path string, jsonOutput bool) error {
	if m.compareFunc != nil {
		return m.compareFunc(ctx, path, jsonOutput)
	}
	return nil
}

func (m *mockApp) GC(ctx context.Context) error {
	if m.gcFunc != nil {
		return m.gcFunc(ctx)
	}
	return nil
}

func TestCommands_Run(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var capturedOpts app.RunOptions
		called := false

		mock := &mockApp{
			runFunc: func(_ context.Context, opts app.RunOptions) error {
				capturedOpts = opts
				called = true
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"run", "greeting", "--runs", "5", "--cache-mode", "require", "--update-baseline", "--json"})

		// We don't care about output here, just flag propagation
		err := cli.Execute(context.Background())
		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, []string{"greeting"}, capturedOpts.Filters)
		assert.Equal(t, 5, capturedOpts.Runs)
		assert.Equal(t, "require", capturedOpts.CacheMode)
		assert.True(t, capturedOpts.UpdateBaseline)
		assert.True(t, capturedOpts.JSONOutput)
	})

	t.Run("runs everything when no scenarios provided", func(t *testing.T) {
		var capturedOpts app.RunOptions
		mock := &mockApp{
			runFunc: func(_ context.Context, opts app.RunOptions) error {
				capturedOpts = opts
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"run"})

		err := cli.Execute(context.Background())
		require.NoError(t, err)
		assert.Empty(t, capturedOpts.Filters)
		assert.Zero(t, capturedOpts.Runs)
	})

	t.Run("returns error on run failure", func(t *testing.T) {
		mock := &mockApp{
			runFunc: func(_ context.Context, _ app.RunOptions) error {
				return errors.New("simulated error")
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"run"})
		// Silence output to avoid polluting test logs
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))

		err := cli.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "simulated error")
	})
}

func TestCommands_Compare(t *testing.T) {
	t.Run("passes the summaries path", func(t *testing.T) {
		var capturedPath string
		var capturedJSON bool

		mock := &mockApp{
			compareFunc: func(_ context.Context, path string, jsonOutput bool) error {
				capturedPath = path
				capturedJSON = jsonOutput
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"compare", "candidate.json", "--json"})

		err := cli.Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "candidate.json", capturedPath)
		assert.True(t, capturedJSON)
	})

	t.Run("requires the summaries argument", func(t *testing.T) {
		mock := &mockApp{
			compareFunc: func(_ context.Context, _ string, _ bool) error {
				panic("should not be called")
			},
		}

		cli := commands.New(mock)
		cli.SetArgs([]string{"compare"})
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))

		err := cli.Execute(context.Background())
		require.Error(t, err)
	})
}

func TestCommands_GC(t *testing.T) {
	called := false
	mock := &mockApp{
		gcFunc: func(_ context.Context) error {
			called = true
			return nil
		},
	}

	cli := commands.New(mock)
	cli.SetArgs([]string{"gc"})

	err := cli.Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, called)
}

func TestCommands_Version(t *testing.T) {
	mock := &mockApp{}
	cli := commands.New(mock)

	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs([]string{"version"})

	err := cli.Execute(context.Background())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), build.Version)
}
