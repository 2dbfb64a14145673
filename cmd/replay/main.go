// Package main is the entry point for the replay harness.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/replay/cmd/replay/commands"
	"go.trai.ch/replay/internal/app"
	"go.trai.ch/replay/internal/core/domain"
	_ "go.trai.ch/replay/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run(opts ...func(*app.App)) int {
	// 0. Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Initialize application components
	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		// Logger is not available yet if initialization failed
		// Write directly to stderr
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}

	// Apply options
	for _, opt := range opts {
		opt(components.App)
	}

	// 2. Interface - CLI
	cli := commands.New(components.App)

	// 3. Execution
	if err := cli.Execute(ctx); err != nil {
		switch {
		case errors.Is(err, domain.ErrRunFailed):
			// The report already shows the regressions.
			return 1
		case errors.Is(err, domain.ErrEntryExists),
			errors.Is(err, domain.ErrCorruptEntry),
			errors.Is(err, domain.ErrCacheMissRequired):
			components.Logger.Error(err)
			return 2
		default:
			components.Logger.Error(err)
			return 1
		}
	}
	return 0
}
