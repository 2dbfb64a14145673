package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/replay/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [scenarios...]",
		Short: "Run the configured scenario suites",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, _ := cmd.Flags().GetInt("runs")
			parallelism, _ := cmd.Flags().GetInt("parallelism")
			cacheMode, _ := cmd.Flags().GetString("cache-mode")
			update, _ := cmd.Flags().GetBool("update-baseline")
			jsonOutput, _ := cmd.Flags().GetBool("json")

			return c.app.Run(cmd.Context(), app.RunOptions{
				Filters:        args,
				Runs:           runs,
				Parallelism:    parallelism,
				CacheMode:      cacheMode,
				UpdateBaseline: update,
				JSONOutput:     jsonOutput,
			})
		},
	}
	cmd.Flags().IntP("runs", "r", 0, "Repetitions per scenario (0 uses the configured default)")
	cmd.Flags().IntP("parallelism", "p", 0, "Concurrent run ceiling (0 uses the configured default)")
	cmd.Flags().String("cache-mode", "", "Cache mode: default, disabled, or require")
	cmd.Flags().BoolP("update-baseline", "u", false, "Persist the fresh summaries as the new baseline")
	cmd.Flags().Bool("json", false, "Emit the report as JSON")
	return cmd
}
