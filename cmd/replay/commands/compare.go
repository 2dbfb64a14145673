package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <summaries-file>",
		Short: "Diff a summaries file against the stored baseline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOutput, _ := cmd.Flags().GetBool("json")
			return c.app.Compare(cmd.Context(), args[0], jsonOutput)
		},
	}
	cmd.Flags().Bool("json", false, "Emit the report as JSON")
	return cmd
}
