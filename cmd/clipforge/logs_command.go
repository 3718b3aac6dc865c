package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				result, err := client.TailLogs(-1, limit, 0)
				if err != nil {
					return err
				}
				for _, line := range result.Lines {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				if !follow {
					return nil
				}

				offset := result.Offset
				for {
					if err := cmd.Context().Err(); err != nil {
						return err
					}
					result, err := client.TailLogs(offset, 0, 5000)
					if err != nil {
						return err
					}
					for _, line := range result.Lines {
						fmt.Fprintln(cmd.OutOrStdout(), line)
					}
					offset = result.Offset
				}
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep polling for new lines")
	return cmd
}
