package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				health, err := client.Health()
				if err != nil {
					return err
				}
				uptime := (time.Duration(health.UptimeS) * time.Second).String()
				pairs := [][2]string{
					{"Status", health.Status},
					{"Version", health.Version},
					{"Uptime", uptime},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderDetail(pairs))
				return nil
			})
		},
	}
}
