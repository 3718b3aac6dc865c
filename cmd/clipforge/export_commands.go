package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run and monitor project exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newExportStartCommand(ctx))
	cmd.AddCommand(newExportStatusCommand(ctx))
	cmd.AddCommand(newExportCancelCommand(ctx))

	return cmd
}

func newExportStartCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var resolution string
	var quality string
	var burnCaptions bool

	cmd := &cobra.Command{
		Use:   "start <project-id>",
		Short: "Start exporting a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var settings *api.StartExportRequest
			if resolution != "" || quality != "" || cmd.Flags().Changed("burn-captions") {
				settings = &api.StartExportRequest{
					Resolution: resolution,
					Quality:    quality,
				}
				if cmd.Flags().Changed("burn-captions") {
					settings.BurnCaptions = &burnCaptions
				}
			}
			return ctx.withClient(func(client *apiClient) error {
				snapshot, err := client.StartExport(args[0], settings)
				if err != nil {
					return err
				}
				printExportStatus(cmd, snapshot)
				if !wait {
					return nil
				}
				return followExport(cmd, client, args[0])
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the export finishes")
	cmd.Flags().StringVar(&resolution, "resolution", "", "Output resolution (original, 1080p, 720p, 480p)")
	cmd.Flags().StringVar(&quality, "quality", "", "Quality tier (high, medium, low)")
	cmd.Flags().BoolVar(&burnCaptions, "burn-captions", true, "Burn captions into the video")
	return cmd
}

func newExportStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <project-id>",
		Short: "Show export progress for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				snapshot, err := client.ExportStatus(args[0])
				if err != nil {
					return err
				}
				printExportStatus(cmd, snapshot)
				return nil
			})
		},
	}
}

func newExportCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <project-id>",
		Short: "Request cancellation of a running export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				snapshot, err := client.CancelExport(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cancellation requested.")
				printExportStatus(cmd, snapshot)
				return nil
			})
		},
	}
}

// followExport polls status until the export reaches a terminal state.
func followExport(cmd *cobra.Command, client *apiClient, projectID string) error {
	for {
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(time.Second):
		}

		snapshot, err := client.ExportStatus(projectID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-10s %s %5.1f%%\n", snapshot.State, snapshot.Phase, snapshot.Percent)

		switch snapshot.State {
		case "done":
			fmt.Fprintf(cmd.OutOrStdout(), "Export complete: %s\n", snapshot.ExportURL)
			return nil
		case "failed":
			return fmt.Errorf("export failed: %s: %s", snapshot.ErrorKind, snapshot.ErrorMessage)
		case "idle":
			return fmt.Errorf("export is no longer running")
		}
	}
}

func printExportStatus(cmd *cobra.Command, snapshot api.ExportStatusResponse) {
	pairs := [][2]string{
		{"State", snapshot.State},
	}
	if snapshot.Phase != "" {
		pairs = append(pairs, [2]string{"Phase", snapshot.Phase})
	}
	pairs = append(pairs, [2]string{"Percent", fmt.Sprintf("%.1f", snapshot.Percent)})
	if snapshot.ExportURL != "" {
		pairs = append(pairs, [2]string{"Export URL", snapshot.ExportURL})
	}
	if snapshot.ErrorMessage != "" {
		pairs = append(pairs, [2]string{"Error", fmt.Sprintf("%s: %s", snapshot.ErrorKind, snapshot.ErrorMessage)})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderDetail(pairs))
}
