package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Inspect and manage editing projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newProjectsListCommand(ctx))
	cmd.AddCommand(newProjectsShowCommand(ctx))
	cmd.AddCommand(newProjectsCreateCommand(ctx))

	return cmd
}

func newProjectsListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				items, err := client.ListProjects(strings.TrimSpace(statusFlag))
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No projects.")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, p := range items {
					rows = append(rows, []string{
						shortProjectID(p.ID),
						p.Title,
						p.Status,
						formatProgress(p),
						p.UpdatedAt,
					})
				}
				headers := []string{"ID", "Title", "Status", "Progress", "Updated"}
				aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Only show projects with this status")
	return cmd
}

func newProjectsShowCommand(ctx *commandContext) *cobra.Command {
	var showConfig bool

	cmd := &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show details for a single project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				p, err := client.GetProject(args[0])
				if err != nil {
					return err
				}

				pairs := [][2]string{
					{"ID", p.ID},
					{"Title", p.Title},
					{"Source", p.SourceURL},
					{"Status", p.Status},
					{"Progress", formatProgress(p)},
				}
				if p.ExportURL != "" {
					pairs = append(pairs, [2]string{"Export URL", p.ExportURL})
				}
				if p.ErrorMessage != "" {
					pairs = append(pairs, [2]string{"Error", fmt.Sprintf("%s: %s", p.ErrorKind, p.ErrorMessage)})
				}
				pairs = append(pairs,
					[2]string{"Created", p.CreatedAt},
					[2]string{"Updated", p.UpdatedAt},
				)
				fmt.Fprintln(cmd.OutOrStdout(), renderDetail(pairs))

				if showConfig && len(p.Config) > 0 {
					fmt.Fprintln(cmd.OutOrStdout(), string(p.Config))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showConfig, "config", false, "Print the project's edit configuration JSON")
	return cmd
}

func newProjectsCreateCommand(ctx *commandContext) *cobra.Command {
	var titleFlag string

	cmd := &cobra.Command{
		Use:   "create <source-url>",
		Short: "Register a new project for a source video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *apiClient) error {
				p, err := client.CreateProject(strings.TrimSpace(titleFlag), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", p.ID, p.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&titleFlag, "title", "", "Project title")
	return cmd
}

func formatProgress(p api.ProjectResponse) string {
	if p.ProgressPhase == "" {
		return "-"
	}
	return fmt.Sprintf("%s %.0f%%", p.ProgressPhase, p.ProgressPercent)
}

func shortProjectID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
