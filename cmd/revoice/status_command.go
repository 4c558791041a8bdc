package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"revoice/internal/api"
	"revoice/internal/apiclient"
	"revoice/internal/config"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var server, token string
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status [task-id]",
		Short: "Show server health and task progress",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(server) == "" {
				server = cfg.Paths.APIBind
			}
			if strings.TrimSpace(token) == "" {
				token = defaultToken(cfg)
			}
			client, err := apiclient.New(server, token)
			if err != nil {
				return fmt.Errorf("invalid server address: %w", err)
			}

			if len(args) == 1 {
				t, err := client.Task(cmd.Context(), args[0])
				if err != nil {
					return explainClientError(server, err)
				}
				if jsonOut {
					return writeJSON(cmd, t)
				}
				printTask(cmd, t)
				return nil
			}

			health, err := client.Health(cmd.Context())
			if err != nil {
				return explainClientError(server, err)
			}
			list, err := client.Tasks(cmd.Context())
			if err != nil {
				return explainClientError(server, err)
			}
			if jsonOut {
				return writeJSON(cmd, struct {
					Health api.Health `json:"health"`
					Tasks  []api.Task `json:"tasks"`
				}{health, list.Tasks})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Server: %s (%s, %d active)\n", server, health.Status, health.ActiveTasks)
			for _, check := range health.Checks {
				if !check.Passed {
					fmt.Fprintf(out, "  ! %s: %s\n", check.Name, check.Detail)
				}
			}
			if len(list.Tasks) == 0 {
				fmt.Fprintln(out, "No tasks")
				return nil
			}
			rows := make([][]string, 0, len(list.Tasks))
			for _, t := range list.Tasks {
				rows = append(rows, []string{t.TaskID, t.Status, strconv.Itoa(t.Progress) + "%", truncate(t.OriginalName, 32), truncate(t.Message, 48)})
			}
			fmt.Fprintln(out, renderTable([]string{"Task", "Status", "Progress", "Video", "Message"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "API address (defaults to paths.api_bind)")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token (defaults to the first admin user)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func printTask(cmd *cobra.Command, t api.Task) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Task:     %s\n", t.TaskID)
	if t.OriginalName != "" {
		fmt.Fprintf(out, "Video:    %s\n", t.OriginalName)
	}
	fmt.Fprintf(out, "Status:   %s (%d%%)\n", t.Status, t.Progress)
	if t.Message != "" {
		fmt.Fprintf(out, "Message:  %s\n", t.Message)
	}
	if len(t.Segments) > 0 {
		fmt.Fprintf(out, "Segments: %d\n", len(t.Segments))
	}
	if t.SynthesizedSegments > 0 || len(t.FailedSegments) > 0 {
		fmt.Fprintf(out, "Synthesized: %d (failed %d)\n", t.SynthesizedSegments, len(t.FailedSegments))
	}
	if t.Downloadable {
		fmt.Fprintf(out, "Download: /api/voice-replace/download/%s\n", t.TaskID)
	}
}

// defaultToken picks the first admin token so local operators see every task.
func defaultToken(cfg *config.Config) string {
	for _, user := range cfg.Auth.Users {
		if user.Admin {
			return user.Token
		}
	}
	return ""
}

func explainClientError(server string, err error) error {
	if apiclient.IsUnavailable(err) {
		return fmt.Errorf("revoice server not reachable at %s; start it with `revoice serve`", server)
	}
	return err
}
