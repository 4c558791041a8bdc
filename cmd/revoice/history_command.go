package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"revoice/internal/api"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var userID int64
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent voice replacement runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var filter *int64
			if cmd.Flags().Changed("user") {
				filter = &userID
			}
			logs, err := store.ListSynthesisLogs(cmd.Context(), filter, limit)
			if err != nil {
				return err
			}
			resp := api.FromSynthesisLogs(logs)
			if jsonOut {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			if len(resp.Entries) == 0 {
				fmt.Fprintln(out, "No synthesis history")
				return nil
			}
			rows := make([][]string, 0, len(resp.Entries))
			for _, e := range resp.Entries {
				voice := "preset"
				if e.VoiceID != nil {
					voice = strconv.FormatInt(*e.VoiceID, 10)
				}
				rows = append(rows, []string{
					strconv.FormatInt(e.ID, 10),
					e.CreatedAt,
					strconv.FormatInt(e.UserID, 10),
					e.TaskID,
					voice,
					strconv.Itoa(e.TextLength),
					fmt.Sprintf("%.1fs", e.Duration),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Created", "User", "Task", "Voice", "Chars", "Duration"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show (0 for all)")
	cmd.Flags().Int64Var(&userID, "user", 0, "Only show runs by this user id")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}
