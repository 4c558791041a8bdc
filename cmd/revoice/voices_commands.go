package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"revoice/internal/api"
	"revoice/internal/catalog"
	"revoice/internal/fileutil"
	"revoice/internal/pcm"
	"revoice/internal/workflow"
)

func newVoicesCommand(ctx *commandContext) *cobra.Command {
	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "Manage preset and custom voices",
	}
	voicesCmd.AddCommand(newVoicesListCommand(ctx))
	voicesCmd.AddCommand(newVoicesAddCommand(ctx))
	voicesCmd.AddCommand(newVoicesRemoveCommand(ctx))
	voicesCmd.AddCommand(newVoicesSyncCommand(ctx))
	return voicesCmd
}

func newVoicesListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List preset speakers and catalog voices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			engine, err := workflow.NewSpeechEngine(cfg)
			if err != nil {
				return err
			}
			presets, presetErr := engine.PresetVoices(cmd.Context())

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			stored, err := store.ListVoices(cmd.Context(), 0, true)
			if err != nil {
				return err
			}

			resp := api.FromVoices(presets, stored)
			if jsonOut {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			if presetErr != nil {
				fmt.Fprintf(out, "Preset speakers unavailable: %v\n", presetErr)
			}
			rows := make([][]string, 0, len(resp.Presets)+len(resp.Voices))
			for _, v := range resp.Presets {
				rows = append(rows, []string{strconv.Itoa(v.Index), v.Name, "engine", "yes", ""})
			}
			for _, v := range stored {
				rows = append(rows, []string{strconv.FormatInt(v.ID, 10), v.Name, strconv.FormatInt(v.UserID, 10), yesNo(v.IsPreset), truncate(v.Transcript, 40)})
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No voices available")
				return nil
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Name", "Owner", "Preset", "Transcript"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newVoicesAddCommand(ctx *commandContext) *cobra.Command {
	var transcriptText string
	var userID int64
	cmd := &cobra.Command{
		Use:   "add <name> <reference.wav>",
		Short: "Register a reference clip as a custom voice",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source := args[1]
			clip, err := pcm.ReadWAV(source)
			if err != nil {
				return fmt.Errorf("reference clip must be a PCM WAV file: %w", err)
			}
			if clip.Empty() {
				return fmt.Errorf("reference clip %s contains no audio", source)
			}

			filename := uuid.NewString() + ".wav"
			dest := filepath.Join(cfg.Paths.VoiceDir, filename)
			if err := fileutil.CopyFile(source, dest); err != nil {
				return fmt.Errorf("store reference clip: %w", err)
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			voice, err := store.AddVoice(cmd.Context(), catalog.Voice{
				UserID:     userID,
				Name:       args[0],
				Filename:   filename,
				Transcript: transcriptText,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added voice %d (%s, %.1fs reference)\n", voice.ID, voice.Name, clip.Duration())
			return nil
		},
	}
	cmd.Flags().StringVar(&transcriptText, "transcript", "", "Text spoken in the reference clip")
	cmd.Flags().Int64Var(&userID, "user", 0, "Owning user id")
	return cmd
}

func newVoicesRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a catalog voice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid voice id %q", args[0])
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.DeleteVoice(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed voice %d\n", id)
			return nil
		},
	}
}

func newVoicesSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Record the engine's preset speakers in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			engine, err := workflow.NewSpeechEngine(cfg)
			if err != nil {
				return err
			}
			presets, err := engine.PresetVoices(cmd.Context())
			if err != nil {
				return fmt.Errorf("list preset speakers: %w", err)
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			added, err := store.SyncPresets(cmd.Context(), presets)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d preset speakers (%d new)\n", len(presets), added)
			return nil
		},
	}
}

func truncate(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n-1]) + "…"
}
