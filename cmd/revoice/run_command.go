package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"revoice/internal/fileutil"
	"revoice/internal/services"
	"revoice/internal/task"
	"revoice/internal/workflow"
)

// localPrincipal owns tasks created by `revoice run`.
var localPrincipal = services.Principal{UserID: 0, Admin: true}

type runOptions struct {
	voiceID   string
	preset    bool
	subtitles bool
	outputDir string
	keep      bool
	interval  time.Duration
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run <video>",
		Short: "Replace the voice of a local video without the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.fileLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			deps, err := workflow.NewDependencies(cfg, store)
			if err != nil {
				return fmt.Errorf("configure providers: %w", err)
			}
			mgr := workflow.NewManager(cfg, deps, logger)
			defer mgr.Close()

			return runLocal(signalCtx, cmd, mgr, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.voiceID, "voice", "", "Voice id: catalog id, or preset index/name with --preset")
	cmd.Flags().BoolVar(&opts.preset, "preset", false, "Treat --voice as a preset speaker")
	cmd.Flags().BoolVar(&opts.subtitles, "subtitles", true, "Burn subtitles into the output video")
	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", ".", "Directory for the replaced video and subtitle file")
	cmd.Flags().BoolVar(&opts.keep, "keep", false, "Keep the task working directory after completion")
	cmd.Flags().DurationVar(&opts.interval, "poll", 500*time.Millisecond, "Progress polling interval")
	_ = cmd.MarkFlagRequired("voice")
	return cmd
}

func runLocal(ctx context.Context, cmd *cobra.Command, mgr *workflow.Manager, videoPath string, opts runOptions) error {
	out := cmd.OutOrStdout()
	source, err := os.Open(videoPath)
	if err != nil {
		return fmt.Errorf("open video: %w", err)
	}
	created, err := mgr.Upload(ctx, localPrincipal, filepath.Base(videoPath), source)
	source.Close()
	if err != nil {
		return err
	}
	if !opts.keep {
		defer func() {
			_ = mgr.Cleanup(context.WithoutCancel(ctx), localPrincipal, created.ID)
		}()
	}
	fmt.Fprintf(out, "Task %s\n", created.ID)

	printer := newProgressPrinter(out)
	printer.report(created)

	if _, err := mgr.Analyze(ctx, localPrincipal, created.ID); err != nil {
		return err
	}
	analyzed, err := waitForStage(ctx, mgr, created.ID, opts.interval, printer.report)
	if err != nil {
		return err
	}
	if analyzed.Status != task.StatusAnalyzed {
		return fmt.Errorf("analysis failed: %s", analyzed.Message)
	}
	fmt.Fprintf(out, "Recognized %d segments\n", len(analyzed.Segments))

	if _, err := mgr.Synthesize(ctx, localPrincipal, created.ID, workflow.SynthesizeRequest{
		VoiceID:      opts.voiceID,
		IsPreset:     opts.preset,
		AddSubtitles: opts.subtitles,
	}); err != nil {
		return err
	}
	done, err := waitForStage(ctx, mgr, created.ID, opts.interval, printer.report)
	if err != nil {
		return err
	}
	if done.Status != task.StatusCompleted {
		return fmt.Errorf("synthesis failed: %s", done.Message)
	}

	return exportArtifacts(ctx, cmd, mgr, created.ID, opts.outputDir)
}

// waitForStage polls until the task leaves its running status.
func waitForStage(ctx context.Context, mgr *workflow.Manager, id string, interval time.Duration, report func(task.Task)) (task.Task, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		t, err := mgr.Status(ctx, localPrincipal, id)
		if err != nil {
			return task.Task{}, err
		}
		report(t)
		if !t.Status.Running() {
			return t, nil
		}
		select {
		case <-ctx.Done():
			return t, ctx.Err()
		case <-ticker.C:
		}
	}
}

func exportArtifacts(ctx context.Context, cmd *cobra.Command, mgr *workflow.Manager, id, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	video, err := mgr.Download(ctx, localPrincipal, id)
	if err != nil {
		return err
	}
	artifacts := []workflow.Artifact{video}
	srt, err := mgr.DownloadSubtitles(ctx, localPrincipal, id)
	switch {
	case err == nil:
		artifacts = append(artifacts, srt)
	case errors.Is(err, services.ErrNotFound):
	default:
		return err
	}
	for _, a := range artifacts {
		dest := filepath.Join(outputDir, a.Name)
		if err := fileutil.CopyFile(a.Path, dest); err != nil {
			return fmt.Errorf("export %s: %w", a.Name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", dest)
	}
	return nil
}
