package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"revoice/internal/fileutil"
)

// CommandRunner executes a command and returns an error that includes its
// output on failure.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Transcoder runs ffmpeg.
type Transcoder struct {
	binary string
	runner CommandRunner
}

// New returns a transcoder for binary (default "ffmpeg").
func New(binary string) *Transcoder {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Transcoder{binary: binary, runner: runCommand}
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *Transcoder) WithCommandRunner(runner CommandRunner) *Transcoder {
	if runner != nil {
		t.runner = runner
	}
	return t
}

// ExtractAudio writes the source's audio as mono 16 kHz 16-bit PCM WAV.
func (t *Transcoder) ExtractAudio(ctx context.Context, video, dest string) error {
	if err := requireFile(video); err != nil {
		return fmt.Errorf("extract audio: %w", err)
	}
	args := []string{"-hide_banner", "-loglevel", "error", "-i", video, "-vn", "-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1", "-y", dest}
	return t.exec(ctx, "extract audio", dest, args)
}

// ReplaceAudio muxes audio over video's picture, copying the video stream and
// stopping at the shorter input.
func (t *Transcoder) ReplaceAudio(ctx context.Context, video, audio, dest string) error {
	if err := requireFile(video); err != nil {
		return fmt.Errorf("replace audio: %w", err)
	}
	if err := requireFile(audio); err != nil {
		return fmt.Errorf("replace audio: %w", err)
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", video,
		"-i", audio,
		"-map", "0:v",
		"-map", "1:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		"-y", dest,
	}
	return t.exec(ctx, "replace audio", dest, args)
}

// BurnSubtitles renders srt onto video using the libass force_style string.
func (t *Transcoder) BurnSubtitles(ctx context.Context, video, srt, forceStyle, dest string) error {
	if err := requireFile(video); err != nil {
		return fmt.Errorf("burn subtitles: %w", err)
	}
	if err := requireFile(srt); err != nil {
		return fmt.Errorf("burn subtitles: %w", err)
	}
	filter := fmt.Sprintf("subtitles=%s", escapeFilterPath(srt))
	if forceStyle != "" {
		filter += fmt.Sprintf(":force_style='%s'", forceStyle)
	}
	args := []string{"-hide_banner", "-loglevel", "error", "-i", video, "-vf", filter, "-c:a", "copy", "-y", dest}
	return t.exec(ctx, "burn subtitles", dest, args)
}

func (t *Transcoder) exec(ctx context.Context, op, dest string, args []string) error {
	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%s: ensure output dir: %w", op, err)
		}
	}
	if err := t.runner(ctx, t.binary, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !fileutil.NonEmpty(dest) {
		return fmt.Errorf("%s: output %s missing or empty", op, dest)
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

// escapeFilterPath quotes characters the filtergraph parser treats specially.
func escapeFilterPath(path string) string {
	r := strings.NewReplacer(`\`, `\\\\`, `:`, `\\:`, `'`, `\\\'`, `,`, `\,`, `[`, `\[`, `]`, `\]`)
	return r.Replace(path)
}
