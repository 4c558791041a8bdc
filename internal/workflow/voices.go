package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"revoice/internal/catalog"
	"revoice/internal/fileutil"
	"revoice/internal/logging"
	"revoice/internal/pcm"
	"revoice/internal/services"
)

var acceptedVoiceExtensions = map[string]struct{}{
	"wav": {},
	"mp3": {},
}

// VoiceUpload is a reference clip submitted as a new custom voice.
type VoiceUpload struct {
	// Filename is the client's name for the clip. It becomes the voice name.
	Filename   string
	PromptText string
	Body       io.Reader
}

// AddVoice stores a reference clip under the voice directory and registers
// it as a custom voice owned by principal. MP3 clips are converted to 16 kHz
// mono WAV first. The stored clip is removed again if registration fails.
func (m *Manager) AddVoice(ctx context.Context, principal services.Principal, upload VoiceUpload) (*catalog.Voice, error) {
	if m.deps.Voices == nil {
		return nil, services.Wrap(services.ErrConfiguration, "voices", "add voice", "voice catalog unavailable", nil)
	}
	name := strings.TrimSpace(upload.Filename)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "voices", "validate", "no audio uploaded", nil)
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if _, ok := acceptedVoiceExtensions[ext]; !ok {
		return nil, services.Wrap(services.ErrValidation, "voices", "validate", fmt.Sprintf("unsupported clip format %q (accepted: wav, mp3)", filepath.Ext(name)), nil)
	}
	prompt := strings.TrimSpace(upload.PromptText)
	if prompt == "" {
		return nil, services.Wrap(services.ErrValidation, "voices", "validate", "prompt text required", nil)
	}

	voiceDir := m.cfg.Paths.VoiceDir
	if err := os.MkdirAll(voiceDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "voices", "create voice directory", "", err)
	}
	id := m.newID()
	filename := id + ".wav"
	dest := filepath.Join(voiceDir, filename)
	received := dest
	if ext != "wav" {
		received = filepath.Join(voiceDir, id+".upload."+ext)
	}
	if _, err := fileutil.WriteStream(received, upload.Body, m.cfg.MaxUploadBytes()); err != nil {
		_ = os.Remove(received)
		if errors.Is(err, fileutil.ErrTooLarge) {
			return nil, services.Wrap(services.ErrValidation, "voices", "store clip", "", err)
		}
		return nil, fmt.Errorf("store reference clip: %w", err)
	}
	if received != dest {
		err := m.convertClip(ctx, received, dest)
		_ = os.Remove(received)
		if err != nil {
			_ = os.Remove(dest)
			return nil, err
		}
	}

	clip, err := pcm.ReadWAV(dest)
	if err == nil && clip.Empty() {
		err = errors.New("clip contains no audio")
	}
	if err != nil {
		_ = os.Remove(dest)
		return nil, services.Wrap(services.ErrValidation, "voices", "validate clip", "reference clip must be PCM WAV audio", err)
	}

	voice, err := m.deps.Voices.AddVoice(ctx, catalog.Voice{
		UserID:     principal.UserID,
		Name:       name,
		Filename:   filename,
		Transcript: prompt,
	})
	if err != nil {
		_ = os.Remove(dest)
		return nil, fmt.Errorf("register voice: %w", err)
	}
	logging.WithContext(ctx, m.logger).Info("voice added",
		logging.Int64("voice_id", voice.ID),
		logging.String("name", voice.Name),
		logging.Int64("user_id", principal.UserID),
		logging.Float64("reference_seconds", clip.Duration()),
		logging.String(logging.FieldEventType, "voice_added"),
	)
	return voice, nil
}

func (m *Manager) convertClip(ctx context.Context, source, dest string) error {
	if m.deps.Transcoder == nil {
		return services.Wrap(services.ErrConfiguration, "voices", "convert clip", "no transcoder configured; upload a WAV clip", nil)
	}
	if err := m.deps.Transcoder.ExtractAudio(ctx, source, dest); err != nil {
		return services.Wrap(services.ErrValidation, "voices", "convert clip", "clip could not be decoded", err)
	}
	return nil
}

// RemoveVoice deletes a custom voice and its reference clip. Owners may
// remove their own voices and administrators any custom voice. Preset voices
// are never removed.
func (m *Manager) RemoveVoice(ctx context.Context, principal services.Principal, id int64) error {
	if m.deps.Voices == nil {
		return services.Wrap(services.ErrConfiguration, "voices", "remove voice", "voice catalog unavailable", nil)
	}
	voice, err := m.deps.Voices.GetVoice(ctx, id)
	if err != nil {
		return err
	}
	if voice.IsPreset {
		return services.Wrap(services.ErrForbidden, "voices", "remove voice", "preset voices cannot be removed", nil)
	}
	if !principal.CanAccess(voice.UserID) {
		return services.Wrap(services.ErrForbidden, "voices", "remove voice", fmt.Sprintf("voice %d belongs to another user", id), nil)
	}
	if err := m.deps.Voices.DeleteVoice(ctx, id); err != nil {
		return err
	}

	logger := logging.WithContext(ctx, m.logger)
	clip := filepath.Join(m.cfg.Paths.VoiceDir, filepath.Base(voice.Filename))
	if err := os.Remove(clip); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WarnWithContext(logger, "remove reference clip failed", "voice_clip_cleanup_failed",
			logging.String("path", clip),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check voice_dir permissions"),
			logging.String(logging.FieldImpact, "orphaned reference clip left on disk"),
		)
	}
	logger.Info("voice removed",
		logging.Int64("voice_id", id),
		logging.Int64("user_id", principal.UserID),
		logging.String(logging.FieldEventType, "voice_removed"),
	)
	return nil
}
