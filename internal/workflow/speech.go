package workflow

import (
	"context"
	"strings"
	"unicode/utf8"

	"revoice/internal/catalog"
	"revoice/internal/logging"
	"revoice/internal/pcm"
	"revoice/internal/services"
	"revoice/internal/synthesis"
	"revoice/internal/textutil"
)

// SpeechRequest is a one-off text-to-speech request.
type SpeechRequest struct {
	VoiceID  string
	IsPreset bool
	Text     string
}

// SynthesizeSpeech renders text in the requested voice outside any task.
// Long text is chunked the same way segment text is. A history row is
// recorded on success; failure to record it is only a warning.
func (m *Manager) SynthesizeSpeech(ctx context.Context, principal services.Principal, req SpeechRequest) (pcm.Buffer, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return pcm.Buffer{}, services.Wrap(services.ErrValidation, "synthesize", "validate", "text required", nil)
	}
	ref, err := synthesis.ParseVoiceRef(req.VoiceID, req.IsPreset)
	if err != nil {
		return pcm.Buffer{}, err
	}
	if m.deps.Synthesizer == nil {
		return pcm.Buffer{}, services.Wrap(services.ErrConfiguration, "synthesize", "", "no synthesis provider configured", nil)
	}
	voice, err := m.resolver.Resolve(ctx, ref, principal)
	if err != nil {
		return pcm.Buffer{}, err
	}

	logger := logging.WithContext(ctx, m.logger)
	orchestrator := &synthesis.Orchestrator{
		Synthesizer: m.deps.Synthesizer,
		ChunkRunes:  textutil.DefaultChunkRunes,
		Logger:      logger,
	}
	audio, err := orchestrator.SynthesizeText(ctx, text, voice)
	if err != nil {
		return pcm.Buffer{}, services.Wrap(services.ErrExternalTool, "synthesize", "render speech", "", err)
	}

	chars := utf8.RuneCountInString(text)
	if m.deps.Catalog != nil {
		entry := catalog.SynthesisLog{
			Type:       catalog.LogTypeSynthesize,
			UserID:     principal.UserID,
			VoiceID:    voice.StoredID,
			TextLength: chars,
			Duration:   audio.Duration(),
		}
		if err := m.deps.Catalog.AddSynthesisLog(context.WithoutCancel(ctx), entry); err != nil {
			logging.WarnWithContext(logger, "record synthesis log failed", "synthesis_log_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check catalog database access"),
				logging.String(logging.FieldImpact, "history omits this request"),
			)
		}
	}
	logger.Info("speech synthesized",
		logging.String("voice", voice.Name),
		logging.Int("chars", chars),
		logging.Float64("seconds", audio.Duration()),
		logging.String(logging.FieldEventType, "speech_synthesized"),
	)
	return audio, nil
}
