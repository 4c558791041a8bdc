package openaiapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"revoice/internal/pcm"
	"revoice/internal/services"
	"revoice/internal/synthesis"
	"revoice/internal/transcript"
)

// speechSampleRate is the fixed rate of the "pcm" speech response format.
const speechSampleRate = 24000

// DefaultVoices are the speech API's built-in voices.
var DefaultVoices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// Config captures the API credentials and models.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	Voices   []string
	Timeout  time.Duration
}

func newClient(cfg Config) *openai.Client {
	aiConfig := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		aiConfig.BaseURL = base
	}
	if cfg.Timeout > 0 {
		aiConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return openai.NewClientWithConfig(aiConfig)
}

// Recognizer transcribes audio with the transcription API.
type Recognizer struct {
	client   *openai.Client
	model    string
	language string
}

// NewRecognizer constructs a Recognizer.
func NewRecognizer(cfg Config) *Recognizer {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.Whisper1
	}
	return &Recognizer{client: newClient(cfg), model: model, language: strings.TrimSpace(cfg.Language)}
}

// Recognize uploads audioPath and returns its timestamped segments.
func (r *Recognizer) Recognize(ctx context.Context, audioPath string) ([]transcript.Segment, error) {
	resp, err := r.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    r.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: r.language,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "recognize", "openai", "create transcription", err)
	}
	segments := make([]transcript.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, transcript.Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	kept, _ := transcript.Sanitize(segments)
	return kept, nil
}

// Synthesizer renders speech with the speech API.
type Synthesizer struct {
	client *openai.Client
	model  string
	voices []string
}

// NewSynthesizer constructs a Synthesizer.
func NewSynthesizer(cfg Config) *Synthesizer {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = string(openai.TTSModel1)
	}
	voices := cfg.Voices
	if len(voices) == 0 {
		voices = DefaultVoices
	}
	return &Synthesizer{client: newClient(cfg), model: model, voices: append([]string(nil), voices...)}
}

// PresetVoices returns the voices accepted by Synthesize.
func (s *Synthesizer) PresetVoices(context.Context) ([]string, error) {
	return append([]string(nil), s.voices...), nil
}

// Synthesize renders text in a preset voice.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, voice synthesis.Voice) (pcm.Buffer, error) {
	if !voice.Preset {
		return pcm.Buffer{}, services.Wrap(services.ErrValidation, "synthesize", "openai", "reference voices are not supported by the openai provider", nil)
	}
	if !slices.Contains(s.voices, voice.Name) {
		return pcm.Buffer{}, services.Wrap(services.ErrValidation, "synthesize", "openai", fmt.Sprintf("unknown voice %q", voice.Name), nil)
	}
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice.Name),
		ResponseFormat: openai.SpeechResponseFormat("pcm"),
	})
	if err != nil {
		return pcm.Buffer{}, services.Wrap(services.ErrExternalTool, "synthesize", "openai", "create speech", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return pcm.Buffer{}, services.Wrap(services.ErrTransient, "synthesize", "openai", "read speech", err)
	}
	audio, err := pcm.FromLittleEndian(data, speechSampleRate, 1)
	if err != nil {
		return pcm.Buffer{}, services.Wrap(services.ErrExternalTool, "synthesize", "openai", "decode speech", err)
	}
	if audio.Empty() {
		return pcm.Buffer{}, services.Wrap(services.ErrExternalTool, "synthesize", "openai", "empty speech", nil)
	}
	return audio, nil
}
