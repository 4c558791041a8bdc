package workflow

import (
	"fmt"

	"revoice/internal/catalog"
	"revoice/internal/config"
	"revoice/internal/media/ffmpeg"
	"revoice/internal/media/ffprobe"
	"revoice/internal/services/asr"
	"revoice/internal/services/cosyvoice"
	"revoice/internal/services/openaiapi"
	"revoice/internal/synthesis"
)

// SpeechEngine is a synthesis backend with a preset speaker list.
type SpeechEngine interface {
	synthesis.Synthesizer
	synthesis.PresetLister
}

// NewRecognizer builds the configured recognition backend.
func NewRecognizer(cfg *config.Config) (Recognizer, error) {
	rc := cfg.Recognition
	switch rc.Provider {
	case "http":
		return asr.New(asr.Config{
			URL:      rc.URL,
			Model:    rc.Model,
			Language: rc.Language,
			Timeout:  cfg.RecognitionTimeout(),
		}), nil
	case "openai":
		return openaiapi.NewRecognizer(openaiapi.Config{
			APIKey:   rc.APIKey,
			BaseURL:  rc.URL,
			Model:    rc.Model,
			Language: rc.Language,
			Timeout:  cfg.RecognitionTimeout(),
		}), nil
	default:
		return nil, fmt.Errorf("unsupported recognition provider %q", rc.Provider)
	}
}

// NewSpeechEngine builds the configured synthesis backend.
func NewSpeechEngine(cfg *config.Config) (SpeechEngine, error) {
	sc := cfg.Synthesis
	switch sc.Provider {
	case "cosyvoice":
		return cosyvoice.New(cosyvoice.Config{
			URL:     sc.URL,
			Model:   sc.Model,
			Timeout: cfg.SynthesisTimeout(),
			Presets: sc.PresetVoices,
		}), nil
	case "openai":
		return openaiapi.NewSynthesizer(openaiapi.Config{
			APIKey:  sc.APIKey,
			BaseURL: sc.URL,
			Model:   sc.Model,
			Voices:  sc.PresetVoices,
			Timeout: cfg.SynthesisTimeout(),
		}), nil
	default:
		return nil, fmt.Errorf("unsupported synthesis provider %q", sc.Provider)
	}
}

// NewDependencies wires the configured providers, ffmpeg, ffprobe, and the
// catalog store. store may be nil, which disables voice lookup and history.
func NewDependencies(cfg *config.Config, store *catalog.Store) (Dependencies, error) {
	recognizer, err := NewRecognizer(cfg)
	if err != nil {
		return Dependencies{}, err
	}
	engine, err := NewSpeechEngine(cfg)
	if err != nil {
		return Dependencies{}, err
	}
	transcoder := ffmpeg.New(cfg.FFmpegBinary())
	deps := Dependencies{
		Recognizer:  recognizer,
		Synthesizer: engine,
		Presets:     engine,
		Transcoder:  transcoder,
		Stretcher:   transcoder,
		Prober:      ffprobe.New(cfg.FFprobeBinary()),
	}
	if store != nil {
		deps.Voices = store
		deps.Catalog = store
	}
	return deps, nil
}
