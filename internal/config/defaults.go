package config

const (
	defaultConfigPath              = "~/.config/revoice/config.toml"
	defaultWorkDir                 = "~/.local/share/revoice/tasks"
	defaultVoiceDir                = "~/.local/share/revoice/voices"
	defaultLogDir                  = "~/.local/share/revoice/logs"
	defaultAPIBind                 = "127.0.0.1:7590"
	defaultRecognitionProvider     = "http"
	defaultRecognitionURL          = "http://127.0.0.1:9000"
	defaultRecognitionModel        = "medium"
	defaultRecognitionLanguage     = "zh"
	defaultRecognitionTimeout      = 1800
	defaultSynthesisProvider       = "cosyvoice"
	defaultSynthesisURL            = "http://127.0.0.1:50000"
	defaultSynthesisModel          = "CosyVoice2-0.5B"
	defaultSynthesisTimeout        = 300
	defaultPromptText              = "这是一段示例语音。"
	defaultStretchToleranceSeconds = 0.1
	defaultCrossfadeSeconds        = 0.05
	defaultFontName                = "Arial"
	defaultFontSize                = 24
	defaultFontColor               = "white"
	defaultOutlineColor            = "black"
	defaultPosition                = "bottom"
	defaultReapIntervalSeconds     = 300
	defaultMaxUploadMiB            = 2048
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultOpenAIRecognitionModel  = "whisper-1"
	defaultOpenAISynthesisModel    = "tts-1"
)

var defaultOpenAIVoices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			VoiceDir: defaultVoiceDir,
			LogDir:   defaultLogDir,
			APIBind:  defaultAPIBind,
		},
		Recognition: Recognition{
			Provider:       defaultRecognitionProvider,
			URL:            defaultRecognitionURL,
			Model:          defaultRecognitionModel,
			Language:       defaultRecognitionLanguage,
			TimeoutSeconds: defaultRecognitionTimeout,
		},
		Synthesis: Synthesis{
			Provider:          defaultSynthesisProvider,
			URL:               defaultSynthesisURL,
			Model:             defaultSynthesisModel,
			DefaultPromptText: defaultPromptText,
			TimeoutSeconds:    defaultSynthesisTimeout,
		},
		Timeline: Timeline{
			StretchToleranceSeconds: defaultStretchToleranceSeconds,
			CrossfadeSeconds:        defaultCrossfadeSeconds,
			StretchEnabled:          true,
		},
		Subtitles: Subtitles{
			FontName:     defaultFontName,
			FontSize:     defaultFontSize,
			FontColor:    defaultFontColor,
			OutlineColor: defaultOutlineColor,
			Position:     defaultPosition,
		},
		Workflow: Workflow{
			ReapIntervalSeconds: defaultReapIntervalSeconds,
			MaxUploadMiB:        defaultMaxUploadMiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
