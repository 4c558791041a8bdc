package cosyvoice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"revoice/internal/pcm"
	"revoice/internal/services"
	"revoice/internal/synthesis"
)

const defaultTimeout = 5 * time.Minute

// Config captures the runtime settings for the synthesis server.
type Config struct {
	URL     string
	Model   string
	Timeout time.Duration
	// Presets overrides the speaker list reported by the server.
	Presets []string
}

// Client talks to the synthesis server.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu       sync.Mutex
	speakers []string
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New constructs a synthesis client.
func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		cfg: Config{
			URL:     strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
			Model:   strings.TrimSpace(cfg.Model),
			Timeout: timeout,
			Presets: cfg.Presets,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type synthesizeRequest struct {
	Text        string `json:"text"`
	Model       string `json:"model,omitempty"`
	Speaker     string `json:"speaker,omitempty"`
	PromptAudio string `json:"prompt_audio,omitempty"`
	PromptText  string `json:"prompt_text,omitempty"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Synthesize renders text in voice and returns the decoded audio.
func (c *Client) Synthesize(ctx context.Context, text string, voice synthesis.Voice) (pcm.Buffer, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return pcm.Buffer{}, services.Wrap(services.ErrValidation, "synthesize", "cosyvoice", "text required", nil)
	}
	if c.cfg.URL == "" {
		return pcm.Buffer{}, services.Wrap(services.ErrConfiguration, "synthesize", "cosyvoice", "url not configured", nil)
	}

	payload := synthesizeRequest{Text: text, Model: c.cfg.Model}
	if voice.Preset {
		payload.Speaker = voice.Name
	} else {
		data, err := os.ReadFile(voice.Reference)
		if err != nil {
			return pcm.Buffer{}, services.Wrap(services.ErrNotFound, "synthesize", "cosyvoice", "read reference audio", err)
		}
		payload.PromptAudio = base64.StdEncoding.EncodeToString(data)
		payload.PromptText = voice.PromptText
	}

	body, err := c.do(ctx, http.MethodPost, "/synthesize", payload)
	if err != nil {
		return pcm.Buffer{}, err
	}
	audio, err := pcm.DecodeWAVBytes(body)
	if err != nil {
		return pcm.Buffer{}, services.Wrap(services.ErrExternalTool, "synthesize", "cosyvoice", "decode audio", err)
	}
	if audio.Empty() {
		return pcm.Buffer{}, services.Wrap(services.ErrExternalTool, "synthesize", "cosyvoice", "empty audio", nil)
	}
	return audio, nil
}

// PresetVoices returns the server's speaker list, or the configured
// override when one is set. A successful server response is cached.
func (c *Client) PresetVoices(ctx context.Context) ([]string, error) {
	if len(c.cfg.Presets) > 0 {
		return append([]string(nil), c.cfg.Presets...), nil
	}
	c.mu.Lock()
	cached := c.speakers
	c.mu.Unlock()
	if cached != nil {
		return append([]string(nil), cached...), nil
	}

	body, err := c.do(ctx, http.MethodGet, "/speakers", nil)
	if err != nil {
		return nil, err
	}
	speakers, err := decodeSpeakers(body)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "presets", "cosyvoice", "decode speakers", err)
	}
	c.mu.Lock()
	c.speakers = speakers
	c.mu.Unlock()
	return append([]string(nil), speakers...), nil
}

func decodeSpeakers(body []byte) ([]string, error) {
	var list []string
	if err := json.Unmarshal(body, &list); err == nil {
		return cleanSpeakers(list), nil
	}
	var wrapped struct {
		Speakers []string `json:"speakers"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, err
	}
	return cleanSpeakers(wrapped.Speakers), nil
}

func cleanSpeakers(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("cosyvoice request: encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.URL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("cosyvoice request: new request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "synthesize", "cosyvoice", fmt.Sprintf("http error (timeout=%s)", c.cfg.Timeout), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "synthesize", "cosyvoice", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		marker := services.ErrExternalTool
		if resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrTransient
		}
		return nil, services.Wrap(marker, "synthesize", "cosyvoice", fmt.Sprintf("%s %s: http %d: %s", method, path, resp.StatusCode, errorMessage(body)), nil)
	}
	return body, nil
}

func errorMessage(body []byte) string {
	var decoded errorResponse
	if err := json.Unmarshal(body, &decoded); err == nil {
		if decoded.Error != "" {
			return decoded.Error
		}
		if decoded.Detail != "" {
			return decoded.Detail
		}
	}
	return strings.TrimSpace(string(body))
}
