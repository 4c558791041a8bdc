package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"revoice/internal/services"
	"revoice/internal/transcript"
)

const defaultTimeout = 30 * time.Minute

// Config captures the runtime settings for the recognition service.
type Config struct {
	URL      string
	Model    string
	Language string
	Timeout  time.Duration
}

// Client posts audio to the recognition service.
type Client struct {
	cfg        Config
	httpClient *http.Client
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

// New constructs a recognition client.
func New(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		cfg: Config{
			URL:      strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
			Model:    strings.TrimSpace(cfg.Model),
			Language: strings.TrimSpace(cfg.Language),
			Timeout:  timeout,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type transcribeResponse struct {
	Language string               `json:"language"`
	Text     string               `json:"text"`
	Segments []transcript.Segment `json:"segments"`
	Error    string               `json:"error"`
}

// Recognize uploads audioPath and returns the recognized segments in start
// order.
func (c *Client) Recognize(ctx context.Context, audioPath string) ([]transcript.Segment, error) {
	if c.cfg.URL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "recognize", "asr", "url not configured", nil)
	}
	body, contentType, err := c.buildBody(audioPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "recognize", "asr", "build request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"/transcribe", body)
	if err != nil {
		return nil, fmt.Errorf("asr request: new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "recognize", "asr", fmt.Sprintf("http error (timeout=%s)", c.cfg.Timeout), err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "recognize", "asr", "read body", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		marker := services.ErrExternalTool
		if resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrTransient
		}
		return nil, services.Wrap(marker, "recognize", "asr", fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}

	var decoded transcribeResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "recognize", "asr", "decode response", err)
	}
	if decoded.Error != "" {
		return nil, services.Wrap(services.ErrExternalTool, "recognize", "asr", decoded.Error, nil)
	}
	segments, _ := transcript.Sanitize(decoded.Segments)
	return segments, nil
}

func (c *Client) buildBody(audioPath string) (io.Reader, string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", err
	}
	if c.cfg.Model != "" {
		if err := writer.WriteField("model", c.cfg.Model); err != nil {
			return nil, "", err
		}
	}
	if c.cfg.Language != "" {
		if err := writer.WriteField("language", c.cfg.Language); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}
