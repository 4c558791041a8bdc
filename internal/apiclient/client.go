package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"revoice/internal/api"
)

const maxResponseBytes = 16 << 20

// ErrUnavailable reports that no server address is configured.
var ErrUnavailable = errors.New("revoice API unavailable")

// StatusError is a non-2xx API response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.Code)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Code, e.Message)
}

// Client calls the revoice HTTP API.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// New builds a client for bind, which may be host:port or a full URL. An
// empty bind yields a nil client.
func New(bind, token string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base:  base,
		token: strings.TrimSpace(token),
		http:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Tasks lists the tasks visible to the client's token.
func (c *Client) Tasks(ctx context.Context) (api.TaskListResponse, error) {
	var resp api.TaskListResponse
	err := c.get(ctx, "/api/voice-replace/tasks", &resp)
	return resp, err
}

// Task fetches one task snapshot.
func (c *Client) Task(ctx context.Context, id string) (api.Task, error) {
	var resp api.Task
	err := c.get(ctx, "/api/voice-replace/status/"+url.PathEscape(strings.TrimSpace(id)), &resp)
	return resp, err
}

// Health fetches server readiness. A degraded server answers 503 with a
// valid payload, which is returned without error.
func (c *Client) Health(ctx context.Context) (api.Health, error) {
	var resp api.Health
	err := c.get(ctx, "/api/health", &resp)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusServiceUnavailable && resp.Status != "" {
		return resp, nil
	}
	return resp, err
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	if c == nil {
		return ErrUnavailable
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &payload)
		// Health reports its checks alongside 503.
		_ = json.Unmarshal(data, out)
		return &StatusError{Code: resp.StatusCode, Message: payload.Error}
	}
	return json.Unmarshal(data, out)
}

// IsUnavailable reports whether err means the server could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrUnavailable) || errors.As(err, &opErr)
}
