package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"revoice/internal/config"
	"revoice/internal/deps"
)

const endpointTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the transcoding binaries for the given config
// and, when ffmpeg resolves, the filters the pipeline uses.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	statuses := deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for audio extraction, time-stretch, and remux",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for upload inspection",
		},
	})
	if !statuses[0].Available {
		return statuses
	}
	return append(statuses, deps.CheckFFmpegFilters(ctx, statuses[0].Command, nil, []deps.Filter{
		{
			Name:        "FFmpeg atempo filter",
			Filter:      "atempo",
			Description: "Time-stretch; clips keep their natural length without it",
			Optional:    true,
		},
		{
			Name:        "FFmpeg subtitles filter",
			Filter:      "subtitles",
			Description: "Subtitle burn-in (requires libass)",
		},
	})...)
}

// CheckRecognition verifies the recognition provider is configured and, for
// the http backend, reachable.
func CheckRecognition(ctx context.Context, cfg config.Recognition) Result {
	const name = "Recognition provider"
	switch cfg.Provider {
	case "openai":
		return checkAPIKey(name, cfg.APIKey)
	default:
		return CheckEndpoint(ctx, name, cfg.URL, "/health")
	}
}

// CheckSynthesis verifies the synthesis provider is configured and, for the
// cosyvoice backend, reachable.
func CheckSynthesis(ctx context.Context, cfg config.Synthesis) Result {
	const name = "Synthesis provider"
	switch cfg.Provider {
	case "openai":
		return checkAPIKey(name, cfg.APIKey)
	default:
		return CheckEndpoint(ctx, name, cfg.URL, "/speakers")
	}
}

// CheckEndpoint performs a GET on base+path and passes on any 2xx response.
func CheckEndpoint(ctx context.Context, name, baseURL, path string) Result {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, endpointTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+path, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	client := &http.Client{Timeout: endpointTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{Name: name, Detail: fmt.Sprintf("%s returned %d", base, resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", base)}
}

func checkAPIKey(name, key string) Result {
	if strings.TrimSpace(key) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	return Result{Name: name, Passed: true, Detail: "openai (key configured)"}
}
