package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const filterProbeTimeout = 10 * time.Second

// Filter names an ffmpeg filter a pipeline stage relies on.
type Filter struct {
	Name        string
	Filter      string
	Description string
	Optional    bool
}

// FilterRunner returns the output of `<binary> -hide_banner -filters`.
type FilterRunner func(ctx context.Context, binary string) ([]byte, error)

// CheckFFmpegFilters reports which of filters the ffmpeg binary provides.
// Builds without libass lack "subtitles"; minimal builds may lack "atempo".
// A nil run executes the binary directly.
func CheckFFmpegFilters(ctx context.Context, binary string, run FilterRunner, filters []Filter) []Status {
	if run == nil {
		run = listFilters
	}
	results := make([]Status, 0, len(filters))
	probeCtx, cancel := context.WithTimeout(ctx, filterProbeTimeout)
	defer cancel()
	output, err := run(probeCtx, binary)
	available := parseFilters(output)
	for _, f := range filters {
		status := Status{
			Name:        f.Name,
			Command:     f.Filter,
			Description: f.Description,
			Optional:    f.Optional,
		}
		switch {
		case err != nil:
			status.Detail = fmt.Sprintf("list ffmpeg filters: %v", err)
		case available[f.Filter]:
			status.Available = true
		default:
			status.Detail = fmt.Sprintf("filter %q not provided by %s", f.Filter, binary)
		}
		results = append(results, status)
	}
	return results
}

func listFilters(ctx context.Context, binary string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, "-hide_banner", "-filters").Output()
}

// parseFilters collects filter names from `ffmpeg -filters` rows, which look
// like " T.C atempo            A->A       Adjust audio tempo.".
func parseFilters(output []byte) map[string]bool {
	names := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || !strings.Contains(fields[2], "->") {
			continue
		}
		names[fields[1]] = true
	}
	return names
}
