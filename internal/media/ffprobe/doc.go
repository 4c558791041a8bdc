// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The pipeline uses it to confirm an upload carries audio before extraction
// and to record the source duration.
package ffprobe
