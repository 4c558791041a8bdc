// Package ffmpeg wraps the ffmpeg invocations used by the voice replacement
// pipeline: audio extraction, audio-track replacement, subtitle burn-in, and
// pitch-preserving time-stretch.
//
// Every operation goes through an injectable command runner so tests can
// assert argument lists without an ffmpeg binary.
package ffmpeg
