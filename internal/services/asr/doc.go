// Package asr is an HTTP client for a self-hosted speech recognition service
// (a Whisper-style server exposing POST /transcribe).
//
// The service accepts a multipart upload of a WAV file and returns ordered
// timestamped segments. Segment text is trimmed and invalid segments are
// dropped before they reach the pipeline.
package asr
