// Package openaiapi adapts the OpenAI audio endpoints to the recognition and
// synthesis interfaces used by the pipeline.
//
// Transcription uses verbose JSON so segment timestamps are available.
// Speech is requested as raw PCM (24 kHz, 16-bit, mono) so no container
// decoding is needed. OpenAI has no voice cloning, so only preset voices
// are accepted.
package openaiapi
