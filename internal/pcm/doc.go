// Package pcm holds 16-bit signed PCM buffers exchanged between the speech
// providers, the timeline reconciler, and the crossfade merger.
//
// Samples are interleaved by channel and always carry their sample rate; no
// global rate is assumed. WAV encoding and decoding use go-audio.
package pcm
