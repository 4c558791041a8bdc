// Package cosyvoice is an HTTP client for a CosyVoice synthesis server.
//
// Preset voices are synthesized by speaker name (SFT inference). Custom
// voices are cloned zero-shot from a reference clip and its transcript,
// which are sent base64-encoded with every request. Responses are WAV
// bodies decoded into 16-bit PCM.
package cosyvoice
