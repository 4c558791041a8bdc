// Package workflow drives voice replacement tasks through their stages.
//
// The Manager owns the in-memory task registry and runs each stage after
// upload (analyze, synthesize) on its own goroutine, so request handlers
// return immediately and callers poll Status for progress. Stage failures
// never escape a goroutine: they become status=failed with progress reset
// to zero and the error text preserved as the task message.
//
// Analyze extracts the audio track and recognizes speech. Synthesize
// renders every segment in the selected voice, reconciles the clips onto
// the original timeline, crossfades them into one track, remuxes the video,
// and optionally burns in subtitles. Cleanup deletes the task directory and
// registry entry; an optional reaper does the same for expired tasks.
//
// Outside the task lifecycle the Manager also registers and removes custom
// voices (AddVoice, RemoveVoice) and renders one-off speech
// (SynthesizeSpeech) with the same voice resolution and text chunking.
package workflow
