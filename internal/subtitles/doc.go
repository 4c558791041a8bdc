// Package subtitles renders segment lists as SRT captions and builds the
// libass style used when burning captions into video.
//
// Captions always use the original recognized timings, independent of how the
// synthesized audio was placed.
package subtitles
