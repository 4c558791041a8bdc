// Package synthesis turns recognized segments into synthesized clips.
//
// A VoiceRef is parsed once at the API boundary and resolved against the
// voice catalog into a concrete Voice before any synthesis work starts. The
// Orchestrator then synthesizes each segment independently: a failed segment
// is logged and left out of the sparse Clips map, and only a run in which
// every segment fails is an error.
package synthesis
