// Package task models voice replacement jobs and holds the process-wide
// registry of in-flight tasks.
//
// The registry is the only shared mutable state in the pipeline. Every read
// returns a deep copy, and every mutation runs under the registry lock so
// status pollers never observe a half-applied transition. Tasks live only in
// memory; a restart loses all non-terminal state.
package task
