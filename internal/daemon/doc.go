// Package daemon coordinates the long-running revoice server process.
//
// It wires configuration, the catalog store, and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances on
// the same work directory. The daemon serves the voice replacement HTTP API,
// maps bearer tokens to principals, and runs the task reaper when a TTL is
// configured.
//
// Keep orchestration logic here: pipeline stages live in the workflow package
// while the daemon focuses on startup, shutdown, and request translation.
package daemon
