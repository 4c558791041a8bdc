// Package apiclient talks to a running revoice server over its HTTP API.
//
// The CLI uses it to list tasks, inspect one task, and read server health
// without touching the server's work directory. Connection failures are
// distinguishable from API errors via IsUnavailable so callers can tell the
// user to start the server.
package apiclient
