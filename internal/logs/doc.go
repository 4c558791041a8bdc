// Package logs reads the revoice log file for the `revoice logs` command.
//
// It returns the last N lines with bounded memory, filters records by task id
// in both the console and JSON encodings, and follows appended lines until
// the caller's context ends. A truncated or rotated file restarts from the
// beginning.
package logs
