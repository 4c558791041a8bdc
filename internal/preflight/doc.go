// Package preflight provides readiness checks for the external binaries,
// provider endpoints, and filesystem paths revoice depends on.
//
// The server warns about missing required binaries at startup. GET
// /api/health and the CLI "revoice preflight" command run the full RunAll
// set, including the ffmpeg filters used for time-stretch and burn-in.
package preflight
