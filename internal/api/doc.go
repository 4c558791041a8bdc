// Package api defines wire-format types and converters for the HTTP API. It
// translates internal task, voice, and history models into transport-friendly
// DTOs so handlers and the CLI render the same shapes without coupling to
// internal types.
//
// # Key Types
//
// Task: status, progress, message, segment summary, and download readiness
// for one voice replacement task.
//
// Voice / VoiceListResponse: preset speakers and catalog voices a caller may
// select.
//
// HistoryEntry: one synthesis log row.
//
// Health: dependency availability and provider reachability.
//
// # Design Notes
//
// Task fields use snake_case JSON (task_id, progress, message) to match the
// existing browser client. Filesystem paths are never exposed; downloads go
// through the download endpoints. Timestamps use RFC3339 with milliseconds.
package api
