// Package catalog persists the voice catalog, synthesis history, and
// terminal task snapshots in SQLite.
//
// The schema is embedded and versioned; a database written by a different
// schema version is rejected with ErrSchemaMismatch rather than migrated.
// Writes retry briefly on SQLITE_BUSY so the API server and CLI can share
// the file.
package catalog
