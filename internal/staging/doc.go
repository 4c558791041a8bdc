// Package staging manages per-task working directories under the configured
// work_dir: creation, removal, and sweeping directories left behind by a
// previous process.
package staging
