// Package services defines shared utilities consumed by pipeline stages and
// the external provider integrations under it.
//
// Key responsibilities:
//   - Context helpers that stamp task IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so the HTTP layer can
//     translate failures into consistent status codes.
//
// Provider clients (speech recognition, speech synthesis) live in
// subpackages and return errors wrapped with these markers.
package services
