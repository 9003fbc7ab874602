// Package services defines shared utilities consumed by the assembly engine
// and its external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, section indexes, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that let the retry policy
//     tell transient failures (timeouts, rate limits) from structural ones.
//
// Use these helpers when wiring new collaborators so failure classification
// and observability stay uniform across frame capture, generation, and upload.
package services
