// Package workspace lays out the per-run directories under the configured
// workspace root.
//
// Each run owns runs/<run-id>/ with frames/ and assets/ subdirectories and
// the article, manifest, plan, and HTML artifacts. A run holds an exclusive
// file lock on its directory for as long as it is active, which lets the
// CLI tell live runs from abandoned ones and keeps pruning away from them.
package workspace
