// Package history records assembly runs in a small SQLite database so the
// CLI can list past runs and locate their article and manifest artifacts.
//
// The store is opened per command invocation; concurrent vidpress processes
// share the database through WAL mode and a busy retry loop.
package history
