// Package preflight provides readiness checks for the binaries, directories,
// and remote services vidpress depends on.
//
// These checks run in two contexts:
//   - The workflow runner checks the workspace directory before creating a
//     run, so a read-only disk fails before any frame is captured.
//   - The CLI "vidpress status" command calls RunAll and CheckSystemDeps to
//     display the full picture, including the plan LLM.
//
// Remote checks are gated by configuration: a disabled provider or backend
// passes with a "Disabled" detail.
package preflight
