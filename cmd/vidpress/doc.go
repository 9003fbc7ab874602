// Package main hosts the vidpress CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into workflow runs:
// requesting an article plan from a transcript, assembling a plan into an
// illustrated article, and inspecting the run history, manifests, and
// environment health. Configuration resolution and logger construction
// live in commandContext so subcommands only describe their flags and
// output.
//
// Keep this package thin. New behavior belongs in internal/workflow or a
// lower package first; commands only surface it.
package main
