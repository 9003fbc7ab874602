// Package workflow runs one article assembly end to end.
//
// A Runner validates the plan before touching disk, then creates and locks a
// run directory under the workspace, records the run in the history store,
// wires the per-run collaborators (frame capturer, generator, acquirer,
// normalizer, publisher) and hands the plan to the assembler. The article,
// manifest, validated plan and HTML export are written exactly once, and the
// history record is finished with the manifest counts.
//
// Plan and Run add the plan-request step in front: a transcript and an
// instruction go to the configured LLM, and the returned plan feeds the same
// assembly path.
package workflow
