// Package plan turns the loosely structured article plan returned by a
// language model into a validated, strongly typed ArticlePlan.
//
// Parse tolerates the usual model noise (code fences, prose around the JSON
// object, YAML instead of JSON). Validate normalizes field aliases and loose
// scalar types, then either accepts the whole plan or returns an
// InvalidPlanError naming the first structural problem. Nothing untyped
// leaves this package. Render produces the markdown article body that anchor
// phrases are later resolved against.
package plan
