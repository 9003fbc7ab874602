// Package assemble turns a validated plan into the final illustrated
// article.
//
// Assembly runs three passes. The first renders the article and resolves
// anchors serially in document order. The second acquires, normalizes and
// publishes images for resolved sections with bounded parallelism. The
// third splices image references into the text serially, tracking the
// offset shift of insertions already applied. Every section carries a
// State whose legal transitions are enforced; text is never dropped
// because of an imaging outcome.
package assemble
