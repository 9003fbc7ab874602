// Package anchor locates anchor phrases inside rendered article text.
//
// Matching is done on a normalized view of both strings: Unicode NFKC, full
// case folding, punctuation and symbols removed, whitespace runs collapsed
// to a single space. Every normalized rune remembers the byte range of the
// original text it came from, so matches are reported as byte offsets into
// the original article.
//
// A Resolver consumes what it matches. Resolving the same phrase twice
// yields two distinct, non-overlapping spans in document order, and a phrase
// never matches inside a span an earlier phrase already claimed.
package anchor
