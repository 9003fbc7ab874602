// Package publish makes normalized images reachable from the article.
//
// A Publisher uploads through a remote Store when one is configured and
// otherwise, or when the upload fails, falls back to a file:// reference of
// the local asset. Publishing never returns an error; the fallback reason is
// carried on the Reference for the manifest.
package publish
