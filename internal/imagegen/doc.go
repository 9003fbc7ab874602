// Package imagegen produces synthetic section illustrations.
//
// Providers implement Generator and perform exactly one remote call per
// Generate; retries belong to the caller. Failures are tagged with the
// services markers so the retry classifier can tell rate limits and
// timeouts (transient) from content-policy refusals and empty responses
// (structural).
package imagegen
