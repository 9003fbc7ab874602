// Package retry centralizes the bounded retry policy applied to every
// external operation the engine performs: frame capture, synthetic image
// generation, remote upload, and plan requests.
//
// Failures are classified as transient (timeouts, rate limits, 408/429/5xx
// responses, network timeouts, errors tagged with the services transient
// markers) or structural (everything else). Only transient failures are
// retried, with exponential backoff capped at a maximum delay and honouring
// Retry-After hints. Structural failures return immediately so callers can
// fall back or give up.
package retry
