// Package connectors defines the error taxonomy shared by all source
// adapters. Connectors return these (optionally wrapped); the orchestrator
// downgrades every one of them to a degraded section, and only direct-id
// lookups surface ErrNotFound to callers.
package connectors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the upstream positively asserted the entity does
	// not exist. Not an error for free-text search, which returns empty.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited means the upstream rejected the call for quota reasons.
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout means the call did not complete within the adapter timeout.
	ErrTimeout = errors.New("timeout")
)

// UpstreamError carries an upstream HTTP status and message for failures that
// don't fit a sentinel. The message may contain upstream text and must be
// redacted before logging.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: %d %s", e.StatusCode, e.Message)
}
