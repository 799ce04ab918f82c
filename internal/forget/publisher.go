// Package forget queues right-to-erasure jobs for asynchronous processing.
// Jobs carry only the hashed company identifier; the raw identifier never
// leaves the request handler.
package forget

import (
	"context"
	"time"
)

// Job is one queued erasure request.
type Job struct {
	ID            string    `json:"jobId"`
	CompanyIDHash string    `json:"companyIdHash"`
	RequestedAt   time.Time `json:"requestedAt"`
}

// Publisher hands erasure jobs to a worker queue.
type Publisher interface {
	Enqueue(ctx context.Context, job Job) error
	Close()
}
