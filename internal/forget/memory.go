package forget

import (
	"context"
	"sync"
)

// MemoryPublisher collects jobs in memory. It serves deployments without a
// broker and the handler tests.
type MemoryPublisher struct {
	mu   sync.Mutex
	jobs []Job
}

// NewMemoryPublisher returns an empty in-process queue.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Enqueue appends the job.
func (p *MemoryPublisher) Enqueue(_ context.Context, job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return nil
}

// Jobs returns a snapshot of everything enqueued so far.
func (p *MemoryPublisher) Jobs() []Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Job, len(p.jobs))
	copy(out, p.jobs)
	return out
}

// Close is a no-op.
func (p *MemoryPublisher) Close() {}
