// Package audit accumulates provenance for one orchestrator invocation and
// enforces the redaction boundary between audit data and logs.
package audit

import (
	"context"
	"log/slog"
	"sync"

	"kompas/internal/profile/models"
	"kompas/pkg/platform/privacy"
)

// Builder collects source tags and call outcomes. Safe for concurrent use:
// the orchestrator's fan-out branches record into one shared builder.
type Builder struct {
	mu      sync.Mutex
	sources []string
	seen    map[string]struct{}
	calls   map[string]models.CallOutcome
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		seen:  make(map[string]struct{}),
		calls: make(map[string]models.CallOutcome),
	}
}

// AddSource appends a source tag, preserving first-seen order and deduping.
func (b *Builder) AddSource(tag string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.seen[tag]; ok {
		return
	}
	b.seen[tag] = struct{}{}
	b.sources = append(b.sources, tag)
}

// RecordCall stores the outcome summary for a named upstream call.
func (b *Builder) RecordCall(name string, outcome models.CallOutcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[name] = outcome
}

// RecordDegraded marks a source as failed under its distinguishable error
// key. The failure reason goes to logs, never into the record.
func (b *Builder) RecordDegraded(name string) {
	b.RecordCall(name+"_error", models.CallOutcome{Degraded: true})
}

// Record snapshots the accumulated audit trail.
func (b *Builder) Record() models.AuditRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	sources := make([]string, len(b.sources))
	copy(sources, b.sources)
	calls := make(map[string]models.CallOutcome, len(b.calls))
	for k, v := range b.calls {
		calls[k] = v
	}
	return models.AuditRecord{Sources: sources, RawCalls: calls}
}

// Log emits the audit record to the logging sink. Every string crossing this
// boundary passes through PII redaction; call outcomes are already reduced to
// booleans and counts.
func Log(ctx context.Context, logger *slog.Logger, rec models.AuditRecord) {
	if logger == nil {
		return
	}
	sources := make([]string, len(rec.Sources))
	for i, tag := range rec.Sources {
		sources[i] = privacy.Redact(tag)
	}
	callNames := make([]string, 0, len(rec.RawCalls))
	for name := range rec.RawCalls {
		callNames = append(callNames, privacy.Redact(name))
	}
	logger.InfoContext(ctx, "profile lookup audit",
		"sources", sources,
		"calls", callNames,
	)
}
