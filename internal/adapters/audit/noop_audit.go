package audit

import (
	"context"
	"sync"

	"dispatch-engine/internal/ports"
)

// NoopRecorder discards entries. Used when no broker is configured.
type NoopRecorder struct{}

func (NoopRecorder) Record(context.Context, ports.AuditEntry) {}

// RecordingAuditLog captures entries in memory (tests).
type RecordingAuditLog struct {
	mu      sync.Mutex
	entries []ports.AuditEntry
}

func (r *RecordingAuditLog) Record(_ context.Context, entry ports.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *RecordingAuditLog) Entries() []ports.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ports.AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
