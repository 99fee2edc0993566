package history

import (
	"context"
	"log/slog"

	"github.com/ashureev/classpulse/internal/domain"
)

// Fallback wraps an optional durable store with an always-on in-memory
// fallback. A failed durable write is logged and swallowed: it never blocks
// or fails the caller, and the in-memory copy keeps the current-process
// history view consistent.
//
// List reads from the durable store when it is configured and reachable,
// otherwise from memory. The two are never merged.
type Fallback struct {
	primary Store // nil when no durable store is configured
	memory  *MemoryStore
}

// NewFallback wraps primary with an in-memory fallback. primary may be nil.
func NewFallback(primary Store) *Fallback {
	return &Fallback{primary: primary, memory: NewMemoryStore()}
}

// Append writes the record to memory first, then best-effort to the durable
// store.
func (f *Fallback) Append(ctx context.Context, record domain.PollRecord) error {
	// The memory append cannot fail; do it first so the process-lifetime
	// view is complete even if the durable write is not.
	_ = f.memory.Append(ctx, record)

	if f.primary == nil {
		return nil
	}
	if err := f.primary.Append(ctx, record); err != nil {
		slog.Error("Durable history write failed, record kept in memory",
			"poll_id", record.ID, "error", err)
	}
	return nil
}

// List prefers the durable store, falling back to memory when it is absent
// or unreachable.
func (f *Fallback) List(ctx context.Context) ([]domain.PollRecord, error) {
	if f.primary != nil {
		records, err := f.primary.List(ctx)
		if err == nil {
			return records, nil
		}
		slog.Warn("Durable history read failed, serving in-memory history", "error", err)
	}
	return f.memory.List(ctx)
}

// Ping reports durable store health; always healthy when memory-only.
func (f *Fallback) Ping(ctx context.Context) error {
	if f.primary == nil {
		return nil
	}
	return f.primary.Ping(ctx)
}

// Close closes the durable store, if any.
func (f *Fallback) Close() error {
	if f.primary == nil {
		return nil
	}
	return f.primary.Close()
}
