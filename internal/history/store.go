// Package history provides the append-only archive of completed polls.
package history

import (
	"context"

	"github.com/ashureev/classpulse/internal/domain"
)

// Store persists completed poll records. Append is called exactly once per
// completed poll; records are never mutated afterward.
type Store interface {
	// Append adds one completed poll record to the archive.
	Append(ctx context.Context, record domain.PollRecord) error

	// List returns all archived records ordered by completion time,
	// most recent first.
	List(ctx context.Context) ([]domain.PollRecord, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}
