package ports

import (
	"context"

	"github.com/aretw0/livehost/pkg/domain"
)

// StatusStore persists supervisor status snapshots keyed by host ID.
// It never stores message history.
type StatusStore interface {
	// Save persists the status under status.HostID.
	Save(ctx context.Context, status domain.Status) error

	// Load retrieves the status for a host ID.
	// Returns domain.ErrStatusNotFound if nothing is stored.
	Load(ctx context.Context, hostID string) (domain.Status, error)

	// Delete removes the status for a host ID.
	Delete(ctx context.Context, hostID string) error

	// List returns the host IDs with a stored status.
	List(ctx context.Context) ([]string, error)
}
