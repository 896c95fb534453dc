// Package drivers contains the type-specific submission logic that
// turns a queued payload into one or more remote calls. Drivers never
// touch the queue itself; retry bookkeeping belongs to the
// sync orchestrator.
package drivers

import (
	"context"

	"github.com/communitypulse/sync-agent/internal/models"
)

// RemoteRef identifies the remote record created by a successful
// submission.
type RemoteRef struct {
	ID       string
	PhotoURL string
	AudioURL string
}

// Driver submits one queued item to the remote backend. It must be
// deterministic given the same payload and remote responses.
type Driver interface {
	Submit(ctx context.Context, item models.QueueItem) (*RemoteRef, error)
}

// Registry maps each queue item type to its driver. Adding a new
// submission type means adding a driver here, nowhere else.
type Registry map[models.QueueItemType]Driver

// NewRegistry builds the dispatch table for the known item types.
func NewRegistry(pledge, incident Driver) Registry {
	return Registry{
		models.TypePledge:   pledge,
		models.TypeIncident: incident,
	}
}

// For returns the driver for the given type.
func (r Registry) For(t models.QueueItemType) (Driver, bool) {
	d, ok := r[t]
	return d, ok
}
