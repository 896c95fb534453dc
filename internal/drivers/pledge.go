package drivers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/communitypulse/sync-agent/internal/models"
)

// PledgeInserter is the remote record-insert endpoint for pledges.
type PledgeInserter interface {
	InsertPledge(ctx context.Context, p *models.PledgePayload) (string, error)
}

// Identity resolves the currently authenticated user, if any. Absence
// is not an error; anonymous pledges are accepted.
type Identity interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

// PledgeDriver submits queued pledges with a single record insert.
type PledgeDriver struct {
	records  PledgeInserter
	identity Identity
	timeout  time.Duration
}

// NewPledgeDriver creates a pledge submission driver. identity may be
// nil when no auth session is available.
func NewPledgeDriver(records PledgeInserter, identity Identity, timeout time.Duration) *PledgeDriver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PledgeDriver{records: records, identity: identity, timeout: timeout}
}

// Submit attaches the current identity (best effort), then inserts the
// pledge record. The insert call is the only failure mode.
func (d *PledgeDriver) Submit(ctx context.Context, item models.QueueItem) (*RemoteRef, error) {
	payload, err := item.PledgePayload()
	if err != nil {
		return nil, err
	}

	if d.identity != nil {
		if userID, ok := d.identity.CurrentUserID(ctx); ok {
			payload.PledgerID = &userID
		}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	recordID, err := d.records.InsertPledge(ctx, payload)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("item_id", item.ID).
		Str("record_id", recordID).
		Msg("Pledge delivered")

	return &RemoteRef{ID: recordID}, nil
}
