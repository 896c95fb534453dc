package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// QueueItemType discriminates the payload shape of a queued submission.
type QueueItemType string

const (
	TypePledge   QueueItemType = "pledge"
	TypeIncident QueueItemType = "incident"
)

// QueueItem is a locally persisted, not-yet-confirmed user submission
// awaiting remote delivery. The payload is immutable once enqueued;
// only Attempts changes over the item's lifetime.
type QueueItem struct {
	ID        string          `json:"id"`
	Type      QueueItemType   `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	Attempts  int             `json:"attempts"`
}

// PledgePayload decodes the item's payload as a pledge.
func (i *QueueItem) PledgePayload() (*PledgePayload, error) {
	if i.Type != TypePledge {
		return nil, fmt.Errorf("queue item %s has type %q, not %q", i.ID, i.Type, TypePledge)
	}
	var p PledgePayload
	if err := json.Unmarshal(i.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode pledge payload: %w", err)
	}
	return &p, nil
}

// IncidentPayload decodes the item's payload as an incident report.
func (i *QueueItem) IncidentPayload() (*IncidentPayload, error) {
	if i.Type != TypeIncident {
		return nil, fmt.Errorf("queue item %s has type %q, not %q", i.ID, i.Type, TypeIncident)
	}
	var p IncidentPayload
	if err := json.Unmarshal(i.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode incident payload: %w", err)
	}
	return &p, nil
}

// LastSyncInfo summarizes the most recent drain cycle. It overwrites
// any prior record on every completed pass.
type LastSyncInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Processed int       `json:"processed"`
	Errors    int       `json:"errors"`
}
