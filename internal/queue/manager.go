// Package queue owns the offline submission queue: enqueue, inspect,
// remove and attempt-count bookkeeping. It is the only component that
// mutates the durable local store.
package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/communitypulse/sync-agent/internal/metrics"
	"github.com/communitypulse/sync-agent/internal/models"
)

// Store is the durable persistence behind the queue.
type Store interface {
	Load() ([]models.QueueItem, error)
	Save(items []models.QueueItem) error
}

// Manager serializes every read-modify-write cycle over the queue with
// a single mutex, so UI-initiated enqueues and orchestrator-initiated
// removals never corrupt the stored collection.
type Manager struct {
	mu    sync.Mutex
	store Store
	items []models.QueueItem
}

// NewManager loads the persisted queue and returns a manager over it.
func NewManager(store Store) (*Manager, error) {
	items, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted queue: %w", err)
	}

	if len(items) > 0 {
		log.Info().Int("count", len(items)).Msg("Restored queued submissions from local store")
	}

	return &Manager{store: store, items: items}, nil
}

// Enqueue appends a new item with a fresh id and returns the id
// synchronously so the caller can report "saved offline" right away.
// The payload must be a pledge or incident payload matching itemType.
func (m *Manager) Enqueue(itemType models.QueueItemType, payload any) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	item := models.QueueItem{
		ID:        uuid.New().String(),
		Type:      itemType,
		Payload:   raw,
		CreatedAt: time.Now(),
		Attempts:  0,
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = append(m.items, item)
	m.persist()

	log.Info().
		Str("id", item.ID).
		Str("type", string(itemType)).
		Int("depth", len(m.items)).
		Msg("Submission queued for offline sync")

	return item.ID, nil
}

// PeekAll returns a read-only snapshot in insertion order.
func (m *Manager) PeekAll() []models.QueueItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]models.QueueItem, len(m.items))
	copy(snapshot, m.items)
	return snapshot
}

// RemoveByID deletes the item with the given id. Removing an absent id
// is a no-op, which makes removal idempotent.
func (m *Manager) RemoveByID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, item := range m.items {
		if item.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			m.persist()
			return
		}
	}
}

// BumpAttempts increments the attempt counter of the item with the
// given id. No-op if the item is absent.
func (m *Manager) BumpAttempts(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Attempts++
			m.persist()
			return
		}
	}
}

// Count returns the current queue depth.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// persist writes the full collection through to the durable store.
// A write failure must never surface to the caller: the enqueue already
// reported success, so the failure is logged and counted instead.
// Callers must hold m.mu.
func (m *Manager) persist() {
	if err := m.store.Save(m.items); err != nil {
		metrics.PersistFailuresTotal.Inc()
		log.Error().Err(err).Int("depth", len(m.items)).Msg("Failed to persist offline queue")
	}
}
