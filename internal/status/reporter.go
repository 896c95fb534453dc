// Package status exposes the queue depth and last-sync summary for
// display. It is a read-only consumer of the queue manager and the
// persisted last-sync record; no retries are ever triggered from here.
package status

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/communitypulse/sync-agent/internal/metrics"
	"github.com/communitypulse/sync-agent/internal/models"
)

// QueueCounter reports the current queue depth.
type QueueCounter interface {
	Count() int
}

// SyncInfoLoader reads the persisted last-sync record.
type SyncInfoLoader interface {
	LoadLastSync() (*models.LastSyncInfo, error)
}

// Snapshot is what the status surface shows.
type Snapshot struct {
	QueueDepth int                  `json:"queue_depth"`
	LastSync   *models.LastSyncInfo `json:"last_sync"`
}

// Reporter polls the queue depth and last-sync record on a fixed
// interval and caches the result for cheap reads.
type Reporter struct {
	queue    QueueCounter
	state    SyncInfoLoader
	interval time.Duration

	mu       sync.RWMutex
	snapshot Snapshot

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewReporter creates a reporter refreshing at the given interval.
func NewReporter(queue QueueCounter, state SyncInfoLoader, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	r := &Reporter{
		queue:    queue,
		state:    state,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
	r.Refresh()
	return r
}

// Start begins periodic refreshing in the background.
func (r *Reporter) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.stopCh:
				return
			case <-ticker.C:
				r.Refresh()
			}
		}
	}()
}

// Stop halts periodic refreshing.
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

// Refresh re-reads the queue depth and last-sync record now. Called on
// the polling tick and on sync-completed signals.
func (r *Reporter) Refresh() {
	depth := r.queue.Count()

	last, err := r.state.LoadLastSync()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load last sync info")
	}

	r.mu.Lock()
	r.snapshot = Snapshot{QueueDepth: depth, LastSync: last}
	r.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))
}

// Current returns the most recently refreshed snapshot.
func (r *Reporter) Current() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot
}
