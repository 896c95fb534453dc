// Package syncer decides when to attempt draining the offline queue and
// walks each drain cycle: snapshot, sequential submit, bookkeeping.
package syncer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/communitypulse/sync-agent/internal/drivers"
	"github.com/communitypulse/sync-agent/internal/metrics"
	"github.com/communitypulse/sync-agent/internal/models"
)

// Queue is the orchestrator's view of the queue manager.
type Queue interface {
	PeekAll() []models.QueueItem
	RemoveByID(id string)
	BumpAttempts(id string)
}

// StateStore persists the last-sync record between drain cycles.
type StateStore interface {
	SaveLastSync(info models.LastSyncInfo) error
}

// Connectivity reports whether the remote backend is reachable.
type Connectivity interface {
	Online() bool
}

// Config wires an orchestrator.
type Config struct {
	Queue        Queue
	Drivers      drivers.Registry
	State        StateStore
	Connectivity Connectivity           // nil means no signal obtainable: drains are skipped
	OnlineEvents <-chan struct{}        // optional; fires on connectivity regained
	OnComplete   func(models.LastSyncInfo) // optional; called after every completed pass
	Interval     time.Duration          // periodic tick, default 60s
}

// Orchestrator runs drain cycles on connectivity-restored signals,
// periodic ticks and explicit wake messages. At most one drain is in
// flight at a time; overlapping triggers are dropped.
type Orchestrator struct {
	cfg      Config
	draining atomic.Bool
	wakeCh   chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates an orchestrator from the given configuration.
func New(cfg Config) *Orchestrator {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	return &Orchestrator{
		cfg:    cfg,
		wakeCh: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
}

// Start launches the trigger loop. An initial drain is attempted right
// away so items queued before a restart are retried promptly.
func (o *Orchestrator) Start(ctx context.Context) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()

		o.Drain(ctx)

		ticker := time.NewTicker(o.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-o.stopCh:
				return
			case <-ticker.C:
				o.Drain(ctx)
			case <-o.wakeCh:
				o.Drain(ctx)
			case <-o.cfg.OnlineEvents:
				o.Drain(ctx)
			}
		}
	}()

	log.Info().Dur("interval", o.cfg.Interval).Msg("Sync orchestrator started")
}

// Stop halts the trigger loop and waits for an in-flight drain.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
	o.wg.Wait()
}

// Wake requests a drain attempt now. Never blocks; if a drain is
// already pending or running the request coalesces.
func (o *Orchestrator) Wake() {
	select {
	case o.wakeCh <- struct{}{}:
	default:
	}
}

// Drain runs one full sequential pass over the current queue snapshot.
// It returns the cycle summary and false when the cycle was dropped
// because another drain was already in flight.
func (o *Orchestrator) Drain(ctx context.Context) (models.LastSyncInfo, bool) {
	if !o.draining.CompareAndSwap(false, true) {
		log.Debug().Msg("Drain already in progress, trigger ignored")
		return models.LastSyncInfo{}, false
	}
	defer o.draining.Store(false)

	summary := models.LastSyncInfo{Timestamp: time.Now()}

	// Offline or unconfigured backend: a deliberate no-op, not an error.
	if o.cfg.Connectivity == nil || !o.cfg.Connectivity.Online() {
		return summary, true
	}

	start := time.Now()
	items := o.cfg.Queue.PeekAll()

	for _, item := range items {
		driver, ok := o.cfg.Drivers.For(item.Type)
		if !ok {
			// Unknown types stay queued; a newer agent may understand them.
			log.Error().Str("id", item.ID).Str("type", string(item.Type)).Msg("No driver for queued item type")
			o.cfg.Queue.BumpAttempts(item.ID)
			summary.Errors++
			continue
		}

		ref, err := driver.Submit(ctx, item)
		if err != nil {
			log.Warn().
				Err(err).
				Str("id", item.ID).
				Str("type", string(item.Type)).
				Int("attempts", item.Attempts+1).
				Msg("Offline queue sync failed for item")
			o.cfg.Queue.BumpAttempts(item.ID)
			metrics.ItemsFailedTotal.Inc()
			summary.Errors++
			continue
		}

		o.cfg.Queue.RemoveByID(item.ID)
		metrics.ItemsProcessedTotal.Inc()
		summary.Processed++

		log.Info().
			Str("id", item.ID).
			Str("type", string(item.Type)).
			Str("record_id", ref.ID).
			Msg("Queued submission delivered")
	}

	summary.Timestamp = time.Now()
	if err := o.cfg.State.SaveLastSync(summary); err != nil {
		log.Error().Err(err).Msg("Failed to persist last sync info")
	}

	metrics.DrainCyclesTotal.Inc()
	metrics.DrainDuration.Observe(time.Since(start).Seconds())

	if summary.Processed > 0 {
		log.Info().Int("processed", summary.Processed).Msg("Synced offline submissions")
	}

	if o.cfg.OnComplete != nil {
		o.cfg.OnComplete(summary)
	}

	return summary, true
}
