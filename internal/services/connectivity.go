package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Pinger is anything that can answer "is the backend reachable".
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectivityMonitor periodically probes the remote backend and
// exposes the current online state plus a notification on each
// offline-to-online transition. With a nil pinger the monitor reports
// permanently offline, which covers the backend-not-configured case.
type ConnectivityMonitor struct {
	pinger   Pinger
	interval time.Duration

	mu     sync.RWMutex
	online bool

	onlineCh chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewConnectivityMonitor creates a monitor probing at the given
// interval. The initial state is offline until the first probe passes.
func NewConnectivityMonitor(pinger Pinger, interval time.Duration) *ConnectivityMonitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &ConnectivityMonitor{
		pinger:   pinger,
		interval: interval,
		onlineCh: make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// Start begins probing in the background.
func (m *ConnectivityMonitor) Start(ctx context.Context) {
	if m.pinger == nil {
		log.Warn().Msg("Remote backend not configured, connectivity monitor idle")
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		m.probe(ctx)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.probe(ctx)
			}
		}
	}()
}

// Stop halts probing and waits for the background goroutine.
func (m *ConnectivityMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

// Online reports the most recently observed connectivity state.
func (m *ConnectivityMonitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// OnlineEvents delivers one signal per offline-to-online transition.
func (m *ConnectivityMonitor) OnlineEvents() <-chan struct{} {
	return m.onlineCh
}

func (m *ConnectivityMonitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := m.pinger.Ping(probeCtx)
	nowOnline := err == nil

	m.mu.Lock()
	wasOnline := m.online
	m.online = nowOnline
	m.mu.Unlock()

	if nowOnline == wasOnline {
		return
	}

	if nowOnline {
		log.Info().Msg("Connectivity restored")
		select {
		case m.onlineCh <- struct{}{}:
		default:
		}
	} else {
		log.Warn().Err(err).Msg("Backend unreachable, submissions will queue locally")
	}
}
