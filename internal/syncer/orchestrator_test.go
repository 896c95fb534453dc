package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/communitypulse/sync-agent/internal/drivers"
	"github.com/communitypulse/sync-agent/internal/models"
	"github.com/communitypulse/sync-agent/internal/queue"
	"github.com/communitypulse/sync-agent/internal/storage"
)

type stubConnectivity struct{ online bool }

func (s stubConnectivity) Online() bool { return s.online }

// recordingDriver captures the items it was asked to submit.
type recordingDriver struct {
	mu        sync.Mutex
	submitted []string
	err       error
	block     chan struct{} // when set, Submit waits until the channel closes
	entered   chan struct{} // when set, closed on first Submit call
}

func (d *recordingDriver) Submit(ctx context.Context, item models.QueueItem) (*drivers.RemoteRef, error) {
	d.mu.Lock()
	first := len(d.submitted) == 0
	d.submitted = append(d.submitted, item.ID)
	d.mu.Unlock()

	if d.entered != nil && first {
		close(d.entered)
	}
	if d.block != nil {
		<-d.block
	}
	if d.err != nil {
		return nil, d.err
	}
	return &drivers.RemoteRef{ID: "rec-" + item.ID}, nil
}

func (d *recordingDriver) calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.submitted))
	copy(out, d.submitted)
	return out
}

func newTestQueue(t *testing.T) (*queue.Manager, *storage.LocalStore) {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create local store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	m, err := queue.NewManager(store)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return m, store
}

func enqueuePledge(t *testing.T, m *queue.Manager, name string) string {
	t.Helper()
	id, err := m.Enqueue(models.TypePledge, &models.PledgePayload{
		Name:            name,
		Contact:         "jane@example.org",
		ContactNumber:   "+1 555 0100",
		ResourceType:    models.ResourceFood,
		ResourceDetails: "canned goods",
		Quantity:        5,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	return id
}

func TestDrainProcessesInInsertionOrder(t *testing.T) {
	q, store := newTestQueue(t)
	idA := enqueuePledge(t, q, "A")
	idB := enqueuePledge(t, q, "B")
	idC := enqueuePledge(t, q, "C")

	driver := &recordingDriver{}
	o := New(Config{
		Queue:        q,
		Drivers:      drivers.Registry{models.TypePledge: driver},
		State:        store,
		Connectivity: stubConnectivity{online: true},
	})

	summary, ok := o.Drain(context.Background())
	if !ok {
		t.Fatal("Expected drain to run")
	}
	if summary.Processed != 3 || summary.Errors != 0 {
		t.Fatalf("Expected 3 processed, got %+v", summary)
	}

	want := []string{idA, idB, idC}
	got := driver.calls()
	if len(got) != 3 {
		t.Fatalf("Expected 3 driver calls, got %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Call %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if q.Count() != 0 {
		t.Errorf("Expected empty queue after drain, got %d", q.Count())
	}
}

func TestDrainSkipsWhileOffline(t *testing.T) {
	q, store := newTestQueue(t)
	enqueuePledge(t, q, "A")

	driver := &recordingDriver{}
	o := New(Config{
		Queue:        q,
		Drivers:      drivers.Registry{models.TypePledge: driver},
		State:        store,
		Connectivity: stubConnectivity{online: false},
	})

	summary, ok := o.Drain(context.Background())
	if !ok {
		t.Fatal("Expected drain to return")
	}
	if summary.Processed != 0 || summary.Errors != 0 {
		t.Errorf("Expected a no-op summary, got %+v", summary)
	}
	if len(driver.calls()) != 0 {
		t.Errorf("Expected no driver calls while offline, got %d", len(driver.calls()))
	}
	if q.Count() != 1 {
		t.Errorf("Expected item retained while offline, got count %d", q.Count())
	}
}

func TestDrainSkipsWithoutConnectivitySignal(t *testing.T) {
	q, store := newTestQueue(t)
	enqueuePledge(t, q, "A")

	driver := &recordingDriver{}
	o := New(Config{
		Queue:   q,
		Drivers: drivers.Registry{models.TypePledge: driver},
		State:   store,
	})

	if _, ok := o.Drain(context.Background()); !ok {
		t.Fatal("Expected drain to return")
	}
	if len(driver.calls()) != 0 {
		t.Errorf("Expected no driver calls without a connectivity signal")
	}
}

func TestDrainAttemptMonotonicity(t *testing.T) {
	q, store := newTestQueue(t)
	id := enqueuePledge(t, q, "A")

	driver := &recordingDriver{err: errors.New("backend down")}
	o := New(Config{
		Queue:        q,
		Drivers:      drivers.Registry{models.TypePledge: driver},
		State:        store,
		Connectivity: stubConnectivity{online: true},
	})

	for cycle := 1; cycle <= 3; cycle++ {
		summary, ok := o.Drain(context.Background())
		if !ok {
			t.Fatalf("Cycle %d did not run", cycle)
		}
		if summary.Errors != 1 || summary.Processed != 0 {
			t.Fatalf("Cycle %d: expected 1 error, got %+v", cycle, summary)
		}

		items := q.PeekAll()
		if len(items) != 1 || items[0].ID != id {
			t.Fatalf("Cycle %d: item must never be removed, got %+v", cycle, items)
		}
		if items[0].Attempts != cycle {
			t.Errorf("Cycle %d: expected attempts %d, got %d", cycle, cycle, items[0].Attempts)
		}
	}
}

func TestDrainOneFailureDoesNotAbortCycle(t *testing.T) {
	q, store := newTestQueue(t)
	enqueuePledge(t, q, "A")
	idIncident, err := q.Enqueue(models.TypeIncident, &models.IncidentPayload{
		Status:       models.IncidentStatusUnverified,
		Type:         models.IncidentFire,
		PhotoDataURI: "data:image/jpeg;base64,AAAA",
		Latitude:     34.0,
		Longitude:    -118.0,
	})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	idLast := enqueuePledge(t, q, "C")

	pledgeDriver := &recordingDriver{}
	incidentDriver := &recordingDriver{err: errors.New("upload failed")}
	o := New(Config{
		Queue: q,
		Drivers: drivers.Registry{
			models.TypePledge:   pledgeDriver,
			models.TypeIncident: incidentDriver,
		},
		State:        store,
		Connectivity: stubConnectivity{online: true},
	})

	summary, _ := o.Drain(context.Background())
	if summary.Processed != 2 || summary.Errors != 1 {
		t.Fatalf("Expected processed=2 errors=1, got %+v", summary)
	}

	// The failing incident stays, the pledge after it was still attempted.
	if got := pledgeDriver.calls(); len(got) != 2 || got[1] != idLast {
		t.Errorf("Expected pledge C attempted after the failure, got %v", got)
	}
	items := q.PeekAll()
	if len(items) != 1 || items[0].ID != idIncident {
		t.Errorf("Expected only the failed incident retained, got %+v", items)
	}
}

func TestDrainNoDoubleSubmission(t *testing.T) {
	q, store := newTestQueue(t)
	enqueuePledge(t, q, "A")

	driver := &recordingDriver{}
	o := New(Config{
		Queue:        q,
		Drivers:      drivers.Registry{models.TypePledge: driver},
		State:        store,
		Connectivity: stubConnectivity{online: true},
	})

	o.Drain(context.Background())
	o.Drain(context.Background())

	if calls := driver.calls(); len(calls) != 1 {
		t.Errorf("Expected exactly 1 driver call across two cycles, got %d", len(calls))
	}
}

func TestDrainSingleFlight(t *testing.T) {
	q, store := newTestQueue(t)
	enqueuePledge(t, q, "A")

	driver := &recordingDriver{
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	o := New(Config{
		Queue:        q,
		Drivers:      drivers.Registry{models.TypePledge: driver},
		State:        store,
		Connectivity: stubConnectivity{online: true},
	})

	done := make(chan struct{})
	go func() {
		o.Drain(context.Background())
		close(done)
	}()

	select {
	case <-driver.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("First drain never reached the driver")
	}

	// Second trigger while the first cycle is mid-flight must be dropped.
	if _, ok := o.Drain(context.Background()); ok {
		t.Error("Expected overlapping drain to be ignored")
	}

	close(driver.block)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("First drain never finished")
	}

	if calls := driver.calls(); len(calls) != 1 {
		t.Errorf("Expected a single pass over the snapshot, got %d calls", len(calls))
	}
}

func TestDrainWritesLastSyncInfo(t *testing.T) {
	q, store := newTestQueue(t)
	enqueuePledge(t, q, "A")

	o := New(Config{
		Queue:        q,
		Drivers:      drivers.Registry{models.TypePledge: &recordingDriver{}},
		State:        store,
		Connectivity: stubConnectivity{online: true},
	})

	before := time.Now().Add(-time.Second)
	summary, _ := o.Drain(context.Background())

	info, err := store.LoadLastSync()
	if err != nil {
		t.Fatalf("LoadLastSync failed: %v", err)
	}
	if info == nil {
		t.Fatal("Expected last sync info after drain")
	}
	if info.Processed != summary.Processed || info.Errors != summary.Errors {
		t.Errorf("Persisted summary %+v differs from returned %+v", info, summary)
	}
	if info.Timestamp.Before(before) {
		t.Errorf("Last sync timestamp not updated: %v", info.Timestamp)
	}
}

func TestDrainOnCompleteCallback(t *testing.T) {
	q, store := newTestQueue(t)
	enqueuePledge(t, q, "A")

	var got []models.LastSyncInfo
	o := New(Config{
		Queue:        q,
		Drivers:      drivers.Registry{models.TypePledge: &recordingDriver{}},
		State:        store,
		Connectivity: stubConnectivity{online: true},
		OnComplete:   func(s models.LastSyncInfo) { got = append(got, s) },
	})

	o.Drain(context.Background())

	if len(got) != 1 || got[0].Processed != 1 {
		t.Errorf("Expected one completion callback with processed=1, got %+v", got)
	}
}

func TestWakeTriggersDrain(t *testing.T) {
	q, store := newTestQueue(t)
	enqueuePledge(t, q, "A")

	driver := &recordingDriver{}
	o := New(Config{
		Queue:        q,
		Drivers:      drivers.Registry{models.TypePledge: driver},
		State:        store,
		Connectivity: stubConnectivity{online: true},
		Interval:     time.Hour, // keep the ticker out of the way
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o.Start(ctx)
	defer o.Stop()

	deadline := time.After(2 * time.Second)
	for q.Count() > 0 {
		select {
		case <-deadline:
			t.Fatal("Queue never drained after start")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Enqueue another item and wake explicitly.
	enqueuePledge(t, q, "B")
	o.Wake()

	deadline = time.After(2 * time.Second)
	for q.Count() > 0 {
		select {
		case <-deadline:
			t.Fatal("Queue never drained after wake")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
