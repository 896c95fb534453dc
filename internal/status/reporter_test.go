package status

import (
	"errors"
	"testing"
	"time"

	"github.com/communitypulse/sync-agent/internal/models"
)

type fakeCounter struct{ count int }

func (f *fakeCounter) Count() int { return f.count }

type fakeLoader struct {
	info *models.LastSyncInfo
	err  error
}

func (f *fakeLoader) LoadLastSync() (*models.LastSyncInfo, error) { return f.info, f.err }

func TestReporterInitialSnapshot(t *testing.T) {
	loader := &fakeLoader{info: &models.LastSyncInfo{Processed: 3, Errors: 1}}
	r := NewReporter(&fakeCounter{count: 2}, loader, time.Hour)

	snap := r.Current()
	if snap.QueueDepth != 2 {
		t.Errorf("Expected depth 2, got %d", snap.QueueDepth)
	}
	if snap.LastSync == nil || snap.LastSync.Processed != 3 || snap.LastSync.Errors != 1 {
		t.Errorf("Unexpected last sync snapshot: %+v", snap.LastSync)
	}
}

func TestReporterNeverSynced(t *testing.T) {
	r := NewReporter(&fakeCounter{}, &fakeLoader{}, time.Hour)

	if snap := r.Current(); snap.LastSync != nil {
		t.Errorf("Expected nil last sync before any drain, got %+v", snap.LastSync)
	}
}

func TestReporterRefreshPicksUpChanges(t *testing.T) {
	counter := &fakeCounter{count: 1}
	loader := &fakeLoader{}
	r := NewReporter(counter, loader, time.Hour)

	counter.count = 4
	loader.info = &models.LastSyncInfo{Timestamp: time.Now(), Processed: 1}
	r.Refresh()

	snap := r.Current()
	if snap.QueueDepth != 4 {
		t.Errorf("Expected depth 4 after refresh, got %d", snap.QueueDepth)
	}
	if snap.LastSync == nil {
		t.Error("Expected last sync info after refresh")
	}
}

func TestReporterKeepsServingOnLoadError(t *testing.T) {
	loader := &fakeLoader{err: errors.New("database locked")}
	r := NewReporter(&fakeCounter{count: 7}, loader, time.Hour)

	snap := r.Current()
	if snap.QueueDepth != 7 {
		t.Errorf("Expected depth 7 despite load error, got %d", snap.QueueDepth)
	}
	if snap.LastSync != nil {
		t.Errorf("Expected nil last sync on load error, got %+v", snap.LastSync)
	}
}
