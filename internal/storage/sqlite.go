package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/communitypulse/sync-agent/internal/models"
)

// schemaVersion is bumped whenever the stored shape changes so a new
// agent never collides with data written by an incompatible one.
const schemaVersion = 1

// LocalStore persists the offline queue and the last-sync record in a
// local SQLite database. It is the only durable copy of a submission
// while the device is offline.
type LocalStore struct {
	db *sql.DB
}

// NewLocalStore opens (or creates) the agent database under dataDir.
// Pass ":memory:" as dataDir for an ephemeral store in tests.
func NewLocalStore(dataDir string) (*LocalStore, error) {
	dbPath := dataDir
	if dataDir != ":memory:" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dbPath = filepath.Join(dataDir, "sync-agent.db")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}

	// SQLite supports a single writer; serialize at the pool level.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &LocalStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize local schema: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("Local store opened")
	return s, nil
}

func (s *LocalStore) init() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return err
	}
	if version != 0 && version != schemaVersion {
		return fmt.Errorf("local store has schema version %d, expected %d", version, schemaVersion)
	}

	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS queue_items (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		id         TEXT NOT NULL UNIQUE,
		item_type  TEXT NOT NULL,
		payload    TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		attempts   INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS last_sync (
		id        INTEGER PRIMARY KEY CHECK (id = 1),
		timestamp INTEGER NOT NULL,
		processed INTEGER NOT NULL,
		errors    INTEGER NOT NULL
	);`)
	if err != nil {
		return err
	}

	if version == 0 {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version=%d;", schemaVersion)); err != nil {
			return err
		}
	}
	return nil
}

// Load returns every queued item in insertion order.
func (s *LocalStore) Load() ([]models.QueueItem, error) {
	rows, err := s.db.Query(`
	SELECT id, item_type, payload, created_at, attempts
	FROM queue_items
	ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue items: %w", err)
	}
	defer rows.Close()

	var items []models.QueueItem
	for rows.Next() {
		var (
			item      models.QueueItem
			itemType  string
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&item.ID, &itemType, &payload, &createdAt, &item.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		item.Type = models.QueueItemType(itemType)
		item.Payload = []byte(payload)
		item.CreatedAt = time.UnixMilli(createdAt)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read queue items: %w", err)
	}
	return items, nil
}

// Save replaces the full stored collection in one transaction so no
// partial write is ever observable.
func (s *LocalStore) Save(items []models.QueueItem) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM queue_items"); err != nil {
		return fmt.Errorf("failed to clear queue items: %w", err)
	}

	stmt, err := tx.Prepare(`
	INSERT INTO queue_items (id, item_type, payload, created_at, attempts)
	VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		_, err := stmt.Exec(item.ID, string(item.Type), string(item.Payload),
			item.CreatedAt.UnixMilli(), item.Attempts)
		if err != nil {
			return fmt.Errorf("failed to insert queue item %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save: %w", err)
	}
	return nil
}

// SaveLastSync overwrites the single last-sync record.
func (s *LocalStore) SaveLastSync(info models.LastSyncInfo) error {
	_, err := s.db.Exec(`
	INSERT INTO last_sync (id, timestamp, processed, errors)
	VALUES (1, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		timestamp = excluded.timestamp,
		processed = excluded.processed,
		errors = excluded.errors`,
		info.Timestamp.UnixMilli(), info.Processed, info.Errors)
	if err != nil {
		return fmt.Errorf("failed to save last sync info: %w", err)
	}
	return nil
}

// LoadLastSync returns the last-sync record, or nil if no drain cycle
// has completed yet.
func (s *LocalStore) LoadLastSync() (*models.LastSyncInfo, error) {
	var (
		ts        int64
		processed int
		errCount  int
	)
	err := s.db.QueryRow("SELECT timestamp, processed, errors FROM last_sync WHERE id = 1").
		Scan(&ts, &processed, &errCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last sync info: %w", err)
	}
	return &models.LastSyncInfo{
		Timestamp: time.UnixMilli(ts),
		Processed: processed,
		Errors:    errCount,
	}, nil
}

// Close closes the underlying database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}
