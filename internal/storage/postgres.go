package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/communitypulse/sync-agent/internal/models"
)

// RecordStore is the remote record-insert endpoint: one Postgres table
// per submission type. The connection is opened lazily so the agent
// starts (and queues) while the backend is unreachable.
type RecordStore struct {
	db *sql.DB

	mu          sync.Mutex
	schemaReady bool
}

// NewRecordStore opens a connection pool to the remote database. It
// does not dial: reachability is probed by the connectivity monitor
// and schema setup is retried on first use.
func NewRecordStore(host, port, user, password, dbName, sslMode string) (*RecordStore, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbName, sslMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote db connection: %w", err)
	}

	return &RecordStore{db: db}, nil
}

// ensureSchema creates the submission tables once the backend becomes
// reachable. Safe to call concurrently; only the first success runs DDL.
func (s *RecordStore) ensureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schemaReady {
		return nil
	}

	query := `
	CREATE TABLE IF NOT EXISTS pledges (
		id VARCHAR(36) PRIMARY KEY,
		name TEXT NOT NULL,
		contact TEXT NOT NULL,
		contact_number TEXT NOT NULL,
		resource_type VARCHAR(50) NOT NULL,
		resource_details TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		location_accuracy DOUBLE PRECISION,
		location_landmark TEXT,
		pledger_id VARCHAR(36),
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS incidents (
		id VARCHAR(36) PRIMARY KEY,
		status VARCHAR(20) NOT NULL,
		type VARCHAR(50) NOT NULL,
		description TEXT,
		photo_url TEXT NOT NULL,
		audio_url TEXT,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		notify_department TEXT,
		notify_contact TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);`

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to initialize remote schema: %w", err)
	}

	s.schemaReady = true
	return nil
}

// InsertPledge inserts a pledge record and returns its id.
func (s *RecordStore) InsertPledge(ctx context.Context, p *models.PledgePayload) (string, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return "", err
	}

	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO pledges (
		id, name, contact, contact_number, resource_type, resource_details,
		quantity, latitude, longitude, location_accuracy, location_landmark,
		pledger_id, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id, p.Name, p.Contact, p.ContactNumber, string(p.ResourceType), p.ResourceDetails,
		p.Quantity, p.Latitude, p.Longitude, p.LocationAccuracy, p.LocationLandmark,
		p.PledgerID, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to insert pledge record")
		return "", fmt.Errorf("failed to insert pledge: %w", err)
	}

	return id, nil
}

// InsertIncident inserts a resolved incident record and returns its id.
func (s *RecordStore) InsertIncident(ctx context.Context, rec *models.IncidentRecord) (string, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return "", err
	}

	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO incidents (
		id, status, type, description, photo_url, audio_url,
		latitude, longitude, notify_department, notify_contact, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, rec.Status, string(rec.Type), rec.Description, rec.PhotoURL, rec.AudioURL,
		rec.Latitude, rec.Longitude, rec.NotifyDepartment, rec.NotifyContact, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to insert incident record")
		return "", fmt.Errorf("failed to insert incident: %w", err)
	}

	return id, nil
}

// Ping reports whether the remote database is reachable.
func (s *RecordStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *RecordStore) Close() error {
	return s.db.Close()
}
