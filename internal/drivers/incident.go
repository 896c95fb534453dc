package drivers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/communitypulse/sync-agent/internal/models"
)

// Uploader is the binary-object upload endpoint of the media store.
type Uploader interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
}

// IncidentInserter is the remote record-insert endpoint for incidents.
type IncidentInserter interface {
	InsertIncident(ctx context.Context, rec *models.IncidentRecord) (string, error)
}

// IncidentDriver submits queued incident reports in two phases: upload
// the embedded media, then insert the record with resolved URLs.
type IncidentDriver struct {
	media   Uploader
	records IncidentInserter
	timeout time.Duration
}

// NewIncidentDriver creates an incident submission driver.
func NewIncidentDriver(media Uploader, records IncidentInserter, timeout time.Duration) *IncidentDriver {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &IncidentDriver{media: media, records: records, timeout: timeout}
}

// Submit uploads the photo (required) and audio (optional), then inserts
// the incident record. A photo-upload or insert failure fails the whole
// submission with no partial record created; an audio-upload failure is
// swallowed and the report proceeds without an audio reference.
func (d *IncidentDriver) Submit(ctx context.Context, item models.QueueItem) (*RemoteRef, error) {
	payload, err := item.IncidentPayload()
	if err != nil {
		return nil, err
	}

	photoData, photoMIME, err := DecodeDataURI(payload.PhotoDataURI)
	if err != nil {
		return nil, fmt.Errorf("failed to decode photo: %w", err)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	photoPath := fmt.Sprintf("reports/%s-offline%s", uuid.New().String(), extensionFor(photoMIME))
	photoURL, err := d.media.Upload(uploadCtx, photoPath, photoData, photoMIME)
	if err != nil {
		return nil, fmt.Errorf("failed to upload photo: %w", err)
	}

	rec := &models.IncidentRecord{
		Status:           payload.Status,
		Type:             payload.Type,
		Description:      payload.Description,
		PhotoURL:         photoURL,
		Latitude:         payload.Latitude,
		Longitude:        payload.Longitude,
		NotifyDepartment: payload.NotifyDepartment,
		NotifyContact:    payload.NotifyContact,
	}

	ref := &RemoteRef{PhotoURL: photoURL}

	if payload.AudioDataURI != nil && *payload.AudioDataURI != "" {
		if audioURL, ok := d.uploadAudio(ctx, item.ID, *payload.AudioDataURI); ok {
			rec.AudioURL = &audioURL
			ref.AudioURL = audioURL
		}
	}

	insertCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	recordID, err := d.records.InsertIncident(insertCtx, rec)
	if err != nil {
		return nil, err
	}
	ref.ID = recordID

	log.Debug().
		Str("item_id", item.ID).
		Str("record_id", recordID).
		Str("photo_url", photoURL).
		Msg("Incident report delivered")

	return ref, nil
}

// uploadAudio uploads the optional audio attachment. Failures are
// logged and reported as absent, never as submission errors.
func (d *IncidentDriver) uploadAudio(ctx context.Context, itemID, dataURI string) (string, bool) {
	audioData, audioMIME, err := DecodeDataURI(dataURI)
	if err != nil {
		log.Warn().Err(err).Str("item_id", itemID).Msg("Skipping undecodable audio attachment")
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	audioPath := fmt.Sprintf("reports/%s-offline-audio%s", uuid.New().String(), extensionFor(audioMIME))
	audioURL, err := d.media.Upload(ctx, audioPath, audioData, audioMIME)
	if err != nil {
		log.Warn().Err(err).Str("item_id", itemID).Msg("Audio upload failed, proceeding without audio")
		return "", false
	}
	return audioURL, true
}
