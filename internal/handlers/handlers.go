package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/communitypulse/sync-agent/internal/drivers"
	"github.com/communitypulse/sync-agent/internal/models"
	"github.com/communitypulse/sync-agent/internal/queue"
	"github.com/communitypulse/sync-agent/internal/status"
	"github.com/communitypulse/sync-agent/internal/syncer"
)

// Waker schedules a drain attempt.
type Waker interface {
	Wake()
}

// Handler contains all HTTP handlers of the agent's local API.
type Handler struct {
	queue        *queue.Manager
	reporter     *status.Reporter
	drivers      drivers.Registry
	connectivity syncer.Connectivity
	waker        Waker
}

// NewHandler creates a new handler instance.
func NewHandler(
	q *queue.Manager,
	reporter *status.Reporter,
	registry drivers.Registry,
	connectivity syncer.Connectivity,
	waker Waker,
) *Handler {
	return &Handler{
		queue:        q,
		reporter:     reporter,
		drivers:      registry,
		connectivity: connectivity,
		waker:        waker,
	}
}

// HealthCheckHandler reports liveness and the current queue depth.
func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": h.queue.Count(),
	})
}

// StatusHandler returns the queue depth, last-sync summary and the
// current connectivity state for UI polling.
func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := h.reporter.Current()
	online := h.connectivity != nil && h.connectivity.Online()
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth": snapshot.QueueDepth,
		"last_sync":   snapshot.LastSync,
		"online":      online,
	})
}

// SyncHandler schedules an immediate drain attempt.
func (h *Handler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	h.waker.Wake()
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "sync scheduled"})
}

// CreatePledgeHandler accepts a pledge submission. When the backend is
// reachable the pledge is delivered immediately; otherwise (or when
// delivery fails) it is queued and the caller is told "saved offline".
func (h *Handler) CreatePledgeHandler(w http.ResponseWriter, r *http.Request) {
	var payload models.PledgePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := payload.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.submit(w, r, models.TypePledge, &payload)
}

// CreateIncidentHandler accepts an incident report. The status field is
// forced to unverified regardless of what the caller sent.
func (h *Handler) CreateIncidentHandler(w http.ResponseWriter, r *http.Request) {
	var payload models.IncidentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	payload.Status = models.IncidentStatusUnverified
	if err := payload.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.submit(w, r, models.TypeIncident, &payload)
}

// submit tries a direct delivery while online and falls back to the
// offline queue on any failure. The queued path always succeeds from
// the caller's point of view.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request, itemType models.QueueItemType, payload any) {
	if h.connectivity != nil && h.connectivity.Online() {
		ref, err := h.submitDirect(r, itemType, payload)
		if err == nil {
			writeJSON(w, http.StatusCreated, map[string]any{
				"status": "submitted",
				"id":     ref.ID,
			})
			return
		}
		log.Warn().Err(err).Str("type", string(itemType)).Msg("Direct submission failed, queueing offline")
	}

	id, err := h.queue.Enqueue(itemType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", string(itemType)).Msg("Failed to enqueue submission")
		http.Error(w, "Failed to queue submission", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":    "saved offline",
		"queued_id": id,
	})
}

func (h *Handler) submitDirect(r *http.Request, itemType models.QueueItemType, payload any) (*drivers.RemoteRef, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	driver, ok := h.drivers.For(itemType)
	if !ok {
		return nil, fmt.Errorf("no driver registered for type %q", itemType)
	}

	item := models.QueueItem{
		ID:      uuid.New().String(),
		Type:    itemType,
		Payload: raw,
	}
	return driver.Submit(r.Context(), item)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}
