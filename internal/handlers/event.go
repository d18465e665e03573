package handlers

import (
	"errors"
	"net/http"
	"time"

	"popin-backend/internal/middleware"
	"popin-backend/internal/models"
	"popin-backend/internal/services"
	"popin-backend/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// EventHandler handles calendar event HTTP requests
type EventHandler struct {
	eventService *services.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService *services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// EventRequest represents the request body for creating or updating an event
type EventRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	StartTime   time.Time `json:"start_time" validate:"required"`
	EndTime     time.Time `json:"end_time" validate:"required"`
	Type        string    `json:"type" validate:"required,oneof=personal hangout"`
	Visibility  string    `json:"visibility" validate:"omitempty,oneof=friends private"`
}

func (req *EventRequest) toInput() services.EventInput {
	return services.EventInput{
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Type:        models.EventType(req.Type),
		Visibility:  models.Visibility(req.Visibility),
	}
}

func respondEventError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, "Event not found", http.StatusNotFound)
	case errors.Is(err, services.ErrNotOwner):
		respondError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, services.ErrInvalidTimeRange), errors.Is(err, services.ErrInvalidEventType):
		respondError(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error().Err(err).Msg("Event operation failed")
		respondError(w, "Event operation failed", http.StatusInternalServerError)
	}
}

// Create handles POST /api/v1/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req EventRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ev, err := h.eventService.Create(r.Context(), userID, req.toInput())
	if err != nil {
		respondEventError(w, err)
		return
	}

	log.Info().
		Str("event_id", ev.ID).
		Str("owner_id", userID).
		Str("type", string(ev.Type)).
		Msg("Event created")

	respondJSON(w, http.StatusCreated, ev)
}

// Get handles GET /api/v1/events/{event_id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	eventID := chi.URLParam(r, "event_id")

	ev, err := h.eventService.Get(r.Context(), eventID, userID)
	if err != nil {
		respondEventError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ev)
}

// Update handles PUT /api/v1/events/{event_id}
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	eventID := chi.URLParam(r, "event_id")

	var req EventRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ev, err := h.eventService.Update(r.Context(), eventID, userID, req.toInput())
	if err != nil {
		respondEventError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ev)
}

// Delete handles DELETE /api/v1/events/{event_id}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	eventID := chi.URLParam(r, "event_id")

	if err := h.eventService.Delete(r.Context(), eventID, userID); err != nil {
		respondEventError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/v1/events?from=&to= (RFC 3339 bounds, both optional)
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var from, to *time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, "Invalid from parameter", http.StatusBadRequest)
			return
		}
		from = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, "Invalid to parameter", http.StatusBadRequest)
			return
		}
		to = &t
	}

	events, err := h.eventService.List(r.Context(), userID, from, to)
	if err != nil {
		respondEventError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// ListMatches handles GET /api/v1/hangouts/matches
func (h *EventHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	matches, err := h.eventService.ListMatches(r.Context(), userID)
	if err != nil {
		respondEventError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, matches)
}
