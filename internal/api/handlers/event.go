package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/argussec/argus/internal/api/dto"
	"github.com/argussec/argus/internal/domain/event"
	"github.com/argussec/argus/internal/pkg/errors"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/argussec/argus/internal/pkg/utils"
	"github.com/argussec/argus/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type EventHandler struct {
	bus       event.Bus
	logger    *logger.Logger
	validator *validator.Validator
}

func NewEventHandler(bus event.Bus, log *logger.Logger, val *validator.Validator) *EventHandler {
	return &EventHandler{bus: bus, logger: log, validator: val}
}

// Publish accepts a security event into the pipeline
// @Summary Publish security event
// @Description Buffer, persist and evaluate alert rules for one event
// @Tags Events
// @Accept json
// @Produce json
// @Param request body dto.PublishEventRequest true "Event details"
// @Success 202 {object} map[string]string "Event accepted"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Security ServiceToken
// @Router /events [post]
func (h *EventHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req dto.PublishEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if verrs := h.validator.Validate(req); len(verrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", verrs))
		return
	}

	id, err := h.bus.Publish(r.Context(), &event.SecurityEvent{
		EventType:   req.EventType,
		Severity:    event.Severity(req.Severity),
		Source:      req.Source,
		Title:       req.Title,
		Description: req.Description,
		Metadata:    req.Metadata,
		UserID:      req.UserID,
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
	})
	if err != nil {
		writeServiceError(w, err, "Failed to publish event")
		return
	}

	utils.WriteSuccess(w, http.StatusAccepted, map[string]string{"eventId": id})
}

// Recent reads the in-memory ring buffer
// @Summary Recent events
// @Description Read the in-memory ring buffer, newest first; never touches the store
// @Tags Events
// @Produce json
// @Param event_type query string false "Filter by event type"
// @Param severity query string false "Filter by severity"
// @Param limit query int false "Max results (default 100)"
// @Success 200 {object} utils.SuccessResponse{data=[]dto.EventDTO} "Recent events"
// @Security BearerAuth
// @Router /events/recent [get]
func (h *EventHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events := h.bus.Recent(event.RecentFilter{
		EventType: r.URL.Query().Get("event_type"),
		Severity:  event.Severity(r.URL.Query().Get("severity")),
		Limit:     limit,
	})

	dtos := make([]dto.EventDTO, len(events))
	for i, ev := range events {
		dtos[i] = toEventDTO(ev)
	}
	utils.WriteSuccess(w, http.StatusOK, dtos)
}

// List reads persisted events with filters and pagination
// @Summary List events
// @Tags Events
// @Produce json
// @Param event_type query string false "Filter by event type"
// @Param severity query string false "Filter by severity"
// @Param resolved query bool false "Filter by resolution state"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} utils.PaginatedResponse{data=[]dto.EventDTO} "Events"
// @Security BearerAuth
// @Router /events [get]
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	filter := event.Filter{
		EventType: r.URL.Query().Get("event_type"),
		Severity:  event.Severity(r.URL.Query().Get("severity")),
	}
	if raw := r.URL.Query().Get("resolved"); raw != "" {
		resolved := raw == "true"
		filter.Resolved = &resolved
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = &t
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = &t
		}
	}

	offset := (page - 1) * pageSize
	events, total, err := h.bus.List(r.Context(), filter, pageSize, offset)
	if err != nil {
		writeServiceError(w, err, "Failed to list events")
		return
	}

	dtos := make([]dto.EventDTO, len(events))
	for i, ev := range events {
		dtos[i] = toEventDTO(ev)
	}
	utils.WriteSuccess(w, http.StatusOK, utils.NewPaginatedResponse(dtos, page, pageSize, total))
}

// Resolve marks an event handled
// @Summary Resolve event
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param request body dto.ResolveEventRequest true "Resolver identity"
// @Success 200 {object} utils.SuccessResponse "Event resolved"
// @Failure 404 {object} utils.ErrorResponse "Event not found"
// @Security BearerAuth
// @Router /events/{id}/resolve [post]
func (h *EventHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.ResolveEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if verrs := h.validator.Validate(req); len(verrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", verrs))
		return
	}

	if err := h.bus.Resolve(r.Context(), id, req.ResolvedBy); err != nil {
		writeServiceError(w, err, "Failed to resolve event")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Event resolved", nil)
}

// Summary returns unresolved event counts by severity
// @Summary Event summary
// @Tags Events
// @Produce json
// @Success 200 {object} map[string]int "Counts by severity"
// @Security BearerAuth
// @Router /events/summary [get]
func (h *EventHandler) Summary(w http.ResponseWriter, r *http.Request) {
	counts, err := h.bus.Summary(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to summarize events")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, counts)
}

func toEventDTO(ev *event.SecurityEvent) dto.EventDTO {
	return dto.EventDTO{
		ID:          ev.ID,
		EventType:   ev.EventType,
		Severity:    string(ev.Severity),
		Source:      ev.Source,
		Title:       ev.Title,
		Description: ev.Description,
		Metadata:    ev.Metadata,
		UserID:      ev.UserID,
		IPAddress:   ev.IPAddress,
		CreatedAt:   ev.CreatedAt,
		IsResolved:  ev.IsResolved,
		ResolvedBy:  ev.ResolvedBy,
		ResolvedAt:  ev.ResolvedAt,
	}
}
