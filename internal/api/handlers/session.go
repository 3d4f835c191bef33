package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/argussec/argus/internal/api/dto"
	"github.com/argussec/argus/internal/api/middleware"
	"github.com/argussec/argus/internal/domain/session"
	"github.com/argussec/argus/internal/pkg/errors"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/argussec/argus/internal/pkg/utils"
	"github.com/argussec/argus/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

type SessionHandler struct {
	service   session.Service
	logger    *logger.Logger
	validator *validator.Validator
}

func NewSessionHandler(service session.Service, log *logger.Logger, val *validator.Validator) *SessionHandler {
	return &SessionHandler{service: service, logger: log, validator: val}
}

// Create opens a new session
// @Summary Create session
// @Description Bind an authenticated user to a device fingerprint, evicting the oldest session when over the concurrency limit
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body dto.CreateSessionRequest true "Session details"
// @Success 201 {object} map[string]string "Session created"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Security ServiceToken
// @Router /sessions [post]
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if verrs := h.validator.Validate(req); len(verrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", verrs))
		return
	}

	id, err := h.service.Create(r.Context(), session.CreateParams{
		UserID:      req.UserID,
		Token:       req.Token,
		Fingerprint: req.Fingerprint,
		IPAddress:   req.IPAddress,
	})
	if err != nil {
		writeServiceError(w, err, "Failed to create session")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, map[string]string{"sessionId": id})
}

// Validate checks a presented token and fingerprint against the stored session
// @Summary Validate session
// @Description Recompute hashes, accumulate risk factors and return the required action
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body dto.ValidateSessionRequest true "Presented credentials"
// @Success 200 {object} dto.ValidationResultDTO "Validation outcome"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Security ServiceToken
// @Router /sessions/validate [post]
func (h *SessionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req dto.ValidateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if verrs := h.validator.Validate(req); len(verrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", verrs))
		return
	}

	result, err := h.service.Validate(r.Context(), session.ValidateParams{
		UserID:      req.UserID,
		Token:       req.Token,
		Fingerprint: req.Fingerprint,
		IPAddress:   req.IPAddress,
	})
	if err != nil {
		writeServiceError(w, err, "Failed to validate session")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.ValidationResultDTO{
		IsValid:        result.IsValid,
		SessionID:      result.SessionID,
		RiskFactors:    result.RiskFactors,
		RiskScore:      result.RiskScore,
		ActionRequired: result.ActionRequired,
	})
}

// DetectHijack scores observed indicators against a session
// @Summary Detect session hijacking
// @Description Score the named risk indicators; above the threshold the session is invalidated
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body dto.DetectHijackRequest true "Observed indicators"
// @Success 200 {object} dto.DetectHijackResponse "Hijack verdict"
// @Failure 404 {object} utils.ErrorResponse "Session not found"
// @Security ServiceToken
// @Router /sessions/{id}/detect-hijack [post]
func (h *SessionHandler) DetectHijack(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req dto.DetectHijackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if verrs := h.validator.Validate(req); len(verrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", verrs))
		return
	}

	hijacked, err := h.service.DetectHijacking(r.Context(), id, req.Indicators)
	if err != nil {
		writeServiceError(w, err, "Failed to run hijack detection")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.DetectHijackResponse{
		Hijacked:  hijacked,
		SessionID: id,
	})
}

// List returns the authenticated user's active sessions
// @Summary List active sessions
// @Tags Sessions
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]dto.SessionDTO} "Active sessions"
// @Security BearerAuth
// @Router /sessions [get]
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Missing user identity"))
		return
	}

	sessions, err := h.service.ListActive(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "Failed to list sessions")
		return
	}

	dtos := make([]dto.SessionDTO, len(sessions))
	for i, s := range sessions {
		dtos[i] = toSessionDTO(s)
	}
	utils.WriteSuccess(w, http.StatusOK, dtos)
}

// Terminate ends one of the user's sessions
// @Summary Terminate session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} utils.SuccessResponse "Session terminated"
// @Failure 404 {object} utils.ErrorResponse "Session not found"
// @Security BearerAuth
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Missing user identity"))
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.service.Terminate(r.Context(), id, userID); err != nil {
		writeServiceError(w, err, "Failed to terminate session")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Session terminated", nil)
}

// TerminateOthers ends every session except the given one
// @Summary Terminate other sessions
// @Tags Sessions
// @Accept json
// @Produce json
// @Param request body dto.TerminateOthersRequest true "Session to keep"
// @Success 200 {object} map[string]int "Number of ended sessions"
// @Security BearerAuth
// @Router /sessions/terminate-others [post]
func (h *SessionHandler) TerminateOthers(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r)
	if !ok {
		utils.WriteError(w, errors.Unauthorized("Missing user identity"))
		return
	}

	var req dto.TerminateOthersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if verrs := h.validator.Validate(req); len(verrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", verrs))
		return
	}

	ended, err := h.service.TerminateOthers(r.Context(), userID, req.KeepSessionID)
	if err != nil {
		writeServiceError(w, err, "Failed to terminate sessions")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, map[string]int{"terminated": ended})
}

func toSessionDTO(s *session.Session) dto.SessionDTO {
	return dto.SessionDTO{
		ID:           s.ID,
		UserID:       s.UserID,
		IPAddress:    s.IPAddress,
		DeviceInfo:   s.DeviceInfo,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
		ExpiresAt:    s.ExpiresAt,
		RiskScore:    s.RiskScore,
		IsActive:     s.IsActive,
		EndReason:    s.EndReason,
	}
}
