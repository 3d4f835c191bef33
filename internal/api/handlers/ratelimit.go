package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/argussec/argus/internal/api/dto"
	"github.com/argussec/argus/internal/domain/ratelimit"
	"github.com/argussec/argus/internal/pkg/errors"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/argussec/argus/internal/pkg/utils"
	"github.com/argussec/argus/internal/pkg/validator"
)

type RateLimitHandler struct {
	service   ratelimit.Service
	logger    *logger.Logger
	validator *validator.Validator
}

func NewRateLimitHandler(service ratelimit.Service, log *logger.Logger, val *validator.Validator) *RateLimitHandler {
	return &RateLimitHandler{service: service, logger: log, validator: val}
}

// Check consumes one request from the actor's rate limit window
// @Summary Check rate limit
// @Description Apply the fixed-window counter for the endpoint class; the call itself consumes a slot
// @Tags RateLimit
// @Accept json
// @Produce json
// @Param request body dto.CheckRateLimitRequest true "Endpoint and actor"
// @Success 200 {object} dto.DecisionDTO "Rate limit decision"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Security ServiceToken
// @Router /ratelimit/check [post]
func (h *RateLimitHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckRateLimitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if verrs := h.validator.Validate(req); len(verrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", verrs))
		return
	}

	decision, err := h.service.CheckRateLimit(r.Context(), req.Endpoint, req.ActorKey)
	if err != nil {
		writeServiceError(w, err, "Failed to check rate limit")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, toDecisionDTO(decision))
}

// Peek reads the current window without consuming a request
// @Summary Peek rate limit
// @Tags RateLimit
// @Produce json
// @Param endpoint query string true "Endpoint"
// @Param actor_key query string true "Actor key"
// @Success 200 {object} dto.DecisionDTO "Current window state"
// @Security ServiceToken
// @Router /ratelimit/peek [get]
func (h *RateLimitHandler) Peek(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Query().Get("endpoint")
	actorKey := r.URL.Query().Get("actor_key")
	if endpoint == "" || actorKey == "" {
		utils.WriteError(w, errors.BadRequest("endpoint and actor_key are required"))
		return
	}

	decision, err := h.service.PeekRateLimit(r.Context(), endpoint, actorKey)
	if err != nil {
		writeServiceError(w, err, "Failed to read rate limit")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, toDecisionDTO(decision))
}

// Validate runs full request validation: rate limit, signature, abuse
// @Summary Validate request
// @Description Compose rate limiting, optional HMAC signature verification and abuse heuristics, then log the request
// @Tags RateLimit
// @Accept json
// @Produce json
// @Param request body dto.ValidateRequestRequest true "Observed request"
// @Success 200 {object} dto.OutcomeDTO "Validation outcome"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Security ServiceToken
// @Router /requests/validate [post]
func (h *RateLimitHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req dto.ValidateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if verrs := h.validator.Validate(req); len(verrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", verrs))
		return
	}

	params := ratelimit.ValidateParams{
		Endpoint:       req.Endpoint,
		Method:         req.Method,
		ActorKey:       req.ActorKey,
		UserAgent:      req.UserAgent,
		IPAddress:      req.IPAddress,
		Body:           req.Body,
		Signature:      req.Signature,
		StatusCode:     req.StatusCode,
		ResponseTimeMs: req.ResponseTimeMs,
	}
	if req.Timestamp > 0 {
		params.Timestamp = time.Unix(req.Timestamp, 0)
	}

	outcome, err := h.service.ValidateRequest(r.Context(), params)
	if err != nil {
		writeServiceError(w, err, "Failed to validate request")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, dto.OutcomeDTO{
		Allowed:      outcome.Allowed,
		Reason:       outcome.Reason,
		RiskScore:    outcome.RiskScore,
		IsSuspicious: outcome.IsSuspicious,
		RateLimit:    toDecisionDTO(&outcome.RateLimit),
	})
}

func toDecisionDTO(d *ratelimit.Decision) dto.DecisionDTO {
	return dto.DecisionDTO{
		Allowed:    d.Allowed,
		Limit:      d.Limit,
		Remaining:  d.Remaining,
		ResetAt:    d.ResetAt,
		RetryAfter: d.RetryAfter,
	}
}
