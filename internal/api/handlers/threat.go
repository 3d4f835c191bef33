package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/argussec/argus/internal/api/dto"
	"github.com/argussec/argus/internal/domain/indicator"
	"github.com/argussec/argus/internal/pkg/errors"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/argussec/argus/internal/pkg/utils"
	"github.com/argussec/argus/internal/pkg/validator"
)

type ThreatHandler struct {
	service   indicator.Service
	logger    *logger.Logger
	validator *validator.Validator
}

func NewThreatHandler(service indicator.Service, log *logger.Logger, val *validator.Validator) *ThreatHandler {
	return &ThreatHandler{service: service, logger: log, validator: val}
}

// Check looks up a value against the threat store and external feeds
// @Summary Check threat indicator
// @Description Merge local and feed intelligence for (type, value) into a risk score and recommendation
// @Tags Threat
// @Accept json
// @Produce json
// @Param request body dto.CheckIndicatorRequest true "Indicator to check"
// @Success 200 {object} dto.CheckResultDTO "Lookup outcome"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Security ServiceToken
// @Router /threat/check [post]
func (h *ThreatHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req dto.CheckIndicatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if verrs := h.validator.Validate(req); len(verrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", verrs))
		return
	}

	result, err := h.service.CheckIndicator(r.Context(), indicator.Type(req.Type), req.Value)
	if err != nil {
		writeServiceError(w, err, "Failed to check indicator")
		return
	}

	dtos := make([]dto.IndicatorDTO, len(result.Indicators))
	for i, ind := range result.Indicators {
		dtos[i] = toIndicatorDTO(ind)
	}

	utils.WriteSuccess(w, http.StatusOK, dto.CheckResultDTO{
		IsThreat:       result.IsThreat,
		Indicators:     dtos,
		RiskScore:      result.RiskScore,
		Recommendation: result.Recommendation,
		Sources:        result.Sources,
		CheckedAt:      result.CheckedAt,
	})
}

// Add stores a new threat indicator
// @Summary Add threat indicator
// @Tags Threat
// @Accept json
// @Produce json
// @Param request body dto.AddIndicatorRequest true "Indicator details"
// @Success 201 {object} map[string]string "Indicator stored"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Security BearerAuth
// @Router /threat/indicators [post]
func (h *ThreatHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req dto.AddIndicatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if verrs := h.validator.Validate(req); len(verrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", verrs))
		return
	}

	id, err := h.service.AddIndicator(r.Context(), &indicator.ThreatIndicator{
		Type:       indicator.Type(req.Type),
		Value:      req.Value,
		ThreatType: req.ThreatType,
		Severity:   indicator.Severity(req.Severity),
		Source:     req.Source,
		Confidence: req.Confidence,
	})
	if err != nil {
		writeServiceError(w, err, "Failed to add indicator")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, map[string]string{"indicatorId": id})
}

// List returns stored indicators with pagination
// @Summary List threat indicators
// @Tags Threat
// @Produce json
// @Param type query string false "Filter by indicator type"
// @Param source query string false "Filter by source"
// @Param active query bool false "Only active indicators"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} utils.PaginatedResponse{data=[]dto.IndicatorDTO} "Indicators"
// @Security BearerAuth
// @Router /threat/indicators [get]
func (h *ThreatHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	filter := indicator.Filter{
		Type:       indicator.Type(r.URL.Query().Get("type")),
		Value:      r.URL.Query().Get("value"),
		Source:     r.URL.Query().Get("source"),
		ActiveOnly: r.URL.Query().Get("active") == "true",
	}

	offset := (page - 1) * pageSize
	indicators, total, err := h.service.List(r.Context(), filter, pageSize, offset)
	if err != nil {
		writeServiceError(w, err, "Failed to list indicators")
		return
	}

	dtos := make([]dto.IndicatorDTO, len(indicators))
	for i, ind := range indicators {
		dtos[i] = toIndicatorDTO(ind)
	}
	utils.WriteSuccess(w, http.StatusOK, utils.NewPaginatedResponse(dtos, page, pageSize, total))
}

func toIndicatorDTO(ind *indicator.ThreatIndicator) dto.IndicatorDTO {
	return dto.IndicatorDTO{
		ID:         ind.ID,
		Type:       string(ind.Type),
		Value:      ind.Value,
		ThreatType: ind.ThreatType,
		Severity:   string(ind.Severity),
		Source:     ind.Source,
		Confidence: ind.Confidence,
		FirstSeen:  ind.FirstSeen,
		LastSeen:   ind.LastSeen,
		IsActive:   ind.IsActive,
	}
}
