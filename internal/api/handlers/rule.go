package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/argussec/argus/internal/api/dto"
	"github.com/argussec/argus/internal/domain/event"
	"github.com/argussec/argus/internal/pkg/errors"
	"github.com/argussec/argus/internal/pkg/logger"
	"github.com/argussec/argus/internal/pkg/utils"
	"github.com/argussec/argus/internal/pkg/validator"
	"github.com/argussec/argus/internal/services"
	"github.com/go-chi/chi/v5"
)

type RuleHandler struct {
	service   *services.RuleService
	logger    *logger.Logger
	validator *validator.Validator
}

func NewRuleHandler(service *services.RuleService, log *logger.Logger, val *validator.Validator) *RuleHandler {
	return &RuleHandler{service: service, logger: log, validator: val}
}

// List returns all alert rules
// @Summary List alert rules
// @Tags Rules
// @Produce json
// @Success 200 {object} utils.SuccessResponse{data=[]dto.RuleDTO} "Alert rules"
// @Security BearerAuth
// @Router /rules [get]
func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to list rules")
		return
	}

	dtos := make([]dto.RuleDTO, len(rules))
	for i, rule := range rules {
		dtos[i] = toRuleDTO(rule)
	}
	utils.WriteSuccess(w, http.StatusOK, dtos)
}

// Get returns a single rule
// @Summary Get alert rule
// @Tags Rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} dto.RuleDTO "Alert rule"
// @Failure 404 {object} utils.ErrorResponse "Rule not found"
// @Security BearerAuth
// @Router /rules/{id} [get]
func (h *RuleHandler) Get(w http.ResponseWriter, r *http.Request) {
	rule, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "Failed to get rule")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, toRuleDTO(rule))
}

// Create stores a new alert rule
// @Summary Create alert rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param request body dto.SaveRuleRequest true "Rule definition"
// @Success 201 {object} map[string]string "Rule created"
// @Failure 400 {object} utils.ErrorResponse "Invalid request"
// @Security BearerAuth
// @Router /rules [post]
func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.decodeRule(w, r)
	if !ok {
		return
	}

	id, err := h.service.Create(r.Context(), rule)
	if err != nil {
		writeServiceError(w, err, "Failed to create rule")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, map[string]string{"ruleId": id})
}

// Update replaces a rule's configuration
// @Summary Update alert rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param request body dto.SaveRuleRequest true "Rule definition"
// @Success 200 {object} utils.SuccessResponse "Rule updated"
// @Failure 404 {object} utils.ErrorResponse "Rule not found"
// @Security BearerAuth
// @Router /rules/{id} [put]
func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	rule, ok := h.decodeRule(w, r)
	if !ok {
		return
	}
	rule.ID = chi.URLParam(r, "id")

	if err := h.service.Update(r.Context(), rule); err != nil {
		writeServiceError(w, err, "Failed to update rule")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Rule updated", nil)
}

// Delete removes a rule
// @Summary Delete alert rule
// @Tags Rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} utils.SuccessResponse "Rule deleted"
// @Failure 404 {object} utils.ErrorResponse "Rule not found"
// @Security BearerAuth
// @Router /rules/{id} [delete]
func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err, "Failed to delete rule")
		return
	}
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Rule deleted", nil)
}

func (h *RuleHandler) decodeRule(w http.ResponseWriter, r *http.Request) (*event.AlertRule, bool) {
	var req dto.SaveRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return nil, false
	}
	if verrs := h.validator.Validate(req); len(verrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", verrs))
		return nil, false
	}

	return &event.AlertRule{
		Name:              req.Name,
		EventType:         req.EventType,
		Conditions:        req.Conditions,
		Threshold:         req.Threshold,
		TimeWindowMinutes: req.TimeWindowMinutes,
		IsActive:          req.IsActive,
		Actions:           req.Actions,
	}, true
}

func toRuleDTO(rule *event.AlertRule) dto.RuleDTO {
	return dto.RuleDTO{
		ID:                rule.ID,
		Name:              rule.Name,
		EventType:         rule.EventType,
		Conditions:        rule.Conditions,
		Threshold:         rule.Threshold,
		TimeWindowMinutes: rule.TimeWindowMinutes,
		IsActive:          rule.IsActive,
		Actions:           rule.Actions,
		LastFiredAt:       rule.LastFiredAt,
		CreatedAt:         rule.CreatedAt,
		UpdatedAt:         rule.UpdatedAt,
	}
}
