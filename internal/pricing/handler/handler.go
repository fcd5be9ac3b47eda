// Package handler exposes pricing rule administration over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leadmarket_backend/internal/pricing/service"
	"leadmarket_backend/internal/pricing/transport"
	"leadmarket_backend/platform/httpkit"
	"leadmarket_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid rule id"
)

// Handler handles HTTP requests for pricing rules.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a pricing handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ListRules returns every pricing rule of the workspace.
// GET /api/v1/pricing/rules
func (h *Handler) ListRules(c *gin.Context) {
	workspaceID, ok := httpkit.MustGetWorkspaceID(c)
	if !ok {
		return
	}

	rules, err := h.svc.ListRules(c.Request.Context(), workspaceID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"rules": rules})
}

// GetRule returns a single pricing rule.
// GET /api/v1/pricing/rules/:id
func (h *Handler) GetRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	workspaceID, ok := httpkit.MustGetWorkspaceID(c)
	if !ok {
		return
	}

	rule, err := h.svc.GetRule(c.Request.Context(), workspaceID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, rule)
}

// CreateRule creates a pricing rule.
// POST /api/v1/pricing/rules
func (h *Handler) CreateRule(c *gin.Context) {
	var req transport.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	workspaceID, ok := httpkit.MustGetWorkspaceID(c)
	if !ok {
		return
	}

	rule, err := h.svc.CreateRule(c.Request.Context(), workspaceID, toInput(req))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, rule)
}

// UpdateRule replaces a pricing rule's fields.
// PUT /api/v1/pricing/rules/:id
func (h *Handler) UpdateRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	workspaceID, ok := httpkit.MustGetWorkspaceID(c)
	if !ok {
		return
	}

	rule, err := h.svc.UpdateRule(c.Request.Context(), workspaceID, id, toInput(req))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, rule)
}

// DeleteRule removes a pricing rule.
// DELETE /api/v1/pricing/rules/:id
func (h *Handler) DeleteRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	workspaceID, ok := httpkit.MustGetWorkspaceID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteRule(c.Request.Context(), workspaceID, id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func toInput(req transport.RuleRequest) service.RuleInput {
	return service.RuleInput{
		Name:                req.Name,
		ServiceID:           req.ServiceID,
		PostalCode:          req.PostalCode,
		Timing:              req.Timing,
		BasePriceCents:      req.BasePriceCents,
		SurgeMultiplier:     req.SurgeMultiplier,
		ExclusiveMultiplier: req.ExclusiveMultiplier,
		Priority:            req.Priority,
		IsActive:            req.IsActive,
	}
}
