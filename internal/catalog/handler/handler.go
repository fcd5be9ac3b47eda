// Package handler exposes the service catalog over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leadmarket_backend/internal/catalog/service"
	"leadmarket_backend/internal/catalog/transport"
	"leadmarket_backend/platform/httpkit"
	"leadmarket_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid service id"
)

// Handler handles HTTP requests for the catalog.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a catalog handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ListPublic returns active services of a workspace for lead intake forms.
// GET /api/v1/public/workspaces/:workspaceId/services
func (h *Handler) ListPublic(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("workspaceId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid workspace id", nil)
		return
	}

	services, err := h.svc.List(c.Request.Context(), workspaceID, true)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"services": services})
}

// List returns the workspace's services, inactive included.
// GET /api/v1/catalog/services
func (h *Handler) List(c *gin.Context) {
	workspaceID, ok := httpkit.MustGetWorkspaceID(c)
	if !ok {
		return
	}

	activeOnly := c.Query("active") == "true"
	services, err := h.svc.List(c.Request.Context(), workspaceID, activeOnly)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"services": services})
}

// Get returns one service.
// GET /api/v1/catalog/services/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	workspaceID, ok := httpkit.MustGetWorkspaceID(c)
	if !ok {
		return
	}

	svc, err := h.svc.Get(c.Request.Context(), workspaceID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, svc)
}

// Create adds a service to the catalog.
// POST /api/v1/catalog/services
func (h *Handler) Create(c *gin.Context) {
	var req transport.ServiceRequest
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

	svc, err := h.svc.Create(c.Request.Context(), workspaceID, service.Input{
		ParentID:    req.ParentID,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, svc)
}

// Update replaces a service's fields.
// PUT /api/v1/catalog/services/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.ServiceRequest
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

	svc, err := h.svc.Update(c.Request.Context(), workspaceID, id, service.Input{
		ParentID:    req.ParentID,
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, svc)
}

// Delete removes a service unless it still has children.
// DELETE /api/v1/catalog/services/:id
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	workspaceID, ok := httpkit.MustGetWorkspaceID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), workspaceID, id); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}
