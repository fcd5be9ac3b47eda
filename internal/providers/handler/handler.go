// Package handler exposes provider management over HTTP.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leadmarket_backend/internal/providers/service"
	"leadmarket_backend/internal/providers/transport"
	"leadmarket_backend/platform/httpkit"
	"leadmarket_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for providers.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a providers handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) scope(c *gin.Context) (workspaceID, companyID uuid.UUID, ok bool) {
	workspaceID, ok = httpkit.MustGetWorkspaceID(c)
	if !ok {
		return
	}
	companyID, ok = httpkit.MustGetCompanyID(c)
	return
}

// Register registers the caller's company as a service pro.
// POST /api/v1/providers/register
func (h *Handler) Register(c *gin.Context) {
	var req transport.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	workspaceID, companyID, ok := h.scope(c)
	if !ok {
		return
	}

	pro, err := h.svc.Register(c.Request.Context(), workspaceID, companyID, service.RegisterInput{
		CompanyName:  req.CompanyName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, pro)
}

// GetProfile returns the caller's full provider profile.
// GET /api/v1/providers/me
func (h *Handler) GetProfile(c *gin.Context) {
	workspaceID, companyID, ok := h.scope(c)
	if !ok {
		return
	}

	profile, err := h.svc.GetProfile(c.Request.Context(), workspaceID, companyID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, profile)
}

// UpdateProfile replaces the pro's profile fields.
// PUT /api/v1/providers/me
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req transport.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	workspaceID, companyID, ok := h.scope(c)
	if !ok {
		return
	}

	pro, err := h.svc.UpdateProfile(c.Request.Context(), workspaceID, companyID, service.UpdateInput{
		CompanyName:  req.CompanyName,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		IsActive:     req.IsActive,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, pro)
}

// ReplaceOfferings swaps the pro's offered services.
// PUT /api/v1/providers/me/offerings
func (h *Handler) ReplaceOfferings(c *gin.Context) {
	var req transport.ReplaceOfferingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	workspaceID, companyID, ok := h.scope(c)
	if !ok {
		return
	}

	if err := h.svc.ReplaceOfferings(c.Request.Context(), workspaceID, companyID, req.ServiceIDs); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"serviceIds": req.ServiceIDs})
}

// ReplaceAreas swaps the pro's service areas.
// PUT /api/v1/providers/me/areas
func (h *Handler) ReplaceAreas(c *gin.Context) {
	var req transport.ReplaceAreasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	workspaceID, companyID, ok := h.scope(c)
	if !ok {
		return
	}

	areas := make([]service.AreaInput, 0, len(req.Areas))
	for _, a := range req.Areas {
		areas = append(areas, service.AreaInput{Name: a.Name, Lat: a.Lat, Lng: a.Lng, RadiusKm: a.RadiusKm})
	}
	if err := h.svc.ReplaceAreas(c.Request.Context(), workspaceID, companyID, areas); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// UpsertPreferences writes the pro's lead filters.
// PUT /api/v1/providers/me/preferences
func (h *Handler) UpsertPreferences(c *gin.Context) {
	var req transport.PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	workspaceID, companyID, ok := h.scope(c)
	if !ok {
		return
	}

	prefs, err := h.svc.UpsertPreferences(c.Request.Context(), workspaceID, companyID, service.PreferencesInput{
		MinBudgetCents:     req.MinBudgetCents,
		PauseAtZeroBalance: req.PauseAtZeroBalance,
		MaxLeadsPerDay:     req.MaxLeadsPerDay,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, prefs)
}
