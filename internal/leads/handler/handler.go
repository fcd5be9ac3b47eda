// Package handler exposes the lead marketplace over HTTP: public intake,
// workspace administration, and the provider match surface.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leadmarket_backend/internal/leads/admin"
	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/leads/intake"
	"leadmarket_backend/internal/leads/matching"
	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/internal/leads/transport"
	"leadmarket_backend/platform/httpkit"
	"leadmarket_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid lead id"
	msgInvalidMatchID   = "invalid match id"
)

// Handler handles HTTP requests for leads and matches.
type Handler struct {
	intake   *intake.Service
	admin    *admin.Service
	matching *matching.Service
	val      *validator.Validator
}

// New creates a leads handler.
func New(intakeSvc *intake.Service, adminSvc *admin.Service, matchingSvc *matching.Service, val *validator.Validator) *Handler {
	return &Handler{intake: intakeSvc, admin: adminSvc, matching: matchingSvc, val: val}
}

func (h *Handler) scope(c *gin.Context) (workspaceID, companyID uuid.UUID, ok bool) {
	workspaceID, ok = httpkit.MustGetWorkspaceID(c)
	if !ok {
		return
	}
	companyID, ok = httpkit.MustGetCompanyID(c)
	return
}

// Submit takes in a consumer lead. Unauthenticated; the workspace comes from
// the URL, abuse control from the intake rate limiter on the route.
// POST /api/v1/public/workspaces/:workspaceId/leads
func (h *Handler) Submit(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("workspaceId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid workspace id", nil)
		return
	}
	var req transport.SubmitLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.intake.Submit(c.Request.Context(), intake.Submission{
		WorkspaceID:    workspaceID,
		ConsumerName:   req.ConsumerName,
		Phone:          req.Phone,
		Email:          req.Email,
		PostalCode:     req.PostalCode,
		City:           req.City,
		Region:         req.Region,
		Lat:            req.Lat,
		Lng:            req.Lng,
		Title:          req.Title,
		Description:    req.Description,
		Answers:        req.Answers,
		Timing:         domain.Timing(req.Timing),
		ServiceIDs:     req.ServiceIDs,
		BudgetMinCents: req.BudgetMinCents,
		BudgetMaxCents: req.BudgetMaxCents,
		IsExclusive:    req.IsExclusive,
		MaxSoldCount:   req.MaxSoldCount,
		Source:         req.Source,
		IP:             c.ClientIP(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, gin.H{
		"id":     lead.ID,
		"status": lead.Status,
	})
}

// ListLeads returns the workspace's leads newest first.
// GET /api/v1/leads
func (h *Handler) ListLeads(c *gin.Context) {
	workspaceID, ok := httpkit.MustGetWorkspaceID(c)
	if !ok {
		return
	}

	params := repository.ListParams{
		WorkspaceID: workspaceID,
		Limit:       queryInt(c, "limit", 25),
		Offset:      queryInt(c, "offset", 0),
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.LeadStatus(raw)
		params.Status = &status
	}

	leads, total, err := h.admin.ListLeads(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"leads": leads, "total": total})
}

// GetLead returns one lead with matches, activity, and quotes.
// GET /api/v1/leads/:id
func (h *Handler) GetLead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	workspaceID, ok := httpkit.MustGetWorkspaceID(c)
	if !ok {
		return
	}

	detail, err := h.admin.GetLead(c.Request.Context(), workspaceID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, detail)
}

// WorkspaceStats returns pipeline and revenue aggregates.
// GET /api/v1/leads/stats
func (h *Handler) WorkspaceStats(c *gin.Context) {
	workspaceID, ok := httpkit.MustGetWorkspaceID(c)
	if !ok {
		return
	}

	stats, err := h.admin.WorkspaceStats(c.Request.Context(), workspaceID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}

// RefundLead returns the charge of an accepted match on this lead to the
// provider's wallet, in full or for the requested partial amount.
// POST /api/v1/leads/:id/refund
func (h *Handler) RefundLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	var req transport.RefundRequest
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

	match, err := h.matching.Refund(c.Request.Context(), workspaceID, leadID, req.LeadMatchID, req.AmountCents, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, match)
}

// RouteNow runs routing for a lead immediately instead of waiting for the
// queue worker.
// POST /api/v1/leads/:id/route
func (h *Handler) RouteNow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	workspaceID, ok := httpkit.MustGetWorkspaceID(c)
	if !ok {
		return
	}

	if err := h.admin.RouteNow(c.Request.Context(), workspaceID, id); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"leadId": id})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
