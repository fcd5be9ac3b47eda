package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/internal/leads/transport"
	"leadmarket_backend/platform/httpkit"
)

func (h *Handler) matchListParams(c *gin.Context, workspaceID, companyID uuid.UUID) (repository.ListMatchesParams, bool) {
	params := repository.ListMatchesParams{
		WorkspaceID: workspaceID,
		CompanyID:   companyID,
		Limit:       queryInt(c, "limit", 25),
		Offset:      queryInt(c, "offset", 0),
	}

	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := domain.MatchStatus(strings.TrimSpace(part))
			if !domain.ValidMatchStatus(status) {
				httpkit.Error(c, http.StatusBadRequest, "unknown match status", string(status))
				return params, false
			}
			params.Statuses = append(params.Statuses, status)
		}
	}
	if raw := c.Query("serviceId"); raw != "" {
		serviceID, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid service id", nil)
			return params, false
		}
		params.ServiceID = &serviceID
	}
	if raw := c.Query("minQuality"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			params.MinQuality = &value
		}
	}
	if raw := c.Query("maxPriceCents"); raw != "" {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil {
			params.MaxPriceCents = &value
		}
	}
	if raw := c.Query("maxDistanceKm"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil {
			params.MaxDistanceKm = &value
		}
	}
	return params, true
}

// ListMatches returns the caller's matches, contact details masked until paid.
// GET /api/v1/matches
func (h *Handler) ListMatches(c *gin.Context) {
	workspaceID, companyID, ok := h.scope(c)
	if !ok {
		return
	}
	params, ok := h.matchListParams(c, workspaceID, companyID)
	if !ok {
		return
	}

	matches, total, err := h.matching.ListMatches(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"matches": matches, "total": total})
}

// GetMatch returns one match, marking a fresh offer as viewed.
// GET /api/v1/matches/:id
func (h *Handler) GetMatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidMatchID, nil)
		return
	}
	workspaceID, companyID, ok := h.scope(c)
	if !ok {
		return
	}

	match, err := h.matching.GetMatch(c.Request.Context(), workspaceID, companyID, id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, match)
}

// AcceptMatch buys the lead: wallet charge, slot claim, contact reveal.
// POST /api/v1/matches/:id/accept
func (h *Handler) AcceptMatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidMatchID, nil)
		return
	}
	workspaceID, companyID, ok := h.scope(c)
	if !ok {
		return
	}

	ip := c.ClientIP()
	result, err := h.matching.Accept(c.Request.Context(), workspaceID, companyID, id, &ip)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeclineMatch turns down an offer.
// POST /api/v1/matches/:id/decline
func (h *Handler) DeclineMatch(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidMatchID, nil)
		return
	}
	var req transport.DeclineRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	workspaceID, companyID, ok := h.scope(c)
	if !ok {
		return
	}

	if err := h.matching.Decline(c.Request.Context(), workspaceID, companyID, id, req.Reason); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

// RecordOutcome marks an accepted match won or lost.
// POST /api/v1/matches/:id/outcome
func (h *Handler) RecordOutcome(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidMatchID, nil)
		return
	}
	var req transport.OutcomeRequest
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

	match, err := h.matching.RecordOutcome(c.Request.Context(), workspaceID, companyID, id, domain.MatchStatus(req.Outcome), req.ValueCents)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, match)
}

// SendQuote records a quote and emails the consumer.
// POST /api/v1/matches/:id/quote
func (h *Handler) SendQuote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidMatchID, nil)
		return
	}
	var req transport.QuoteRequest
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

	quote, err := h.matching.SendQuote(c.Request.Context(), workspaceID, companyID, id, req.AmountCents, req.Message)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, quote)
}

// ProviderStats returns the caller's acceptance and win rates.
// GET /api/v1/matches/stats
func (h *Handler) ProviderStats(c *gin.Context) {
	workspaceID, companyID, ok := h.scope(c)
	if !ok {
		return
	}

	stats, err := h.matching.ProviderStats(c.Request.Context(), workspaceID, companyID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}

var exportHeader = []string{
	"match_id", "match_status", "lead_price", "distance_km",
	"offered_at", "viewed_at", "accepted_at", "expires_at",
	"lead_id", "lead_source", "quality_score", "service_names",
	"title", "city", "region", "postal_code", "timing",
	"budget_min", "budget_max",
}

// ExportMatches streams the caller's matches as CSV, same filters as the
// listing.
// GET /api/v1/matches/export
func (h *Handler) ExportMatches(c *gin.Context) {
	workspaceID, companyID, ok := h.scope(c)
	if !ok {
		return
	}
	params, ok := h.matchListParams(c, workspaceID, companyID)
	if !ok {
		return
	}

	rows, err := h.matching.ExportRows(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="matches-export.csv"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportHeader)
	for _, row := range rows {
		record := []string{
			row.MatchID.String(),
			row.MatchStatus,
			formatCents(row.PriceCents),
			formatOptFloat(row.DistanceKm),
			row.OfferedAt,
			deref(row.ViewedAt),
			deref(row.AcceptedAt),
			deref(row.ExpiresAt),
			row.LeadID.String(),
			deref(row.LeadSource),
			strconv.Itoa(row.QualityScore),
			deref(row.ServiceNames),
			row.Title,
			deref(row.City),
			deref(row.Region),
			deref(row.PostalCode),
			row.Timing,
			formatOptCents(row.BudgetMinCents),
			formatOptCents(row.BudgetMaxCents),
		}
		if err := w.Write(record); err != nil {
			return
		}
	}
	w.Flush()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%.2f", float64(cents)/100)
}

func formatOptCents(cents *int64) string {
	if cents == nil {
		return ""
	}
	return formatCents(*cents)
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *v)
}
