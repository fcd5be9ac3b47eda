// Package handler exposes wallet views over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"leadmarket_backend/internal/wallet/service"
	"leadmarket_backend/platform/httpkit"
)

// Handler handles HTTP requests for wallets.
type Handler struct {
	svc *service.Service
}

// New creates a wallet handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// GetWallet returns the caller's wallet, creating it on first access.
// GET /api/v1/wallet
func (h *Handler) GetWallet(c *gin.Context) {
	workspaceID, ok := httpkit.MustGetWorkspaceID(c)
	if !ok {
		return
	}
	companyID, ok := httpkit.MustGetCompanyID(c)
	if !ok {
		return
	}

	wallet, err := h.svc.GetWallet(c.Request.Context(), workspaceID, companyID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, wallet)
}

// ListTransactions pages through the caller's ledger.
// GET /api/v1/wallet/transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	workspaceID, ok := httpkit.MustGetWorkspaceID(c)
	if !ok {
		return
	}
	companyID, ok := httpkit.MustGetCompanyID(c)
	if !ok {
		return
	}

	var txType *string
	if v := c.Query("type"); v != "" {
		txType = &v
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "25"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid limit", nil)
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid offset", nil)
		return
	}

	page, err := h.svc.ListTransactions(c.Request.Context(), workspaceID, companyID, txType, limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, page)
}
