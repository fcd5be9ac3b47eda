// Package pricing provides the pricing bounded context module.
package pricing

import (
	"leadmarket_backend/internal/pricing/handler"
	"leadmarket_backend/internal/pricing/repository"
	"leadmarket_backend/internal/pricing/service"
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the pricing bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the pricing module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pricing"
}

// Service returns the service layer for other modules (lead intake).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts pricing rule administration routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	rules := ctx.Protected.Group("/pricing/rules")
	rules.GET("", m.handler.ListRules)
	rules.GET("/:id", m.handler.GetRule)
	rules.POST("", m.handler.CreateRule)
	rules.PUT("/:id", m.handler.UpdateRule)
	rules.DELETE("/:id", m.handler.DeleteRule)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
