// Package catalog provides the service catalog bounded context module.
package catalog

import (
	"leadmarket_backend/internal/catalog/handler"
	"leadmarket_backend/internal/catalog/repository"
	"leadmarket_backend/internal/catalog/service"
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the catalog bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the catalog module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "catalog"
}

// Service returns the service layer for other modules (lead intake).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts catalog routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Public.GET("/workspaces/:workspaceId/services", m.handler.ListPublic)

	services := ctx.Protected.Group("/catalog/services")
	services.GET("", m.handler.List)
	services.GET("/:id", m.handler.Get)
	services.POST("", m.handler.Create)
	services.PUT("/:id", m.handler.Update)
	services.DELETE("/:id", m.handler.Delete)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
