// Package providers provides the service pro bounded context module.
package providers

import (
	catalogservice "leadmarket_backend/internal/catalog/service"
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/internal/providers/handler"
	"leadmarket_backend/internal/providers/repository"
	"leadmarket_backend/internal/providers/service"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the providers bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repo
}

// NewModule creates and initializes the providers module.
func NewModule(pool *pgxpool.Pool, catalog *catalogservice.Service, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, catalog, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "providers"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for the match lifecycle counters.
func (m *Module) Repository() *repository.Repo {
	return m.repo
}

// RegisterRoutes mounts provider routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	providers := ctx.Protected.Group("/providers")
	providers.POST("/register", m.handler.Register)
	providers.GET("/me", m.handler.GetProfile)
	providers.PUT("/me", m.handler.UpdateProfile)
	providers.PUT("/me/offerings", m.handler.ReplaceOfferings)
	providers.PUT("/me/areas", m.handler.ReplaceAreas)
	providers.PUT("/me/preferences", m.handler.UpsertPreferences)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
