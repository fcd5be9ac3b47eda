// Package leads provides the lead marketplace bounded context module:
// intake, routing, and the provider match lifecycle.
package leads

import (
	"github.com/jackc/pgx/v5/pgxpool"

	catalogservice "leadmarket_backend/internal/catalog/service"
	"leadmarket_backend/internal/events"
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/internal/leads/admin"
	"leadmarket_backend/internal/leads/handler"
	"leadmarket_backend/internal/leads/intake"
	"leadmarket_backend/internal/leads/matching"
	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/internal/leads/routing"
	"leadmarket_backend/internal/notification"
	pricingservice "leadmarket_backend/internal/pricing/service"
	providersrepo "leadmarket_backend/internal/providers/repository"
	walletrepo "leadmarket_backend/internal/wallet/repository"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	repo     *repository.Repo
	engine   *routing.Engine
	intake   *intake.Service
	matching *matching.Service
}

// Deps are the cross-module dependencies the leads module needs.
type Deps struct {
	Pool       *pgxpool.Pool
	Catalog    *catalogservice.Service
	Pricing    *pricingservice.Service
	Wallet     *walletrepo.Repo
	Providers  *providersrepo.Repo
	Enqueuer   intake.Enqueuer
	Bus        events.Bus
	Dispatcher notification.Dispatcher
	Validator  *validator.Validator
	Logger     *logger.Logger
}

// NewModule creates and initializes the leads module.
func NewModule(deps Deps) *Module {
	repo := repository.New(deps.Pool)
	engine := routing.NewEngine(repo, deps.Bus, deps.Dispatcher, deps.Logger)
	intakeSvc := intake.New(repo, deps.Catalog, deps.Pricing, deps.Enqueuer, deps.Bus, deps.Logger)
	matchingSvc := matching.New(repo, deps.Wallet, deps.Providers, deps.Bus, deps.Dispatcher, deps.Logger)
	adminSvc := admin.New(repo, engine)
	h := handler.New(intakeSvc, adminSvc, matchingSvc, deps.Validator)

	return &Module{
		handler:  h,
		repo:     repo,
		engine:   engine,
		intake:   intakeSvc,
		matching: matchingSvc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Repository returns the repository for the background worker.
func (m *Module) Repository() *repository.Repo {
	return m.repo
}

// Engine returns the routing engine for the background worker.
func (m *Module) Engine() *routing.Engine {
	return m.engine
}

// RegisterRoutes mounts lead and match routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Public.POST("/workspaces/:workspaceId/leads",
		ctx.IntakeRateLimiter.RateLimit(), m.handler.Submit)

	leads := ctx.Protected.Group("/leads")
	leads.GET("", m.handler.ListLeads)
	leads.GET("/stats", m.handler.WorkspaceStats)
	leads.GET("/:id", m.handler.GetLead)
	leads.POST("/:id/route", m.handler.RouteNow)
	leads.POST("/:id/refund", m.handler.RefundLead)

	matches := ctx.Protected.Group("/matches")
	matches.GET("", m.handler.ListMatches)
	matches.GET("/stats", m.handler.ProviderStats)
	matches.GET("/export", m.handler.ExportMatches)
	matches.GET("/:id", m.handler.GetMatch)
	matches.POST("/:id/accept", m.handler.AcceptMatch)
	matches.POST("/:id/decline", m.handler.DeclineMatch)
	matches.POST("/:id/outcome", m.handler.RecordOutcome)
	matches.POST("/:id/quote", m.handler.SendQuote)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
