// Package wallet provides the credits wallet bounded context module.
package wallet

import (
	apphttp "leadmarket_backend/internal/http"
	"leadmarket_backend/internal/wallet/handler"
	"leadmarket_backend/internal/wallet/repository"
	"leadmarket_backend/internal/wallet/service"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the wallet bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repo
}

// NewModule creates and initializes the wallet module.
func NewModule(pool *pgxpool.Pool) *Module {
	repo := repository.New(pool)
	svc := service.New(repo)
	h := handler.New(svc)

	return &Module{handler: h, service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "wallet"
}

// Repository returns the ledger primitives for the match lifecycle.
func (m *Module) Repository() *repository.Repo {
	return m.repo
}

// RegisterRoutes mounts wallet routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/wallet", m.handler.GetWallet)
	ctx.Protected.GET("/wallet/transactions", m.handler.ListTransactions)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
