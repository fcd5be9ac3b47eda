// Package service exposes wallet reads to the HTTP layer. Balance mutations
// live in the repository's ledger primitives and are driven by the match
// lifecycle, not by this service.
package service

import (
	"context"

	"github.com/google/uuid"

	"leadmarket_backend/internal/wallet/repository"
	"leadmarket_backend/platform/apperr"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	GetOrCreate(ctx context.Context, workspaceID, companyID uuid.UUID) (repository.Wallet, error)
	ListTransactions(ctx context.Context, params repository.ListTransactionsParams) ([]repository.Transaction, int, error)
}

// Service provides wallet views for provider companies.
type Service struct {
	repo Repository
}

// New creates a wallet service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetWallet returns the company's wallet, creating it on first access.
func (s *Service) GetWallet(ctx context.Context, workspaceID, companyID uuid.UUID) (repository.Wallet, error) {
	wallet, err := s.repo.GetOrCreate(ctx, workspaceID, companyID)
	if err != nil {
		return repository.Wallet{}, apperr.Persistence("get wallet", err)
	}
	return wallet, nil
}

// TransactionPage is a paged slice of ledger entries.
type TransactionPage struct {
	Transactions []repository.Transaction `json:"transactions"`
	Total        int                      `json:"total"`
	Limit        int                      `json:"limit"`
	Offset       int                      `json:"offset"`
}

func validTxType(t string) bool {
	switch t {
	case repository.TxTypeDeposit, repository.TxTypeCharge, repository.TxTypeRefund, repository.TxTypeAdjustment:
		return true
	}
	return false
}

// ListTransactions pages through the company's ledger, newest first.
func (s *Service) ListTransactions(ctx context.Context, workspaceID, companyID uuid.UUID, txType *string, limit, offset int) (TransactionPage, error) {
	if txType != nil && !validTxType(*txType) {
		return TransactionPage{}, apperr.Validation("unknown transaction type")
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}

	wallet, err := s.repo.GetOrCreate(ctx, workspaceID, companyID)
	if err != nil {
		return TransactionPage{}, apperr.Persistence("get wallet", err)
	}

	entries, total, err := s.repo.ListTransactions(ctx, repository.ListTransactionsParams{
		WalletID: wallet.ID,
		Type:     txType,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return TransactionPage{}, apperr.Persistence("list transactions", err)
	}

	return TransactionPage{Transactions: entries, Total: total, Limit: limit, Offset: offset}, nil
}
