// Package repository persists credit wallets and their append-only
// transaction ledger. Balance mutations only happen through ApplyCharge and
// ApplyRefund, inside a transaction the caller owns and has locked.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadmarket_backend/platform/apperr"
)

// Transaction types recorded in the ledger.
const (
	TxTypeDeposit    = "deposit"
	TxTypeCharge     = "charge"
	TxTypeRefund     = "refund"
	TxTypeAdjustment = "adjustment"
)

// Wallet is a provider company's credit balance within a workspace. The
// lifetime totals accumulate across every charge and refund; the balance is a
// cached projection of the ledger.
type Wallet struct {
	ID                    uuid.UUID  `json:"id"`
	WorkspaceID           uuid.UUID  `json:"workspaceId"`
	CompanyID             uuid.UUID  `json:"companyId"`
	BalanceCents          int64      `json:"balanceCents"`
	LifetimeSpentCents    int64      `json:"lifetimeSpentCents"`
	LifetimeRefundedCents int64      `json:"lifetimeRefundedCents"`
	LastChargeAt          *time.Time `json:"lastChargeAt,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// Transaction is one immutable ledger entry. Amount is negative for charges,
// positive for deposits and refunds.
type Transaction struct {
	ID                 uuid.UUID  `json:"id"`
	WalletID           uuid.UUID  `json:"walletId"`
	Type               string     `json:"type"`
	AmountCents        int64      `json:"amountCents"`
	BalanceBeforeCents int64      `json:"balanceBeforeCents"`
	BalanceAfterCents  int64      `json:"balanceAfterCents"`
	MatchID            *uuid.UUID `json:"matchId,omitempty"`
	Description        string     `json:"description"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// Repo provides wallet persistence backed by Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a wallet repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const walletColumns = `id, workspace_id, company_id, balance_cents, lifetime_spent_cents,
        lifetime_refunded_cents, last_charge_at, created_at, updated_at`

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	err := row.Scan(&w.ID, &w.WorkspaceID, &w.CompanyID, &w.BalanceCents,
		&w.LifetimeSpentCents, &w.LifetimeRefundedCents, &w.LastChargeAt, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

// GetOrCreate returns the company's wallet, creating an empty one on first use.
func (r *Repo) GetOrCreate(ctx context.Context, workspaceID, companyID uuid.UUID) (Wallet, error) {
	query := `
        INSERT INTO credits_wallets (workspace_id, company_id)
        VALUES ($1, $2)
        ON CONFLICT (workspace_id, company_id)
        DO UPDATE SET updated_at = credits_wallets.updated_at
        RETURNING ` + walletColumns

	wallet, err := scanWallet(r.pool.QueryRow(ctx, query, workspaceID, companyID))
	if err != nil {
		return Wallet{}, fmt.Errorf("get or create wallet: %w", err)
	}
	return wallet, nil
}

// GetForUpdate loads the wallet row with a FOR UPDATE lock inside the
// caller's transaction. Callers must follow the global lock order
// (match, then lead, then wallet).
func (r *Repo) GetForUpdate(ctx context.Context, tx pgx.Tx, workspaceID, companyID uuid.UUID) (Wallet, error) {
	query := `
        SELECT ` + walletColumns + `
        FROM credits_wallets
        WHERE workspace_id = $1 AND company_id = $2
        FOR UPDATE`

	wallet, err := scanWallet(tx.QueryRow(ctx, query, workspaceID, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, apperr.NotFound("wallet not found")
		}
		return Wallet{}, fmt.Errorf("lock wallet: %w", err)
	}
	return wallet, nil
}

// LedgerParams describes one balance mutation.
type LedgerParams struct {
	WalletID    uuid.UUID
	AmountCents int64 // always positive; the entry type decides the sign
	MatchID     *uuid.UUID
	Description string
}

// ApplyCharge debits the wallet and appends a charge entry, all inside the
// caller's transaction. The caller must already hold the row lock and have
// verified the balance covers the amount.
func (r *Repo) ApplyCharge(ctx context.Context, tx pgx.Tx, params LedgerParams) (Transaction, error) {
	return r.applyEntry(ctx, tx, TxTypeCharge, -params.AmountCents, params)
}

// ApplyRefund credits the wallet and appends a refund entry, inside the
// caller's transaction.
func (r *Repo) ApplyRefund(ctx context.Context, tx pgx.Tx, params LedgerParams) (Transaction, error) {
	return r.applyEntry(ctx, tx, TxTypeRefund, params.AmountCents, params)
}

func (r *Repo) applyEntry(ctx context.Context, tx pgx.Tx, txType string, deltaCents int64, params LedgerParams) (Transaction, error) {
	if params.AmountCents <= 0 {
		return Transaction{}, apperr.Validation("ledger amount must be positive")
	}

	var before, after int64
	err := tx.QueryRow(ctx, `
        UPDATE credits_wallets
        SET balance_cents = balance_cents + $2,
            lifetime_spent_cents = lifetime_spent_cents + CASE WHEN $3 = 'charge' THEN $4 ELSE 0 END,
            lifetime_refunded_cents = lifetime_refunded_cents + CASE WHEN $3 = 'refund' THEN $4 ELSE 0 END,
            last_charge_at = CASE WHEN $3 = 'charge' THEN NOW() ELSE last_charge_at END,
            updated_at = NOW()
        WHERE id = $1
        RETURNING balance_cents - $2, balance_cents`,
		params.WalletID, deltaCents, txType, params.AmountCents,
	).Scan(&before, &after)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, apperr.NotFound("wallet not found")
		}
		return Transaction{}, fmt.Errorf("apply wallet %s: %w", txType, err)
	}

	query := `
        INSERT INTO credit_transactions (
            wallet_id, type, amount_cents, balance_before_cents, balance_after_cents, match_id, description
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, wallet_id, type, amount_cents, balance_before_cents, balance_after_cents, match_id, description, created_at`

	var entry Transaction
	if err := tx.QueryRow(ctx, query,
		params.WalletID,
		txType,
		deltaCents,
		before,
		after,
		params.MatchID,
		params.Description,
	).Scan(
		&entry.ID,
		&entry.WalletID,
		&entry.Type,
		&entry.AmountCents,
		&entry.BalanceBeforeCents,
		&entry.BalanceAfterCents,
		&entry.MatchID,
		&entry.Description,
		&entry.CreatedAt,
	); err != nil {
		return Transaction{}, fmt.Errorf("record %s transaction: %w", txType, err)
	}
	return entry, nil
}

// ListTransactionsParams filters and pages the ledger listing.
type ListTransactionsParams struct {
	WalletID uuid.UUID
	Type     *string
	Limit    int
	Offset   int
}

// ListTransactions returns ledger entries newest first.
func (r *Repo) ListTransactions(ctx context.Context, params ListTransactionsParams) ([]Transaction, int, error) {
	whereClause := "wallet_id = $1"
	args := []interface{}{params.WalletID}

	if params.Type != nil {
		whereClause += " AND type = $2"
		args = append(args, *params.Type)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM credit_transactions WHERE %s`, whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count credit transactions: %w", err)
	}

	query := fmt.Sprintf(`
        SELECT id, wallet_id, type, amount_cents, balance_before_cents, balance_after_cents, match_id, description, created_at
        FROM credit_transactions
        WHERE %s
        ORDER BY created_at DESC, id DESC
        LIMIT $%d OFFSET $%d`, whereClause, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list credit transactions: %w", err)
	}
	defer rows.Close()

	entries := make([]Transaction, 0)
	for rows.Next() {
		var entry Transaction
		if err := rows.Scan(
			&entry.ID,
			&entry.WalletID,
			&entry.Type,
			&entry.AmountCents,
			&entry.BalanceBeforeCents,
			&entry.BalanceAfterCents,
			&entry.MatchID,
			&entry.Description,
			&entry.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan credit transaction: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}
