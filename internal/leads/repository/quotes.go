package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CreateQuoteParams holds one quote from a provider to a consumer.
type CreateQuoteParams struct {
	MatchID     uuid.UUID
	LeadID      uuid.UUID
	ProID       uuid.UUID
	AmountCents int64
	Message     string
}

// CreateQuote stores a quote sent for an accepted match.
func (r *Repo) CreateQuote(ctx context.Context, params CreateQuoteParams) (Quote, error) {
	query := `
        INSERT INTO lead_quotes (match_id, lead_id, pro_id, amount_cents, message)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, match_id, lead_id, pro_id, amount_cents, message, created_at`

	var q Quote
	err := r.pool.QueryRow(ctx, query,
		params.MatchID, params.LeadID, params.ProID, params.AmountCents, params.Message,
	).Scan(&q.ID, &q.MatchID, &q.LeadID, &q.ProID, &q.AmountCents, &q.Message, &q.CreatedAt)
	if err != nil {
		return Quote{}, fmt.Errorf("create quote: %w", err)
	}
	return q, nil
}

// ListQuotesForLead returns every quote sent on a lead, newest first.
func (r *Repo) ListQuotesForLead(ctx context.Context, leadID uuid.UUID) ([]Quote, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, match_id, lead_id, pro_id, amount_cents, message, created_at
        FROM lead_quotes
        WHERE lead_id = $1
        ORDER BY created_at DESC`, leadID)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]Quote, 0)
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.ID, &q.MatchID, &q.LeadID, &q.ProID, &q.AmountCents, &q.Message, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
