package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/platform/apperr"
)

const matchNotFoundMessage = "match not found"

const matchColumns = `id, workspace_id, lead_id, pro_id, company_id, status, price_cents, distance_km,
        rank_score, expires_at, viewed_at, accepted_at, declined_at, won_at, lost_at,
        response_time_minutes, decline_reason, outcome_value_cents, credit_transaction_id,
        refund_transaction_id, created_at, updated_at`

func scanMatch(row pgx.Row) (Match, error) {
	var m Match
	err := row.Scan(
		&m.ID,
		&m.WorkspaceID,
		&m.LeadID,
		&m.ProID,
		&m.CompanyID,
		&m.Status,
		&m.PriceCents,
		&m.DistanceKm,
		&m.RankScore,
		&m.ExpiresAt,
		&m.ViewedAt,
		&m.AcceptedAt,
		&m.DeclinedAt,
		&m.WonAt,
		&m.LostAt,
		&m.ResponseTimeMinutes,
		&m.DeclineReason,
		&m.OutcomeValueCents,
		&m.CreditTransactionID,
		&m.RefundTransactionID,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

// ListCandidates returns the active pros offering any of the requested
// services in the workspace, with preferences and wallet balance joined, and
// pros already matched to the lead excluded. Areas are loaded in a second
// query and attached.
func (r *Repo) ListCandidates(ctx context.Context, workspaceID, leadID uuid.UUID, serviceIDs []uuid.UUID) ([]Candidate, error) {
	query := `
        SELECT DISTINCT sp.id, sp.company_id, sp.company_name, sp.contact_email,
               COALESCE(pp.min_budget_cents, 0),
               COALESCE(pp.pause_at_zero_balance, FALSE),
               COALESCE(cw.balance_cents, 0)
        FROM service_pros sp
        JOIN service_pro_offerings spo ON spo.pro_id = sp.id AND spo.service_id = ANY($3)
        LEFT JOIN pro_preferences pp ON pp.pro_id = sp.id
        LEFT JOIN credits_wallets cw ON cw.workspace_id = sp.workspace_id AND cw.company_id = sp.company_id
        WHERE sp.workspace_id = $1
          AND sp.is_active = TRUE
          AND NOT EXISTS (
              SELECT 1 FROM lead_matches lm WHERE lm.lead_id = $2 AND lm.pro_id = sp.id
          )`

	rows, err := r.pool.Query(ctx, query, workspaceID, leadID, serviceIDs)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]Candidate, 0)
	proIDs := make([]uuid.UUID, 0)
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(
			&c.ProID, &c.CompanyID, &c.CompanyName, &c.ContactEmail,
			&c.MinBudgetCents, &c.PauseAtZeroBalance, &c.BalanceCents,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
		proIDs = append(proIDs, c.ProID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return candidates, nil
	}

	areaRows, err := r.pool.Query(ctx,
		`SELECT pro_id, lat, lng, radius_km FROM service_areas WHERE pro_id = ANY($1)`, proIDs)
	if err != nil {
		return nil, fmt.Errorf("list candidate areas: %w", err)
	}
	defer areaRows.Close()

	areasByPro := make(map[uuid.UUID][]CandidateArea)
	for areaRows.Next() {
		var proID uuid.UUID
		var area CandidateArea
		if err := areaRows.Scan(&proID, &area.Lat, &area.Lng, &area.RadiusKm); err != nil {
			return nil, fmt.Errorf("scan candidate area: %w", err)
		}
		areasByPro[proID] = append(areasByPro[proID], area)
	}
	if err := areaRows.Err(); err != nil {
		return nil, err
	}

	for i := range candidates {
		candidates[i].Areas = areasByPro[candidates[i].ProID]
	}
	return candidates, nil
}

// OfferParams is one match to create during routing.
type OfferParams struct {
	ProID      uuid.UUID
	CompanyID  uuid.UUID
	DistanceKm *float64
	RankScore  float64
}

// CreateOffers inserts the offered matches, finalizes the lead, and logs one
// activity entry per offer, all in a single transaction. Returns the created
// matches.
func (r *Repo) CreateOffers(ctx context.Context, lead LeadRequest, offers []OfferParams, leadStatus domain.LeadStatus, expiresAt time.Time) ([]Match, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create offers: %w", err)
	}
	defer tx.Rollback(ctx)

	matches := make([]Match, 0, len(offers))
	for _, offer := range offers {
		query := `
            INSERT INTO lead_matches (
                workspace_id, lead_id, pro_id, company_id, status, price_cents,
                distance_km, rank_score, expires_at
            ) VALUES ($1, $2, $3, $4, 'offered', $5, $6, $7, $8)
            RETURNING ` + matchColumns

		match, err := scanMatch(tx.QueryRow(ctx, query,
			lead.WorkspaceID,
			lead.ID,
			offer.ProID,
			offer.CompanyID,
			lead.PriceCents,
			offer.DistanceKm,
			offer.RankScore,
			expiresAt,
		))
		if err != nil {
			return nil, fmt.Errorf("insert match: %w", err)
		}
		matches = append(matches, match)

		if err := insertActivity(ctx, tx, Activity{
			WorkspaceID: lead.WorkspaceID,
			LeadID:      lead.ID,
			MatchID:     &match.ID,
			CompanyID:   &match.CompanyID,
			Type:        "lead_offered",
			Description: "lead offered to provider",
			Meta:        map[string]any{"priceCents": match.PriceCents, "rankScore": match.RankScore},
		}); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `
        UPDATE lead_requests
        SET status = $2, routed_at = NOW(), expires_at = $3, updated_at = NOW()
        WHERE id = $1`, lead.ID, leadStatus, expiresAt); err != nil {
		return nil, fmt.Errorf("finalize routed lead: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create offers: %w", err)
	}
	return matches, nil
}

// MatchWithLead pairs a match with the lead it offers.
type MatchWithLead struct {
	Match Match       `json:"match"`
	Lead  LeadRequest `json:"lead"`
}

// ListMatchesParams filters a provider's match listing.
type ListMatchesParams struct {
	WorkspaceID   uuid.UUID
	CompanyID     uuid.UUID
	Statuses      []domain.MatchStatus
	ServiceID     *uuid.UUID
	MinQuality    *int
	MaxPriceCents *int64
	MaxDistanceKm *float64
	Limit         int
	Offset        int
}

func matchListingWhere(params ListMatchesParams) (string, []interface{}) {
	conditions := []string{"lm.workspace_id = $1", "lm.company_id = $2"}
	args := []interface{}{params.WorkspaceID, params.CompanyID}

	if len(params.Statuses) > 0 {
		args = append(args, params.Statuses)
		conditions = append(conditions, fmt.Sprintf("lm.status = ANY($%d)", len(args)))
	}
	if params.ServiceID != nil {
		args = append(args, *params.ServiceID)
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM lead_request_services lrs WHERE lrs.lead_id = lr.id AND lrs.service_id = $%d)", len(args)))
	}
	if params.MinQuality != nil {
		args = append(args, *params.MinQuality)
		conditions = append(conditions, fmt.Sprintf("lr.quality_score >= $%d", len(args)))
	}
	if params.MaxPriceCents != nil {
		args = append(args, *params.MaxPriceCents)
		conditions = append(conditions, fmt.Sprintf("lm.price_cents <= $%d", len(args)))
	}
	if params.MaxDistanceKm != nil {
		args = append(args, *params.MaxDistanceKm)
		conditions = append(conditions, fmt.Sprintf("(lm.distance_km IS NULL OR lm.distance_km <= $%d)", len(args)))
	}
	return strings.Join(conditions, " AND "), args
}

// ListMatches returns the provider's matches with their leads, newest first.
func (r *Repo) ListMatches(ctx context.Context, params ListMatchesParams) ([]MatchWithLead, int, error) {
	whereClause, args := matchListingWhere(params)

	countQuery := fmt.Sprintf(`
        SELECT COUNT(*)
        FROM lead_matches lm
        JOIN lead_requests lr ON lr.id = lm.lead_id
        WHERE %s`, whereClause)

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count matches: %w", err)
	}

	query := fmt.Sprintf(`
        SELECT %s, %s
        FROM lead_matches lm
        JOIN lead_requests lr ON lr.id = lm.lead_id
        WHERE %s
        ORDER BY lm.created_at DESC
        LIMIT $%d OFFSET $%d`,
		prefixColumns("lm", matchColumns), prefixColumns("lr", leadColumns),
		whereClause, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	items := make([]MatchWithLead, 0)
	for rows.Next() {
		item, err := scanMatchWithLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan match listing: %w", err)
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// prefixColumns qualifies a comma-separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func scanMatchWithLead(row pgx.Row) (MatchWithLead, error) {
	var m Match
	var l LeadRequest
	err := row.Scan(
		&m.ID, &m.WorkspaceID, &m.LeadID, &m.ProID, &m.CompanyID, &m.Status, &m.PriceCents,
		&m.DistanceKm, &m.RankScore, &m.ExpiresAt, &m.ViewedAt, &m.AcceptedAt,
		&m.DeclinedAt, &m.WonAt, &m.LostAt,
		&m.ResponseTimeMinutes, &m.DeclineReason, &m.OutcomeValueCents,
		&m.CreditTransactionID, &m.RefundTransactionID, &m.CreatedAt, &m.UpdatedAt,
		&l.ID, &l.WorkspaceID, &l.Status, &l.ConsumerName, &l.Phone, &l.Email, &l.PostalCode,
		&l.City, &l.Region, &l.Lat, &l.Lng, &l.Title, &l.Description, &l.Answers, &l.Timing,
		&l.BudgetMinCents, &l.BudgetMaxCents, &l.IsExclusive, &l.MaxSoldCount, &l.SoldCount,
		&l.QualityScore, &l.QualityReasons, &l.PriceCents, &l.PricingRuleID, &l.Source,
		&l.RoutedAt, &l.ExpiresAt, &l.CreatedAt, &l.UpdatedAt,
	)
	return MatchWithLead{Match: m, Lead: l}, err
}

// GetMatchForCompany retrieves a match with its lead, scoped to the provider.
func (r *Repo) GetMatchForCompany(ctx context.Context, workspaceID, companyID, matchID uuid.UUID) (MatchWithLead, error) {
	query := fmt.Sprintf(`
        SELECT %s, %s
        FROM lead_matches lm
        JOIN lead_requests lr ON lr.id = lm.lead_id
        WHERE lm.id = $1 AND lm.workspace_id = $2 AND lm.company_id = $3`,
		prefixColumns("lm", matchColumns), prefixColumns("lr", leadColumns))

	item, err := scanMatchWithLead(r.pool.QueryRow(ctx, query, matchID, workspaceID, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MatchWithLead{}, apperr.NotFound(matchNotFoundMessage)
		}
		return MatchWithLead{}, fmt.Errorf("get match: %w", err)
	}
	return item, nil
}

// ListMatchesForLead returns all matches of one lead (workspace view).
func (r *Repo) ListMatchesForLead(ctx context.Context, workspaceID, leadID uuid.UUID) ([]Match, error) {
	query := `
        SELECT ` + matchColumns + `
        FROM lead_matches
        WHERE workspace_id = $1 AND lead_id = $2
        ORDER BY rank_score DESC, created_at ASC`

	rows, err := r.pool.Query(ctx, query, workspaceID, leadID)
	if err != nil {
		return nil, fmt.Errorf("list lead matches: %w", err)
	}
	defer rows.Close()

	matches := make([]Match, 0)
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

// MarkViewed flips a fresh offer to viewed. Idempotent: a match already past
// offered is left untouched.
func (r *Repo) MarkViewed(ctx context.Context, workspaceID, companyID, matchID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
        UPDATE lead_matches
        SET status = 'viewed', viewed_at = NOW(), updated_at = NOW()
        WHERE id = $1 AND workspace_id = $2 AND company_id = $3 AND status = 'offered'`,
		matchID, workspaceID, companyID)
	if err != nil {
		return false, fmt.Errorf("mark viewed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetMatchForUpdate loads the match row with a FOR UPDATE lock inside the
// caller's transaction. This is the first lock in the fixed order
// match, lead, wallet.
func (r *Repo) GetMatchForUpdate(ctx context.Context, tx pgx.Tx, workspaceID, companyID, matchID uuid.UUID) (Match, error) {
	query := `
        SELECT ` + matchColumns + `
        FROM lead_matches
        WHERE id = $1 AND workspace_id = $2 AND company_id = $3
        FOR UPDATE`

	match, err := scanMatch(tx.QueryRow(ctx, query, matchID, workspaceID, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Match{}, apperr.NotFound(matchNotFoundMessage)
		}
		return Match{}, fmt.Errorf("lock match: %w", err)
	}
	return match, nil
}

// GetMatchForUpdateInLead loads one of a lead's matches with a FOR UPDATE
// lock inside the caller's transaction, scoped to the workspace rather than
// the provider. Used by the workspace refund action.
func (r *Repo) GetMatchForUpdateInLead(ctx context.Context, tx pgx.Tx, workspaceID, leadID, matchID uuid.UUID) (Match, error) {
	query := `
        SELECT ` + matchColumns + `
        FROM lead_matches
        WHERE id = $1 AND workspace_id = $2 AND lead_id = $3
        FOR UPDATE`

	match, err := scanMatch(tx.QueryRow(ctx, query, matchID, workspaceID, leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Match{}, apperr.NotFound(matchNotFoundMessage)
		}
		return Match{}, fmt.Errorf("lock match: %w", err)
	}
	return match, nil
}

// MarkAcceptedParams finalizes an accepted match.
type MarkAcceptedParams struct {
	ResponseTimeMinutes int
	CreditTransactionID uuid.UUID
}

// MarkAccepted moves the locked match to accepted inside the caller's
// transaction.
func (r *Repo) MarkAccepted(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, params MarkAcceptedParams) (Match, error) {
	query := `
        UPDATE lead_matches
        SET status = 'accepted', accepted_at = NOW(), response_time_minutes = $2,
            credit_transaction_id = $3, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + matchColumns

	match, err := scanMatch(tx.QueryRow(ctx, query, matchID, params.ResponseTimeMinutes, params.CreditTransactionID))
	if err != nil {
		return Match{}, fmt.Errorf("mark accepted: %w", err)
	}
	return match, nil
}

// MarkExpired sets a single match expired. Used when an accept attempt finds
// the offer past its deadline; the change commits on its own.
func (r *Repo) MarkExpired(ctx context.Context, matchID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `
        UPDATE lead_matches
        SET status = 'expired', updated_at = NOW()
        WHERE id = $1 AND status IN ('offered', 'viewed')`, matchID); err != nil {
		return fmt.Errorf("mark expired: %w", err)
	}
	return nil
}

// ExpireSiblings expires every other pending offer on a lead inside the
// caller's transaction. Used when the last slot sells.
func (r *Repo) ExpireSiblings(ctx context.Context, tx pgx.Tx, leadID, keepMatchID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := tx.Query(ctx, `
        UPDATE lead_matches
        SET status = 'expired', updated_at = NOW()
        WHERE lead_id = $1 AND id <> $2 AND status IN ('offered', 'viewed')
        RETURNING id`, leadID, keepMatchID)
	if err != nil {
		return nil, fmt.Errorf("expire siblings: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan expired sibling: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Decline moves a pending match to declined. Returns false when the match was
// not pending.
func (r *Repo) Decline(ctx context.Context, workspaceID, companyID, matchID uuid.UUID, reason *string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
        UPDATE lead_matches
        SET status = 'declined', declined_at = NOW(), decline_reason = $4, updated_at = NOW()
        WHERE id = $1 AND workspace_id = $2 AND company_id = $3 AND status IN ('offered', 'viewed')`,
		matchID, workspaceID, companyID, reason)
	if err != nil {
		return false, fmt.Errorf("decline match: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkOutcome moves an accepted match to won or lost inside the caller's
// transaction.
func (r *Repo) MarkOutcome(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, status domain.MatchStatus, valueCents *int64) (Match, error) {
	query := `
        UPDATE lead_matches
        SET status = $2, outcome_value_cents = $3,
            won_at = CASE WHEN $2 = 'won' THEN NOW() ELSE won_at END,
            lost_at = CASE WHEN $2 = 'lost' THEN NOW() ELSE lost_at END,
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + matchColumns

	match, err := scanMatch(tx.QueryRow(ctx, query, matchID, status, valueCents))
	if err != nil {
		return Match{}, fmt.Errorf("mark outcome: %w", err)
	}
	return match, nil
}

// MarkRefunded moves an accepted match to refunded inside the caller's
// transaction.
func (r *Repo) MarkRefunded(ctx context.Context, tx pgx.Tx, matchID, refundTransactionID uuid.UUID) (Match, error) {
	query := `
        UPDATE lead_matches
        SET status = 'refunded', refund_transaction_id = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + matchColumns

	match, err := scanMatch(tx.QueryRow(ctx, query, matchID, refundTransactionID))
	if err != nil {
		return Match{}, fmt.Errorf("mark refunded: %w", err)
	}
	return match, nil
}

// ExpireOverdueMatches expires every pending match whose deadline passed.
// Returns how many were expired.
func (r *Repo) ExpireOverdueMatches(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
        UPDATE lead_matches
        SET status = 'expired', updated_at = NOW()
        WHERE status IN ('offered', 'viewed') AND expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire overdue matches: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ExpireOverdueLeads finishes leads whose offer window closed: unsold leads
// expire, partially sold leads close.
func (r *Repo) ExpireOverdueLeads(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
        UPDATE lead_requests
        SET status = CASE WHEN sold_count = 0 THEN 'expired' ELSE 'closed' END, updated_at = NOW()
        WHERE status IN ('routed', 'partial') AND expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire overdue leads: %w", err)
	}
	return tag.RowsAffected(), nil
}
