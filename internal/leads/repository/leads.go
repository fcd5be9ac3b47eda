package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/platform/apperr"
)

const leadNotFoundMessage = "lead not found"

const leadColumns = `id, workspace_id, status, consumer_name, phone, email, postal_code, city, region,
        lat, lng, title, description, answers, timing, budget_min_cents, budget_max_cents, is_exclusive,
        max_sold_count, sold_count, quality_score, quality_reasons, price_cents, pricing_rule_id,
        source, routed_at, expires_at, created_at, updated_at`

func scanLead(row pgx.Row) (LeadRequest, error) {
	var l LeadRequest
	err := row.Scan(
		&l.ID,
		&l.WorkspaceID,
		&l.Status,
		&l.ConsumerName,
		&l.Phone,
		&l.Email,
		&l.PostalCode,
		&l.City,
		&l.Region,
		&l.Lat,
		&l.Lng,
		&l.Title,
		&l.Description,
		&l.Answers,
		&l.Timing,
		&l.BudgetMinCents,
		&l.BudgetMaxCents,
		&l.IsExclusive,
		&l.MaxSoldCount,
		&l.SoldCount,
		&l.QualityScore,
		&l.QualityReasons,
		&l.PriceCents,
		&l.PricingRuleID,
		&l.Source,
		&l.RoutedAt,
		&l.ExpiresAt,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	return l, err
}

// FindRecentDuplicate looks for a non-terminal lead in the workspace sharing
// the phone or email within the dedupe window. Returns the existing lead id,
// or uuid.Nil when there is none.
func (r *Repo) FindRecentDuplicate(ctx context.Context, workspaceID uuid.UUID, phone, email *string, now time.Time) (uuid.UUID, error) {
	if phone == nil && email == nil {
		return uuid.Nil, nil
	}

	excluded := make([]string, 0, 4)
	for _, s := range domain.DedupeExcludedStatuses() {
		excluded = append(excluded, string(s))
	}

	query := `
        SELECT id
        FROM lead_requests
        WHERE workspace_id = $1
          AND created_at > $2
          AND status <> ALL($3)
          AND ((phone IS NOT NULL AND phone = $4) OR (email IS NOT NULL AND email = $5))
        ORDER BY created_at DESC
        LIMIT 1`

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query, workspaceID, now.Add(-domain.DedupeWindow), excluded, phone, email).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, nil
		}
		return uuid.Nil, fmt.Errorf("find duplicate lead: %w", err)
	}
	return id, nil
}

// CreateLeadParams holds everything written when a lead is taken in.
type CreateLeadParams struct {
	WorkspaceID    uuid.UUID
	Status         domain.LeadStatus
	ConsumerName   string
	Phone          *string
	Email          *string
	PostalCode     *string
	City           *string
	Region         *string
	Lat            *float64
	Lng            *float64
	Title          string
	Description    string
	Answers        map[string]string
	Timing         domain.Timing
	BudgetMinCents *int64
	BudgetMaxCents *int64
	IsExclusive    bool
	MaxSoldCount   int
	QualityScore   int
	QualityReasons []string
	PriceCents     int64
	PricingRuleID  *uuid.UUID
	Source         *string
	IP             *string
}

// CreateLeadGraph persists the lead, its requested services, the initial
// activity entry, and (for routable leads) the routing queue row in a single
// transaction. Either everything commits or nothing does.
func (r *Repo) CreateLeadGraph(ctx context.Context, params CreateLeadParams, serviceIDs []uuid.UUID) (LeadRequest, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return LeadRequest{}, fmt.Errorf("begin create lead: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO lead_requests (
            workspace_id, status, consumer_name, phone, email, postal_code, city, region, lat, lng,
            title, description, answers, timing, budget_min_cents, budget_max_cents,
            is_exclusive, max_sold_count, quality_score, quality_reasons, price_cents,
            pricing_rule_id, source
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
        RETURNING ` + leadColumns

	lead, err := scanLead(tx.QueryRow(ctx, query,
		params.WorkspaceID,
		params.Status,
		params.ConsumerName,
		params.Phone,
		params.Email,
		params.PostalCode,
		params.City,
		params.Region,
		params.Lat,
		params.Lng,
		params.Title,
		params.Description,
		params.Answers,
		params.Timing,
		params.BudgetMinCents,
		params.BudgetMaxCents,
		params.IsExclusive,
		params.MaxSoldCount,
		params.QualityScore,
		params.QualityReasons,
		params.PriceCents,
		params.PricingRuleID,
		params.Source,
	))
	if err != nil {
		return LeadRequest{}, fmt.Errorf("insert lead: %w", err)
	}

	for _, serviceID := range serviceIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO lead_request_services (lead_id, service_id) VALUES ($1, $2)`,
			lead.ID, serviceID,
		); err != nil {
			return LeadRequest{}, fmt.Errorf("insert lead service: %w", err)
		}
	}
	lead.ServiceIDs = serviceIDs

	if err := insertActivity(ctx, tx, Activity{
		WorkspaceID: lead.WorkspaceID,
		LeadID:      lead.ID,
		Type:        "lead_created",
		Description: "lead submitted",
		Meta:        map[string]any{"qualityScore": lead.QualityScore, "status": string(lead.Status)},
		IP:          params.IP,
	}); err != nil {
		return LeadRequest{}, err
	}

	if lead.Status.Routable() {
		if _, err := tx.Exec(ctx,
			`INSERT INTO lead_routing_queue (lead_id, status) VALUES ($1, $2)`,
			lead.ID, QueueStatusPending,
		); err != nil {
			return LeadRequest{}, fmt.Errorf("enqueue lead for routing: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return LeadRequest{}, fmt.Errorf("commit create lead: %w", err)
	}
	return lead, nil
}

// GetByID retrieves a lead with its requested service ids.
func (r *Repo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (LeadRequest, error) {
	query := `
        SELECT ` + leadColumns + `
        FROM lead_requests
        WHERE id = $1 AND workspace_id = $2`

	lead, err := scanLead(r.pool.QueryRow(ctx, query, id, workspaceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LeadRequest{}, apperr.NotFound(leadNotFoundMessage)
		}
		return LeadRequest{}, fmt.Errorf("get lead: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT service_id FROM lead_request_services WHERE lead_id = $1 ORDER BY service_id`, id)
	if err != nil {
		return LeadRequest{}, fmt.Errorf("list lead services: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var serviceID uuid.UUID
		if err := rows.Scan(&serviceID); err != nil {
			return LeadRequest{}, fmt.Errorf("scan lead service: %w", err)
		}
		lead.ServiceIDs = append(lead.ServiceIDs, serviceID)
	}
	return lead, rows.Err()
}

// ListParams filters and pages the lead listing.
type ListParams struct {
	WorkspaceID uuid.UUID
	Status      *domain.LeadStatus
	Limit       int
	Offset      int
}

// List returns the workspace's leads newest first.
func (r *Repo) List(ctx context.Context, params ListParams) ([]LeadRequest, int, error) {
	whereClause := "workspace_id = $1"
	args := []interface{}{params.WorkspaceID}

	if params.Status != nil {
		whereClause += " AND status = $2"
		args = append(args, *params.Status)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM lead_requests WHERE %s`, whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	query := fmt.Sprintf(`
        SELECT `+leadColumns+`
        FROM lead_requests
        WHERE %s
        ORDER BY created_at DESC
        LIMIT $%d OFFSET $%d`, whereClause, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]LeadRequest, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, total, rows.Err()
}

// MarkRouting performs the guarded transition into the routing state. Zero
// affected rows means the lead is not in a routable state.
func (r *Repo) MarkRouting(ctx context.Context, leadID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
        UPDATE lead_requests
        SET status = 'routing', updated_at = NOW()
        WHERE id = $1 AND status IN ('new', 'routing')`, leadID)
	if err != nil {
		return fmt.Errorf("mark lead routing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.BadRequest("lead is not in a routable state")
	}
	return nil
}

// FinishRouting moves the lead out of the routing state once offers are made
// (or none could be).
func (r *Repo) FinishRouting(ctx context.Context, leadID uuid.UUID, status domain.LeadStatus, expiresAt *time.Time) error {
	_, err := r.pool.Exec(ctx, `
        UPDATE lead_requests
        SET status = $2, routed_at = NOW(), expires_at = $3, updated_at = NOW()
        WHERE id = $1`, leadID, status, expiresAt)
	if err != nil {
		return fmt.Errorf("finish routing: %w", err)
	}
	return nil
}

// GetLeadForUpdate loads the lead row with a FOR UPDATE lock inside the
// caller's transaction. Lock order: match, then lead, then wallet.
func (r *Repo) GetLeadForUpdate(ctx context.Context, tx pgx.Tx, leadID uuid.UUID) (LeadRequest, error) {
	query := `
        SELECT ` + leadColumns + `
        FROM lead_requests
        WHERE id = $1
        FOR UPDATE`

	lead, err := scanLead(tx.QueryRow(ctx, query, leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LeadRequest{}, apperr.NotFound(leadNotFoundMessage)
		}
		return LeadRequest{}, fmt.Errorf("lock lead: %w", err)
	}
	return lead, nil
}

// RecordSale bumps the sold counter and moves the lead to its post-sale
// status inside the caller's transaction.
func (r *Repo) RecordSale(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, status domain.LeadStatus) error {
	if _, err := tx.Exec(ctx, `
        UPDATE lead_requests
        SET sold_count = sold_count + 1, status = $2, updated_at = NOW()
        WHERE id = $1`, leadID, status); err != nil {
		return fmt.Errorf("record sale: %w", err)
	}
	return nil
}
