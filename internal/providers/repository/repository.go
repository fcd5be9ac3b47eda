// Package repository persists service pros, what they offer, where they work,
// and how they want leads filtered.
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

const proNotFoundMessage = "provider not found"

// Pro is a provider company registered in the marketplace.
type Pro struct {
	ID                 uuid.UUID `json:"id"`
	WorkspaceID        uuid.UUID `json:"workspaceId"`
	CompanyID          uuid.UUID `json:"companyId"`
	CompanyName        string    `json:"companyName"`
	ContactEmail       string    `json:"contactEmail"`
	ContactPhone       *string   `json:"contactPhone,omitempty"`
	IsActive           bool      `json:"isActive"`
	TotalLeadsAccepted int       `json:"totalLeadsAccepted"`
	TotalLeadsWon      int       `json:"totalLeadsWon"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Area is a circular service area. A pro with zero areas serves anywhere.
type Area struct {
	ID       uuid.UUID `json:"id"`
	ProID    uuid.UUID `json:"proId"`
	Name     string    `json:"name"`
	Lat      float64   `json:"lat"`
	Lng      float64   `json:"lng"`
	RadiusKm float64   `json:"radiusKm"`
}

// Preferences are the pro's lead filters.
type Preferences struct {
	ProID              uuid.UUID `json:"proId"`
	MinBudgetCents     int64     `json:"minBudgetCents"`
	PauseAtZeroBalance bool      `json:"pauseAtZeroBalance"`
	MaxLeadsPerDay     int       `json:"maxLeadsPerDay"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Repo provides provider persistence backed by Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a provider repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const proColumns = `id, workspace_id, company_id, company_name, contact_email, contact_phone,
        is_active, total_leads_accepted, total_leads_won, created_at, updated_at`

func scanPro(row pgx.Row) (Pro, error) {
	var p Pro
	err := row.Scan(
		&p.ID,
		&p.WorkspaceID,
		&p.CompanyID,
		&p.CompanyName,
		&p.ContactEmail,
		&p.ContactPhone,
		&p.IsActive,
		&p.TotalLeadsAccepted,
		&p.TotalLeadsWon,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

// CreateParams holds the writable fields of a new pro.
type CreateParams struct {
	WorkspaceID  uuid.UUID
	CompanyID    uuid.UUID
	CompanyName  string
	ContactEmail string
	ContactPhone *string
}

// Create registers a provider company. One pro per company per workspace.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Pro, error) {
	query := `
        INSERT INTO service_pros (workspace_id, company_id, company_name, contact_email, contact_phone)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (workspace_id, company_id) DO NOTHING
        RETURNING ` + proColumns

	pro, err := scanPro(r.pool.QueryRow(ctx, query,
		params.WorkspaceID,
		params.CompanyID,
		params.CompanyName,
		params.ContactEmail,
		params.ContactPhone,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pro{}, apperr.Conflict("provider already registered")
		}
		return Pro{}, fmt.Errorf("create provider: %w", err)
	}
	return pro, nil
}

// GetByCompany retrieves the pro registered for a company in a workspace.
func (r *Repo) GetByCompany(ctx context.Context, workspaceID, companyID uuid.UUID) (Pro, error) {
	query := `
        SELECT ` + proColumns + `
        FROM service_pros
        WHERE workspace_id = $1 AND company_id = $2`

	pro, err := scanPro(r.pool.QueryRow(ctx, query, workspaceID, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pro{}, apperr.NotFound(proNotFoundMessage)
		}
		return Pro{}, fmt.Errorf("get provider by company: %w", err)
	}
	return pro, nil
}

// UpdateParams holds the writable profile fields of a pro.
type UpdateParams struct {
	CompanyName  string
	ContactEmail string
	ContactPhone *string
	IsActive     bool
}

// Update replaces the pro's profile fields.
func (r *Repo) Update(ctx context.Context, workspaceID, companyID uuid.UUID, params UpdateParams) (Pro, error) {
	query := `
        UPDATE service_pros
        SET company_name = $3, contact_email = $4, contact_phone = $5, is_active = $6, updated_at = NOW()
        WHERE workspace_id = $1 AND company_id = $2
        RETURNING ` + proColumns

	pro, err := scanPro(r.pool.QueryRow(ctx, query,
		workspaceID,
		companyID,
		params.CompanyName,
		params.ContactEmail,
		params.ContactPhone,
		params.IsActive,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Pro{}, apperr.NotFound(proNotFoundMessage)
		}
		return Pro{}, fmt.Errorf("update provider: %w", err)
	}
	return pro, nil
}

// ReplaceOfferings swaps the pro's offered services for the given set.
func (r *Repo) ReplaceOfferings(ctx context.Context, proID uuid.UUID, serviceIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace offerings: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM service_pro_offerings WHERE pro_id = $1`, proID); err != nil {
		return fmt.Errorf("clear offerings: %w", err)
	}
	for _, serviceID := range serviceIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO service_pro_offerings (pro_id, service_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			proID, serviceID,
		); err != nil {
			return fmt.Errorf("insert offering: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// ListOfferings returns the service ids the pro offers.
func (r *Repo) ListOfferings(ctx context.Context, proID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT service_id FROM service_pro_offerings WHERE pro_id = $1 ORDER BY service_id`, proID)
	if err != nil {
		return nil, fmt.Errorf("list offerings: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan offering: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AreaParams holds the writable fields of one service area.
type AreaParams struct {
	Name     string
	Lat      float64
	Lng      float64
	RadiusKm float64
}

// ReplaceAreas swaps the pro's service areas for the given set.
func (r *Repo) ReplaceAreas(ctx context.Context, proID uuid.UUID, areas []AreaParams) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace areas: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM service_areas WHERE pro_id = $1`, proID); err != nil {
		return fmt.Errorf("clear areas: %w", err)
	}
	for _, area := range areas {
		if _, err := tx.Exec(ctx,
			`INSERT INTO service_areas (pro_id, name, lat, lng, radius_km) VALUES ($1, $2, $3, $4, $5)`,
			proID, area.Name, area.Lat, area.Lng, area.RadiusKm,
		); err != nil {
			return fmt.Errorf("insert area: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// ListAreas returns the pro's service areas.
func (r *Repo) ListAreas(ctx context.Context, proID uuid.UUID) ([]Area, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, pro_id, name, lat, lng, radius_km FROM service_areas WHERE pro_id = $1 ORDER BY name`, proID)
	if err != nil {
		return nil, fmt.Errorf("list areas: %w", err)
	}
	defer rows.Close()

	areas := make([]Area, 0)
	for rows.Next() {
		var area Area
		if err := rows.Scan(&area.ID, &area.ProID, &area.Name, &area.Lat, &area.Lng, &area.RadiusKm); err != nil {
			return nil, fmt.Errorf("scan area: %w", err)
		}
		areas = append(areas, area)
	}
	return areas, rows.Err()
}

// UpsertPreferences writes the pro's lead filters, creating the row on first use.
func (r *Repo) UpsertPreferences(ctx context.Context, proID uuid.UUID, prefs Preferences) (Preferences, error) {
	query := `
        INSERT INTO pro_preferences (pro_id, min_budget_cents, pause_at_zero_balance, max_leads_per_day)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (pro_id) DO UPDATE
        SET min_budget_cents = EXCLUDED.min_budget_cents,
            pause_at_zero_balance = EXCLUDED.pause_at_zero_balance,
            max_leads_per_day = EXCLUDED.max_leads_per_day,
            updated_at = NOW()
        RETURNING pro_id, min_budget_cents, pause_at_zero_balance, max_leads_per_day, updated_at`

	var out Preferences
	err := r.pool.QueryRow(ctx, query,
		proID, prefs.MinBudgetCents, prefs.PauseAtZeroBalance, prefs.MaxLeadsPerDay,
	).Scan(&out.ProID, &out.MinBudgetCents, &out.PauseAtZeroBalance, &out.MaxLeadsPerDay, &out.UpdatedAt)
	if err != nil {
		return Preferences{}, fmt.Errorf("upsert preferences: %w", err)
	}
	return out, nil
}

// GetPreferences returns the pro's filters, zero-valued when never set.
func (r *Repo) GetPreferences(ctx context.Context, proID uuid.UUID) (Preferences, error) {
	query := `
        SELECT pro_id, min_budget_cents, pause_at_zero_balance, max_leads_per_day, updated_at
        FROM pro_preferences
        WHERE pro_id = $1`

	var prefs Preferences
	err := r.pool.QueryRow(ctx, query, proID).Scan(
		&prefs.ProID, &prefs.MinBudgetCents, &prefs.PauseAtZeroBalance, &prefs.MaxLeadsPerDay, &prefs.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Preferences{ProID: proID}, nil
		}
		return Preferences{}, fmt.Errorf("get preferences: %w", err)
	}
	return prefs, nil
}

// IncrementAccepted bumps the accepted counter inside the caller's transaction.
func (r *Repo) IncrementAccepted(ctx context.Context, tx pgx.Tx, proID uuid.UUID) error {
	if _, err := tx.Exec(ctx,
		`UPDATE service_pros SET total_leads_accepted = total_leads_accepted + 1, updated_at = NOW() WHERE id = $1`,
		proID,
	); err != nil {
		return fmt.Errorf("increment accepted: %w", err)
	}
	return nil
}

// IncrementWon bumps the won counter inside the caller's transaction.
func (r *Repo) IncrementWon(ctx context.Context, tx pgx.Tx, proID uuid.UUID) error {
	if _, err := tx.Exec(ctx,
		`UPDATE service_pros SET total_leads_won = total_leads_won + 1, updated_at = NOW() WHERE id = $1`,
		proID,
	); err != nil {
		return fmt.Errorf("increment won: %w", err)
	}
	return nil
}
