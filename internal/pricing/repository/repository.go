// Package repository persists workspace pricing rules.
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

const ruleNotFoundMessage = "pricing rule not found"

// Rule is a stored pricing rule. Nil filter columns match any lead.
type Rule struct {
	ID                  uuid.UUID  `json:"id"`
	WorkspaceID         uuid.UUID  `json:"workspaceId"`
	Name                string     `json:"name"`
	ServiceID           *uuid.UUID `json:"serviceId,omitempty"`
	PostalCode          *string    `json:"postalCode,omitempty"`
	Timing              *string    `json:"timing,omitempty"`
	BasePriceCents      int64      `json:"basePriceCents"`
	SurgeMultiplier     float64    `json:"surgeMultiplier"`
	ExclusiveMultiplier float64    `json:"exclusiveMultiplier"`
	Priority            int        `json:"priority"`
	IsActive            bool       `json:"isActive"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// Repo provides pricing rule persistence backed by Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a pricing rule repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const ruleColumns = `id, workspace_id, name, service_id, postal_code, timing,
        base_price_cents, surge_multiplier, exclusive_multiplier, priority, is_active, created_at, updated_at`

func scanRule(row pgx.Row) (Rule, error) {
	var r Rule
	err := row.Scan(
		&r.ID,
		&r.WorkspaceID,
		&r.Name,
		&r.ServiceID,
		&r.PostalCode,
		&r.Timing,
		&r.BasePriceCents,
		&r.SurgeMultiplier,
		&r.ExclusiveMultiplier,
		&r.Priority,
		&r.IsActive,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

// ListActive returns the workspace's active rules in matching order:
// highest priority first, oldest first within a priority.
func (r *Repo) ListActive(ctx context.Context, workspaceID uuid.UUID) ([]Rule, error) {
	query := `
        SELECT ` + ruleColumns + `
        FROM lead_pricing_rules
        WHERE workspace_id = $1 AND is_active = TRUE
        ORDER BY priority DESC, created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list active pricing rules: %w", err)
	}
	defer rows.Close()

	rules := make([]Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pricing rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// List returns all rules of a workspace, active or not, newest first.
func (r *Repo) List(ctx context.Context, workspaceID uuid.UUID) ([]Rule, error) {
	query := `
        SELECT ` + ruleColumns + `
        FROM lead_pricing_rules
        WHERE workspace_id = $1
        ORDER BY priority DESC, created_at DESC`

	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list pricing rules: %w", err)
	}
	defer rows.Close()

	rules := make([]Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pricing rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// GetByID retrieves a rule scoped to its workspace.
func (r *Repo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (Rule, error) {
	query := `
        SELECT ` + ruleColumns + `
        FROM lead_pricing_rules
        WHERE id = $1 AND workspace_id = $2`

	rule, err := scanRule(r.pool.QueryRow(ctx, query, id, workspaceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, apperr.NotFound(ruleNotFoundMessage)
		}
		return Rule{}, fmt.Errorf("get pricing rule: %w", err)
	}
	return rule, nil
}

// CreateParams holds the writable fields of a new rule.
type CreateParams struct {
	WorkspaceID         uuid.UUID
	Name                string
	ServiceID           *uuid.UUID
	PostalCode          *string
	Timing              *string
	BasePriceCents      int64
	SurgeMultiplier     float64
	ExclusiveMultiplier float64
	Priority            int
	IsActive            bool
}

// Create inserts a rule and returns the stored row.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Rule, error) {
	query := `
        INSERT INTO lead_pricing_rules (
            workspace_id, name, service_id, postal_code, timing,
            base_price_cents, surge_multiplier, exclusive_multiplier, priority, is_active
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING ` + ruleColumns

	rule, err := scanRule(r.pool.QueryRow(ctx, query,
		params.WorkspaceID,
		params.Name,
		params.ServiceID,
		params.PostalCode,
		params.Timing,
		params.BasePriceCents,
		params.SurgeMultiplier,
		params.ExclusiveMultiplier,
		params.Priority,
		params.IsActive,
	))
	if err != nil {
		return Rule{}, fmt.Errorf("create pricing rule: %w", err)
	}
	return rule, nil
}

// UpdateParams holds the writable fields of an existing rule.
type UpdateParams struct {
	Name                string
	ServiceID           *uuid.UUID
	PostalCode          *string
	Timing              *string
	BasePriceCents      int64
	SurgeMultiplier     float64
	ExclusiveMultiplier float64
	Priority            int
	IsActive            bool
}

// Update replaces the writable fields of a rule.
func (r *Repo) Update(ctx context.Context, workspaceID, id uuid.UUID, params UpdateParams) (Rule, error) {
	query := `
        UPDATE lead_pricing_rules
        SET name = $3, service_id = $4, postal_code = $5, timing = $6,
            base_price_cents = $7, surge_multiplier = $8, exclusive_multiplier = $9,
            priority = $10, is_active = $11, updated_at = NOW()
        WHERE id = $1 AND workspace_id = $2
        RETURNING ` + ruleColumns

	rule, err := scanRule(r.pool.QueryRow(ctx, query,
		id,
		workspaceID,
		params.Name,
		params.ServiceID,
		params.PostalCode,
		params.Timing,
		params.BasePriceCents,
		params.SurgeMultiplier,
		params.ExclusiveMultiplier,
		params.Priority,
		params.IsActive,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, apperr.NotFound(ruleNotFoundMessage)
		}
		return Rule{}, fmt.Errorf("update pricing rule: %w", err)
	}
	return rule, nil
}

// Delete removes a rule.
func (r *Repo) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM lead_pricing_rules WHERE id = $1 AND workspace_id = $2`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("delete pricing rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(ruleNotFoundMessage)
	}
	return nil
}
