// Package repository persists the service catalog.
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

const serviceNotFoundMessage = "service not found"

// Service is one entry in the workspace's service catalog. Categories are
// services without a parent.
type Service struct {
	ID          uuid.UUID  `json:"id"`
	WorkspaceID uuid.UUID  `json:"workspaceId"`
	ParentID    *uuid.UUID `json:"parentId,omitempty"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description *string    `json:"description,omitempty"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Repo provides catalog persistence backed by Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a catalog repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const serviceColumns = `id, workspace_id, parent_id, name, slug, description, is_active, created_at, updated_at`

func scanService(row pgx.Row) (Service, error) {
	var s Service
	err := row.Scan(&s.ID, &s.WorkspaceID, &s.ParentID, &s.Name, &s.Slug, &s.Description, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// List returns the workspace's services, optionally active only.
func (r *Repo) List(ctx context.Context, workspaceID uuid.UUID, activeOnly bool) ([]Service, error) {
	query := `
        SELECT ` + serviceColumns + `
        FROM service_catalog
        WHERE workspace_id = $1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	services := make([]Service, 0)
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

// GetByID retrieves one service scoped to its workspace.
func (r *Repo) GetByID(ctx context.Context, workspaceID, id uuid.UUID) (Service, error) {
	query := `
        SELECT ` + serviceColumns + `
        FROM service_catalog
        WHERE id = $1 AND workspace_id = $2`

	svc, err := scanService(r.pool.QueryRow(ctx, query, id, workspaceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Service{}, apperr.NotFound(serviceNotFoundMessage)
		}
		return Service{}, fmt.Errorf("get service: %w", err)
	}
	return svc, nil
}

// CountByIDs reports how many of the given ids exist and are active in the
// workspace. Intake uses it to verify requested services in one round trip.
func (r *Repo) CountByIDs(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM service_catalog
        WHERE workspace_id = $1 AND is_active = TRUE AND id = ANY($2)`, workspaceID, ids,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count services: %w", err)
	}
	return count, nil
}

// SlugExists reports whether a slug is already taken in the workspace,
// optionally excluding one id (for updates).
func (r *Repo) SlugExists(ctx context.Context, workspaceID uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM service_catalog WHERE workspace_id = $1 AND slug = $2`
	args := []interface{}{workspaceID, slug}
	if excludeID != nil {
		query += ` AND id <> $3`
		args = append(args, *excludeID)
	}
	query += `)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return exists, nil
}

// CreateParams holds the writable fields of a new service.
type CreateParams struct {
	WorkspaceID uuid.UUID
	ParentID    *uuid.UUID
	Name        string
	Slug        string
	Description *string
	IsActive    bool
}

// Create inserts a service and returns the stored row.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Service, error) {
	query := `
        INSERT INTO service_catalog (workspace_id, parent_id, name, slug, description, is_active)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + serviceColumns

	svc, err := scanService(r.pool.QueryRow(ctx, query,
		params.WorkspaceID,
		params.ParentID,
		params.Name,
		params.Slug,
		params.Description,
		params.IsActive,
	))
	if err != nil {
		return Service{}, fmt.Errorf("create service: %w", err)
	}
	return svc, nil
}

// UpdateParams holds the writable fields of an existing service.
type UpdateParams struct {
	ParentID    *uuid.UUID
	Name        string
	Slug        string
	Description *string
	IsActive    bool
}

// Update replaces the writable fields of a service.
func (r *Repo) Update(ctx context.Context, workspaceID, id uuid.UUID, params UpdateParams) (Service, error) {
	query := `
        UPDATE service_catalog
        SET parent_id = $3, name = $4, slug = $5, description = $6, is_active = $7, updated_at = NOW()
        WHERE id = $1 AND workspace_id = $2
        RETURNING ` + serviceColumns

	svc, err := scanService(r.pool.QueryRow(ctx, query,
		id,
		workspaceID,
		params.ParentID,
		params.Name,
		params.Slug,
		params.Description,
		params.IsActive,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Service{}, apperr.NotFound(serviceNotFoundMessage)
		}
		return Service{}, fmt.Errorf("update service: %w", err)
	}
	return svc, nil
}

// HasChildren reports whether any service lists the given id as its parent.
func (r *Repo) HasChildren(ctx context.Context, workspaceID, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM service_catalog WHERE workspace_id = $1 AND parent_id = $2)`,
		workspaceID, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check children: %w", err)
	}
	return exists, nil
}

// Delete removes a service.
func (r *Repo) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM service_catalog WHERE id = $1 AND workspace_id = $2`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(serviceNotFoundMessage)
	}
	return nil
}
