package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// execer is satisfied by both pgxpool.Pool and pgx.Tx so activity entries can
// ride inside the transaction of the mutation they describe.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertActivity(ctx context.Context, db execer, a Activity) error {
	if _, err := db.Exec(ctx, `
        INSERT INTO lead_activity_log (workspace_id, lead_id, match_id, company_id, type, description, meta, ip)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.WorkspaceID, a.LeadID, a.MatchID, a.CompanyID, a.Type, a.Description, a.Meta, a.IP,
	); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// LogActivity appends an audit entry outside any transaction.
func (r *Repo) LogActivity(ctx context.Context, a Activity) error {
	return insertActivity(ctx, r.pool, a)
}

// LogActivityTx appends an audit entry inside the caller's transaction.
func (r *Repo) LogActivityTx(ctx context.Context, tx pgx.Tx, a Activity) error {
	return insertActivity(ctx, tx, a)
}

// ListActivity returns a lead's audit trail, oldest first.
func (r *Repo) ListActivity(ctx context.Context, workspaceID, leadID uuid.UUID) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, workspace_id, lead_id, match_id, company_id, type, description, meta, ip, created_at
        FROM lead_activity_log
        WHERE workspace_id = $1 AND lead_id = $2
        ORDER BY created_at ASC, id ASC`, workspaceID, leadID)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	entries := make([]Activity, 0)
	for rows.Next() {
		var a Activity
		if err := rows.Scan(
			&a.ID, &a.WorkspaceID, &a.LeadID, &a.MatchID, &a.CompanyID,
			&a.Type, &a.Description, &a.Meta, &a.IP, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}
