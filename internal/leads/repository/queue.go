package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ClaimPending atomically claims the queue row for a lead so only one worker
// routes it. Returns false when the row is absent or already claimed.
func (r *Repo) ClaimPending(ctx context.Context, leadID uuid.UUID) (bool, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
        UPDATE lead_routing_queue
        SET status = 'processing', attempts = attempts + 1, updated_at = NOW()
        WHERE id = (
            SELECT id FROM lead_routing_queue
            WHERE lead_id = $1 AND status = 'pending'
            FOR UPDATE SKIP LOCKED
            LIMIT 1
        )
        RETURNING id`, leadID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("claim routing queue: %w", err)
	}
	return true, nil
}

// MarkQueueDone marks the lead's routing job finished.
func (r *Repo) MarkQueueDone(ctx context.Context, leadID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE lead_routing_queue SET status = $2, updated_at = NOW() WHERE lead_id = $1`,
		leadID, QueueStatusDone,
	); err != nil {
		return fmt.Errorf("mark queue done: %w", err)
	}
	return nil
}

// MarkQueueFailed records a routing failure; the sweep re-enqueues rows with
// remaining attempts.
func (r *Repo) MarkQueueFailed(ctx context.Context, leadID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE lead_routing_queue SET status = $2, updated_at = NOW() WHERE lead_id = $1`,
		leadID, QueueStatusFailed,
	); err != nil {
		return fmt.Errorf("mark queue failed: %w", err)
	}
	return nil
}

// RequeuedJob identifies a routing job the sweep put back on the queue.
type RequeuedJob struct {
	LeadID      uuid.UUID
	WorkspaceID uuid.UUID
}

// RequeueStuck returns failed or stale processing rows (older than the given
// age) to pending, up to the attempt cap, and returns the affected jobs.
func (r *Repo) RequeueStuck(ctx context.Context, olderThan time.Duration, maxAttempts int) ([]RequeuedJob, error) {
	rows, err := r.pool.Query(ctx, `
        UPDATE lead_routing_queue q
        SET status = 'pending', updated_at = NOW()
        FROM lead_requests lr
        WHERE lr.id = q.lead_id
          AND q.attempts < $2
          AND (q.status = 'failed' OR (q.status = 'processing' AND q.updated_at < $1))
        RETURNING q.lead_id, lr.workspace_id`, time.Now().Add(-olderThan), maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("requeue stuck routing jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]RequeuedJob, 0)
	for rows.Next() {
		var job RequeuedJob
		if err := rows.Scan(&job.LeadID, &job.WorkspaceID); err != nil {
			return nil, fmt.Errorf("scan requeued lead: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
