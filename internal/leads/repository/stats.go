package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ProviderStats summarizes a provider's marketplace performance. Accepted
// counts every match that got past the wallet charge (accepted, won, lost).
type ProviderStats struct {
	MatchesByStatus        map[string]int `json:"matchesByStatus"`
	TotalMatches           int            `json:"totalMatches"`
	AcceptedCount          int            `json:"acceptedCount"`
	WonCount               int            `json:"wonCount"`
	AcceptanceRate         float64        `json:"acceptanceRate"`
	WinRate                float64        `json:"winRate"`
	AvgResponseTimeMinutes *float64       `json:"avgResponseTimeMinutes"`
}

// GetProviderStats computes match counts and rates for one provider.
func (r *Repo) GetProviderStats(ctx context.Context, workspaceID, companyID uuid.UUID) (ProviderStats, error) {
	stats := ProviderStats{MatchesByStatus: make(map[string]int)}

	rows, err := r.pool.Query(ctx, `
        SELECT status, COUNT(*)
        FROM lead_matches
        WHERE workspace_id = $1 AND company_id = $2
        GROUP BY status`, workspaceID, companyID)
	if err != nil {
		return ProviderStats{}, fmt.Errorf("provider stats by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return ProviderStats{}, fmt.Errorf("scan provider stats: %w", err)
		}
		stats.MatchesByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return ProviderStats{}, err
	}

	err = r.pool.QueryRow(ctx, `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status IN ('accepted', 'won', 'lost')),
               COUNT(*) FILTER (WHERE status = 'won'),
               AVG(response_time_minutes)
        FROM lead_matches
        WHERE workspace_id = $1 AND company_id = $2`, workspaceID, companyID,
	).Scan(&stats.TotalMatches, &stats.AcceptedCount, &stats.WonCount, &stats.AvgResponseTimeMinutes)
	if err != nil {
		return ProviderStats{}, fmt.Errorf("provider stats totals: %w", err)
	}

	if stats.TotalMatches > 0 {
		stats.AcceptanceRate = round1(float64(stats.AcceptedCount) / float64(stats.TotalMatches) * 100)
	}
	if stats.AcceptedCount > 0 {
		stats.WinRate = round1(float64(stats.WonCount) / float64(stats.AcceptedCount) * 100)
	}
	if stats.AvgResponseTimeMinutes != nil {
		rounded := round1(*stats.AvgResponseTimeMinutes)
		stats.AvgResponseTimeMinutes = &rounded
	}
	return stats, nil
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

// WorkspaceStats summarizes a workspace's marketplace activity.
type WorkspaceStats struct {
	LeadsByStatus     map[string]int `json:"leadsByStatus"`
	MatchesByStatus   map[string]int `json:"matchesByStatus"`
	TotalRevenueCents int64          `json:"totalRevenueCents"`
	AcceptanceRate    float64        `json:"acceptanceRate"`
}

// GetWorkspaceStats computes lead and match counts plus revenue for the
// workspace. Revenue counts charges that were not refunded.
func (r *Repo) GetWorkspaceStats(ctx context.Context, workspaceID uuid.UUID) (WorkspaceStats, error) {
	stats := WorkspaceStats{
		LeadsByStatus:   make(map[string]int),
		MatchesByStatus: make(map[string]int),
	}

	leadRows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM lead_requests WHERE workspace_id = $1 GROUP BY status`, workspaceID)
	if err != nil {
		return WorkspaceStats{}, fmt.Errorf("workspace lead stats: %w", err)
	}
	defer leadRows.Close()
	for leadRows.Next() {
		var status string
		var count int
		if err := leadRows.Scan(&status, &count); err != nil {
			return WorkspaceStats{}, fmt.Errorf("scan lead stats: %w", err)
		}
		stats.LeadsByStatus[status] = count
	}
	if err := leadRows.Err(); err != nil {
		return WorkspaceStats{}, err
	}

	matchRows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM lead_matches WHERE workspace_id = $1 GROUP BY status`, workspaceID)
	if err != nil {
		return WorkspaceStats{}, fmt.Errorf("workspace match stats: %w", err)
	}
	defer matchRows.Close()
	var total, accepted int
	for matchRows.Next() {
		var status string
		var count int
		if err := matchRows.Scan(&status, &count); err != nil {
			return WorkspaceStats{}, fmt.Errorf("scan match stats: %w", err)
		}
		stats.MatchesByStatus[status] = count
		total += count
		if status == "accepted" || status == "won" || status == "lost" {
			accepted += count
		}
	}
	if err := matchRows.Err(); err != nil {
		return WorkspaceStats{}, err
	}
	if total > 0 {
		stats.AcceptanceRate = round1(float64(accepted) / float64(total) * 100)
	}

	err = r.pool.QueryRow(ctx, `
        SELECT COALESCE(SUM(price_cents), 0)
        FROM lead_matches
        WHERE workspace_id = $1 AND status IN ('accepted', 'won', 'lost')`, workspaceID,
	).Scan(&stats.TotalRevenueCents)
	if err != nil {
		return WorkspaceStats{}, fmt.Errorf("workspace revenue: %w", err)
	}
	return stats, nil
}

// ExportRow is one CSV line of a provider's match export.
type ExportRow struct {
	MatchID        uuid.UUID
	MatchStatus    string
	PriceCents     int64
	DistanceKm     *float64
	OfferedAt      string
	ViewedAt       *string
	AcceptedAt     *string
	ExpiresAt      *string
	LeadID         uuid.UUID
	LeadSource     *string
	QualityScore   int
	ServiceNames   *string
	Title          string
	City           *string
	Region         *string
	PostalCode     *string
	Timing         string
	BudgetMinCents *int64
	BudgetMaxCents *int64
}

const exportLimit = 20000

// ListExportRows returns a provider's matches flattened for CSV export, using
// the same filters as the listing, newest first.
func (r *Repo) ListExportRows(ctx context.Context, params ListMatchesParams) ([]ExportRow, error) {
	whereClause, args := matchListingWhere(params)

	limit := params.Limit
	if limit < 1 || limit > exportLimit {
		limit = exportLimit
	}

	query := fmt.Sprintf(`
        SELECT lm.id, lm.status, lm.price_cents, lm.distance_km,
               to_char(lm.created_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
               to_char(lm.viewed_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
               to_char(lm.accepted_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
               to_char(lm.expires_at, 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
               lr.id, lr.source, lr.quality_score,
               (SELECT STRING_AGG(sc.name, ', ' ORDER BY sc.name)
                FROM lead_request_services lrs
                JOIN service_catalog sc ON sc.id = lrs.service_id
                WHERE lrs.lead_id = lr.id),
               lr.title, lr.city, lr.region, lr.postal_code, lr.timing,
               lr.budget_min_cents, lr.budget_max_cents
        FROM lead_matches lm
        JOIN lead_requests lr ON lr.id = lm.lead_id
        WHERE %s
        ORDER BY lm.created_at DESC
        LIMIT $%d`, whereClause, len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("export matches: %w", err)
	}
	defer rows.Close()

	out := make([]ExportRow, 0)
	for rows.Next() {
		var row ExportRow
		if err := rows.Scan(
			&row.MatchID, &row.MatchStatus, &row.PriceCents, &row.DistanceKm,
			&row.OfferedAt, &row.ViewedAt, &row.AcceptedAt, &row.ExpiresAt,
			&row.LeadID, &row.LeadSource, &row.QualityScore, &row.ServiceNames,
			&row.Title, &row.City, &row.Region, &row.PostalCode, &row.Timing,
			&row.BudgetMinCents, &row.BudgetMaxCents,
		); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
