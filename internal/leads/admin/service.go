// Package admin serves the workspace-facing view of the lead pipeline:
// listing, detail, stats, and manual re-routing.
package admin

import (
	"context"

	"github.com/google/uuid"

	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/platform/apperr"
)

// Router triggers routing for one lead.
type Router interface {
	RouteLead(ctx context.Context, workspaceID, leadID uuid.UUID) error
}

// Service answers workspace queries about leads.
type Service struct {
	repo   *repository.Repo
	router Router
}

// New creates an admin service.
func New(repo *repository.Repo, router Router) *Service {
	return &Service{repo: repo, router: router}
}

// ListLeads returns the workspace's leads newest first.
func (s *Service) ListLeads(ctx context.Context, params repository.ListParams) ([]repository.LeadRequest, int, error) {
	if params.Status != nil && !domain.ValidLeadStatus(*params.Status) {
		return nil, 0, apperr.Validation("unknown lead status")
	}
	if params.Limit < 1 || params.Limit > 100 {
		params.Limit = 25
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, apperr.Persistence("list leads", err)
	}
	return leads, total, nil
}

// LeadDetail is the full workspace view of one lead.
type LeadDetail struct {
	Lead     repository.LeadRequest `json:"lead"`
	Matches  []repository.Match     `json:"matches"`
	Activity []repository.Activity  `json:"activity"`
	Quotes   []repository.Quote     `json:"quotes"`
}

// GetLead returns one lead with its matches, activity trail, and quotes.
func (s *Service) GetLead(ctx context.Context, workspaceID, leadID uuid.UUID) (LeadDetail, error) {
	lead, err := s.repo.GetByID(ctx, workspaceID, leadID)
	if err != nil {
		return LeadDetail{}, err
	}

	matches, err := s.repo.ListMatchesForLead(ctx, workspaceID, leadID)
	if err != nil {
		return LeadDetail{}, apperr.Persistence("list lead matches", err)
	}
	activity, err := s.repo.ListActivity(ctx, workspaceID, leadID)
	if err != nil {
		return LeadDetail{}, apperr.Persistence("list lead activity", err)
	}
	quotes, err := s.repo.ListQuotesForLead(ctx, leadID)
	if err != nil {
		return LeadDetail{}, apperr.Persistence("list lead quotes", err)
	}

	return LeadDetail{Lead: lead, Matches: matches, Activity: activity, Quotes: quotes}, nil
}

// WorkspaceStats returns pipeline and revenue aggregates for the workspace.
func (s *Service) WorkspaceStats(ctx context.Context, workspaceID uuid.UUID) (repository.WorkspaceStats, error) {
	stats, err := s.repo.GetWorkspaceStats(ctx, workspaceID)
	if err != nil {
		return repository.WorkspaceStats{}, apperr.Persistence("workspace stats", err)
	}
	return stats, nil
}

// RouteNow runs the routing engine for a lead immediately, bypassing the
// queue. The engine's status guard still applies.
func (s *Service) RouteNow(ctx context.Context, workspaceID, leadID uuid.UUID) error {
	return s.router.RouteLead(ctx, workspaceID, leadID)
}
