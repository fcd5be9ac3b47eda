// Package service exposes lead pricing to other modules and rule
// administration to the HTTP layer.
package service

import (
	"context"

	"github.com/google/uuid"

	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/pricing/engine"
	"leadmarket_backend/internal/pricing/repository"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	ListActive(ctx context.Context, workspaceID uuid.UUID) ([]repository.Rule, error)
	List(ctx context.Context, workspaceID uuid.UUID) ([]repository.Rule, error)
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (repository.Rule, error)
	Create(ctx context.Context, params repository.CreateParams) (repository.Rule, error)
	Update(ctx context.Context, workspaceID, id uuid.UUID, params repository.UpdateParams) (repository.Rule, error)
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error
}

// Service prices leads and manages pricing rules.
type Service struct {
	repo Repository
	log  *logger.Logger
}

// New creates a pricing service.
func New(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// PriceLead computes the sale price in cents for a lead being taken in.
func (s *Service) PriceLead(ctx context.Context, workspaceID uuid.UUID, req engine.Request) (engine.Quote, error) {
	rules, err := s.repo.ListActive(ctx, workspaceID)
	if err != nil {
		return engine.Quote{}, apperr.Persistence("price lead", err)
	}
	return engine.Calculate(toEngineRules(rules), req), nil
}

func toEngineRules(rules []repository.Rule) []engine.Rule {
	out := make([]engine.Rule, 0, len(rules))
	for _, r := range rules {
		er := engine.Rule{
			ID:                  r.ID,
			ServiceID:           r.ServiceID,
			BasePriceCents:      r.BasePriceCents,
			SurgeMultiplier:     r.SurgeMultiplier,
			ExclusiveMultiplier: r.ExclusiveMultiplier,
		}
		if r.Timing != nil {
			t := domain.Timing(*r.Timing)
			er.Timing = &t
		}
		out = append(out, er)
	}
	return out
}

// RuleInput holds the writable fields for creating or updating a rule.
type RuleInput struct {
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

func validateRuleInput(in RuleInput) error {
	if in.BasePriceCents < 0 {
		return apperr.Validation("base price cannot be negative")
	}
	if in.SurgeMultiplier < 0 || in.ExclusiveMultiplier < 0 {
		return apperr.Validation("multipliers cannot be negative")
	}
	if in.Timing != nil && !domain.ValidTiming(domain.Timing(*in.Timing)) {
		return apperr.Validation("unknown timing value")
	}
	return nil
}

// ListRules returns every rule of the workspace.
func (s *Service) ListRules(ctx context.Context, workspaceID uuid.UUID) ([]repository.Rule, error) {
	rules, err := s.repo.List(ctx, workspaceID)
	if err != nil {
		return nil, apperr.Persistence("list pricing rules", err)
	}
	return rules, nil
}

// GetRule returns one rule.
func (s *Service) GetRule(ctx context.Context, workspaceID, id uuid.UUID) (repository.Rule, error) {
	return s.repo.GetByID(ctx, workspaceID, id)
}

// CreateRule validates and stores a new rule.
func (s *Service) CreateRule(ctx context.Context, workspaceID uuid.UUID, in RuleInput) (repository.Rule, error) {
	if err := validateRuleInput(in); err != nil {
		return repository.Rule{}, err
	}
	rule, err := s.repo.Create(ctx, repository.CreateParams{
		WorkspaceID:         workspaceID,
		Name:                in.Name,
		ServiceID:           in.ServiceID,
		PostalCode:          in.PostalCode,
		Timing:              in.Timing,
		BasePriceCents:      in.BasePriceCents,
		SurgeMultiplier:     in.SurgeMultiplier,
		ExclusiveMultiplier: in.ExclusiveMultiplier,
		Priority:            in.Priority,
		IsActive:            in.IsActive,
	})
	if err != nil {
		return repository.Rule{}, apperr.Persistence("create pricing rule", err)
	}
	s.log.Info("pricing rule created", "ruleId", rule.ID, "workspaceId", workspaceID)
	return rule, nil
}

// UpdateRule validates and replaces a rule's fields.
func (s *Service) UpdateRule(ctx context.Context, workspaceID, id uuid.UUID, in RuleInput) (repository.Rule, error) {
	if err := validateRuleInput(in); err != nil {
		return repository.Rule{}, err
	}
	rule, err := s.repo.Update(ctx, workspaceID, id, repository.UpdateParams{
		Name:                in.Name,
		ServiceID:           in.ServiceID,
		PostalCode:          in.PostalCode,
		Timing:              in.Timing,
		BasePriceCents:      in.BasePriceCents,
		SurgeMultiplier:     in.SurgeMultiplier,
		ExclusiveMultiplier: in.ExclusiveMultiplier,
		Priority:            in.Priority,
		IsActive:            in.IsActive,
	})
	if err != nil {
		return repository.Rule{}, err
	}
	return rule, nil
}

// DeleteRule removes a rule.
func (s *Service) DeleteRule(ctx context.Context, workspaceID, id uuid.UUID) error {
	return s.repo.Delete(ctx, workspaceID, id)
}
