// Package service implements catalog business rules: slug generation and the
// parent/child delete guard.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"leadmarket_backend/internal/catalog/repository"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	List(ctx context.Context, workspaceID uuid.UUID, activeOnly bool) ([]repository.Service, error)
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (repository.Service, error)
	CountByIDs(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) (int, error)
	SlugExists(ctx context.Context, workspaceID uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error)
	Create(ctx context.Context, params repository.CreateParams) (repository.Service, error)
	Update(ctx context.Context, workspaceID, id uuid.UUID, params repository.UpdateParams) (repository.Service, error)
	HasChildren(ctx context.Context, workspaceID, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, workspaceID, id uuid.UUID) error
}

// Service manages the workspace service catalog.
type Service struct {
	repo Repository
	log  *logger.Logger
}

// New creates a catalog service.
func New(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// List returns the workspace's services.
func (s *Service) List(ctx context.Context, workspaceID uuid.UUID, activeOnly bool) ([]repository.Service, error) {
	services, err := s.repo.List(ctx, workspaceID, activeOnly)
	if err != nil {
		return nil, apperr.Persistence("list services", err)
	}
	return services, nil
}

// Get returns one service.
func (s *Service) Get(ctx context.Context, workspaceID, id uuid.UUID) (repository.Service, error) {
	return s.repo.GetByID(ctx, workspaceID, id)
}

// VerifyActive checks that every id refers to an active service in the
// workspace. Used by lead intake.
func (s *Service) VerifyActive(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return apperr.Validation("at least one service is required")
	}
	count, err := s.repo.CountByIDs(ctx, workspaceID, ids)
	if err != nil {
		return apperr.Persistence("verify services", err)
	}
	if count != len(ids) {
		return apperr.Validation("one or more requested services are unknown or inactive")
	}
	return nil
}

// Input holds the writable fields for creating or updating a service.
type Input struct {
	ParentID    *uuid.UUID
	Name        string
	Description *string
	IsActive    bool
}

// uniqueSlug derives a slug from the name and suffixes it until free.
func (s *Service) uniqueSlug(ctx context.Context, workspaceID uuid.UUID, name string, excludeID *uuid.UUID) (string, error) {
	base := slug.Make(name)
	candidate := base
	for i := 2; ; i++ {
		taken, err := s.repo.SlugExists(ctx, workspaceID, candidate, excludeID)
		if err != nil {
			return "", apperr.Persistence("check slug", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// Create adds a service to the catalog.
func (s *Service) Create(ctx context.Context, workspaceID uuid.UUID, in Input) (repository.Service, error) {
	if in.ParentID != nil {
		if _, err := s.repo.GetByID(ctx, workspaceID, *in.ParentID); err != nil {
			return repository.Service{}, apperr.Validation("parent service not found")
		}
	}

	serviceSlug, err := s.uniqueSlug(ctx, workspaceID, in.Name, nil)
	if err != nil {
		return repository.Service{}, err
	}

	svc, err := s.repo.Create(ctx, repository.CreateParams{
		WorkspaceID: workspaceID,
		ParentID:    in.ParentID,
		Name:        in.Name,
		Slug:        serviceSlug,
		Description: in.Description,
		IsActive:    in.IsActive,
	})
	if err != nil {
		return repository.Service{}, apperr.Persistence("create service", err)
	}
	s.log.Info("catalog service created", "serviceId", svc.ID, "slug", svc.Slug)
	return svc, nil
}

// Update replaces a service's fields, re-deriving the slug when the name changed.
func (s *Service) Update(ctx context.Context, workspaceID, id uuid.UUID, in Input) (repository.Service, error) {
	existing, err := s.repo.GetByID(ctx, workspaceID, id)
	if err != nil {
		return repository.Service{}, err
	}
	if in.ParentID != nil {
		if *in.ParentID == id {
			return repository.Service{}, apperr.Validation("service cannot be its own parent")
		}
		if _, err := s.repo.GetByID(ctx, workspaceID, *in.ParentID); err != nil {
			return repository.Service{}, apperr.Validation("parent service not found")
		}
	}

	serviceSlug := existing.Slug
	if in.Name != existing.Name {
		serviceSlug, err = s.uniqueSlug(ctx, workspaceID, in.Name, &id)
		if err != nil {
			return repository.Service{}, err
		}
	}

	return s.repo.Update(ctx, workspaceID, id, repository.UpdateParams{
		ParentID:    in.ParentID,
		Name:        in.Name,
		Slug:        serviceSlug,
		Description: in.Description,
		IsActive:    in.IsActive,
	})
}

// Delete removes a service unless other services still point at it.
func (s *Service) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	hasChildren, err := s.repo.HasChildren(ctx, workspaceID, id)
	if err != nil {
		return apperr.Persistence("check children", err)
	}
	if hasChildren {
		return apperr.Conflict("service has child services; delete or reassign them first")
	}
	return s.repo.Delete(ctx, workspaceID, id)
}
