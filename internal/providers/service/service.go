// Package service implements provider onboarding and profile management.
package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	catalogservice "leadmarket_backend/internal/catalog/service"
	"leadmarket_backend/internal/providers/repository"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/phone"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	Create(ctx context.Context, params repository.CreateParams) (repository.Pro, error)
	GetByCompany(ctx context.Context, workspaceID, companyID uuid.UUID) (repository.Pro, error)
	Update(ctx context.Context, workspaceID, companyID uuid.UUID, params repository.UpdateParams) (repository.Pro, error)
	ReplaceOfferings(ctx context.Context, proID uuid.UUID, serviceIDs []uuid.UUID) error
	ListOfferings(ctx context.Context, proID uuid.UUID) ([]uuid.UUID, error)
	ReplaceAreas(ctx context.Context, proID uuid.UUID, areas []repository.AreaParams) error
	ListAreas(ctx context.Context, proID uuid.UUID) ([]repository.Area, error)
	UpsertPreferences(ctx context.Context, proID uuid.UUID, prefs repository.Preferences) (repository.Preferences, error)
	GetPreferences(ctx context.Context, proID uuid.UUID) (repository.Preferences, error)
}

// Catalog verifies that offered service ids exist.
type Catalog interface {
	VerifyActive(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) error
}

// Service manages service pros.
type Service struct {
	repo    Repository
	catalog Catalog
	log     *logger.Logger
}

var _ Catalog = (*catalogservice.Service)(nil)

// New creates a providers service.
func New(repo Repository, catalog Catalog, log *logger.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, log: log}
}

// RegisterInput holds a provider registration.
type RegisterInput struct {
	CompanyName  string
	ContactEmail string
	ContactPhone string
}

func normalizeContact(email, phoneNumber string) (string, *string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", nil, apperr.Validation("invalid contact email")
	}

	var normalizedPhone *string
	if trimmed := strings.TrimSpace(phoneNumber); trimmed != "" {
		e164 := phone.NormalizeE164(trimmed)
		normalizedPhone = &e164
	}
	return addr.Address, normalizedPhone, nil
}

// Register creates the pro record for the caller's company.
func (s *Service) Register(ctx context.Context, workspaceID, companyID uuid.UUID, in RegisterInput) (repository.Pro, error) {
	email, phoneNumber, err := normalizeContact(in.ContactEmail, in.ContactPhone)
	if err != nil {
		return repository.Pro{}, err
	}

	pro, err := s.repo.Create(ctx, repository.CreateParams{
		WorkspaceID:  workspaceID,
		CompanyID:    companyID,
		CompanyName:  strings.TrimSpace(in.CompanyName),
		ContactEmail: email,
		ContactPhone: phoneNumber,
	})
	if err != nil {
		return repository.Pro{}, err
	}
	s.log.Info("provider registered", "proId", pro.ID, "workspaceId", workspaceID, "companyId", companyID)
	return pro, nil
}

// Profile is a pro together with its offerings, areas, and preferences.
type Profile struct {
	Pro         repository.Pro         `json:"pro"`
	Offerings   []uuid.UUID            `json:"offerings"`
	Areas       []repository.Area      `json:"areas"`
	Preferences repository.Preferences `json:"preferences"`
}

// GetProfile returns the caller's full provider profile.
func (s *Service) GetProfile(ctx context.Context, workspaceID, companyID uuid.UUID) (Profile, error) {
	pro, err := s.repo.GetByCompany(ctx, workspaceID, companyID)
	if err != nil {
		return Profile{}, err
	}
	offerings, err := s.repo.ListOfferings(ctx, pro.ID)
	if err != nil {
		return Profile{}, apperr.Persistence("list offerings", err)
	}
	areas, err := s.repo.ListAreas(ctx, pro.ID)
	if err != nil {
		return Profile{}, apperr.Persistence("list areas", err)
	}
	prefs, err := s.repo.GetPreferences(ctx, pro.ID)
	if err != nil {
		return Profile{}, apperr.Persistence("get preferences", err)
	}
	return Profile{Pro: pro, Offerings: offerings, Areas: areas, Preferences: prefs}, nil
}

// UpdateInput holds profile updates.
type UpdateInput struct {
	CompanyName  string
	ContactEmail string
	ContactPhone string
	IsActive     bool
}

// UpdateProfile replaces the pro's profile fields.
func (s *Service) UpdateProfile(ctx context.Context, workspaceID, companyID uuid.UUID, in UpdateInput) (repository.Pro, error) {
	email, phoneNumber, err := normalizeContact(in.ContactEmail, in.ContactPhone)
	if err != nil {
		return repository.Pro{}, err
	}
	return s.repo.Update(ctx, workspaceID, companyID, repository.UpdateParams{
		CompanyName:  strings.TrimSpace(in.CompanyName),
		ContactEmail: email,
		ContactPhone: phoneNumber,
		IsActive:     in.IsActive,
	})
}

// ReplaceOfferings swaps the pro's offered services after verifying them
// against the catalog.
func (s *Service) ReplaceOfferings(ctx context.Context, workspaceID, companyID uuid.UUID, serviceIDs []uuid.UUID) error {
	pro, err := s.repo.GetByCompany(ctx, workspaceID, companyID)
	if err != nil {
		return err
	}
	if err := s.catalog.VerifyActive(ctx, workspaceID, serviceIDs); err != nil {
		return err
	}
	if err := s.repo.ReplaceOfferings(ctx, pro.ID, serviceIDs); err != nil {
		return apperr.Persistence("replace offerings", err)
	}
	return nil
}

// AreaInput is one circular service area.
type AreaInput struct {
	Name     string
	Lat      float64
	Lng      float64
	RadiusKm float64
}

// ReplaceAreas swaps the pro's service areas. An empty set means the pro
// serves any location.
func (s *Service) ReplaceAreas(ctx context.Context, workspaceID, companyID uuid.UUID, areas []AreaInput) error {
	pro, err := s.repo.GetByCompany(ctx, workspaceID, companyID)
	if err != nil {
		return err
	}
	params := make([]repository.AreaParams, 0, len(areas))
	for _, a := range areas {
		if a.Lat < -90 || a.Lat > 90 || a.Lng < -180 || a.Lng > 180 {
			return apperr.Validation("area coordinates out of range")
		}
		if a.RadiusKm <= 0 {
			return apperr.Validation("area radius must be positive")
		}
		params = append(params, repository.AreaParams(a))
	}
	if err := s.repo.ReplaceAreas(ctx, pro.ID, params); err != nil {
		return apperr.Persistence("replace areas", err)
	}
	return nil
}

// PreferencesInput holds the pro's lead filters.
type PreferencesInput struct {
	MinBudgetCents     int64
	PauseAtZeroBalance bool
	MaxLeadsPerDay     int
}

// UpsertPreferences writes the pro's lead filters.
func (s *Service) UpsertPreferences(ctx context.Context, workspaceID, companyID uuid.UUID, in PreferencesInput) (repository.Preferences, error) {
	if in.MinBudgetCents < 0 {
		return repository.Preferences{}, apperr.Validation("minimum budget cannot be negative")
	}
	if in.MaxLeadsPerDay < 0 {
		return repository.Preferences{}, apperr.Validation("daily lead cap cannot be negative")
	}
	pro, err := s.repo.GetByCompany(ctx, workspaceID, companyID)
	if err != nil {
		return repository.Preferences{}, err
	}
	prefs, err := s.repo.UpsertPreferences(ctx, pro.ID, repository.Preferences{
		ProID:              pro.ID,
		MinBudgetCents:     in.MinBudgetCents,
		PauseAtZeroBalance: in.PauseAtZeroBalance,
		MaxLeadsPerDay:     in.MaxLeadsPerDay,
	})
	if err != nil {
		return repository.Preferences{}, apperr.Persistence("upsert preferences", err)
	}
	return prefs, nil
}
