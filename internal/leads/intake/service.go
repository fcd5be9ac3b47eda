// Package intake accepts lead submissions: validation, dedupe, scoring,
// pricing, and the atomic write that makes a lead exist.
package intake

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/leads/quality"
	"leadmarket_backend/internal/leads/repository"
	pricingengine "leadmarket_backend/internal/pricing/engine"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"
	"leadmarket_backend/platform/phone"
)

// Repository is the persistence surface intake needs.
type Repository interface {
	FindRecentDuplicate(ctx context.Context, workspaceID uuid.UUID, phone, email *string, now time.Time) (uuid.UUID, error)
	CreateLeadGraph(ctx context.Context, params repository.CreateLeadParams, serviceIDs []uuid.UUID) (repository.LeadRequest, error)
}

// Catalog verifies requested service ids.
type Catalog interface {
	VerifyActive(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) error
}

// Pricer computes the sale price of a lead.
type Pricer interface {
	PriceLead(ctx context.Context, workspaceID uuid.UUID, req pricingengine.Request) (pricingengine.Quote, error)
}

// Enqueuer hands a routable lead to the background router. The queue row
// written with the lead is the source of truth; a failed enqueue is only a
// delay until the sweep picks the row up.
type Enqueuer interface {
	EnqueueRoute(ctx context.Context, workspaceID, leadID uuid.UUID) error
}

// Service takes in new leads.
type Service struct {
	repo     Repository
	catalog  Catalog
	pricer   Pricer
	enqueuer Enqueuer
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// New creates an intake service.
func New(repo Repository, catalog Catalog, pricer Pricer, enqueuer Enqueuer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		catalog:  catalog,
		pricer:   pricer,
		enqueuer: enqueuer,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// Submission is one incoming lead.
type Submission struct {
	WorkspaceID    uuid.UUID
	ConsumerName   string
	Phone          string
	Email          string
	PostalCode     string
	City           string
	Region         string
	Lat            *float64
	Lng            *float64
	Title          string
	Description    string
	Answers        map[string]string
	Timing         domain.Timing
	ServiceIDs     []uuid.UUID
	BudgetMinCents *int64
	BudgetMaxCents *int64
	IsExclusive    bool
	MaxSoldCount   int
	Source         string
	IP             string
}

func optional(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Submit validates, deduplicates, scores, prices, and persists a lead. All
// writes are one transaction; the routing enqueue and event publish happen
// after commit.
func (s *Service) Submit(ctx context.Context, sub Submission) (repository.LeadRequest, error) {
	if strings.TrimSpace(sub.Phone) == "" && strings.TrimSpace(sub.Email) == "" {
		return repository.LeadRequest{}, apperr.Validation("a phone number or email address is required")
	}
	if len(sub.ServiceIDs) == 0 {
		return repository.LeadRequest{}, apperr.Validation("at least one service is required")
	}
	if sub.Timing == "" {
		sub.Timing = domain.TimingFlexible
	}
	if !domain.ValidTiming(sub.Timing) {
		return repository.LeadRequest{}, apperr.Validation("unknown timing value")
	}
	if sub.BudgetMinCents != nil && *sub.BudgetMinCents < 0 || sub.BudgetMaxCents != nil && *sub.BudgetMaxCents < 0 {
		return repository.LeadRequest{}, apperr.Validation("budget cannot be negative")
	}

	var email *string
	if trimmed := strings.TrimSpace(sub.Email); trimmed != "" {
		addr, err := mail.ParseAddress(trimmed)
		if err != nil {
			return repository.LeadRequest{}, apperr.BadRequest("malformed email address")
		}
		email = &addr.Address
	}

	var phoneNumber *string
	if trimmed := strings.TrimSpace(sub.Phone); trimmed != "" {
		normalized := phone.NormalizeE164(trimmed)
		phoneNumber = &normalized
	}

	if err := s.catalog.VerifyActive(ctx, sub.WorkspaceID, sub.ServiceIDs); err != nil {
		return repository.LeadRequest{}, err
	}

	now := s.now()
	existingID, err := s.repo.FindRecentDuplicate(ctx, sub.WorkspaceID, phoneNumber, email, now)
	if err != nil {
		return repository.LeadRequest{}, apperr.Persistence("check duplicate", err)
	}
	if existingID != uuid.Nil {
		return repository.LeadRequest{}, apperr.Conflict("a recent lead with the same contact details already exists").
			WithDetails(map[string]any{"existingLeadId": existingID})
	}

	answers := make([]string, 0, len(sub.Answers))
	for _, v := range sub.Answers {
		answers = append(answers, v)
	}
	score := quality.Score(quality.Input{
		ConsumerName: sub.ConsumerName,
		Phone:        sub.Phone,
		Email:        sub.Email,
		PostalCode:   sub.PostalCode,
		Title:        sub.Title,
		Description:  sub.Description,
		Answers:      answers,
		BudgetSet:    sub.BudgetMinCents != nil || sub.BudgetMaxCents != nil,
	})

	quote, err := s.pricer.PriceLead(ctx, sub.WorkspaceID, pricingengine.Request{
		ServiceIDs:  sub.ServiceIDs,
		Timing:      sub.Timing,
		IsExclusive: sub.IsExclusive,
	})
	if err != nil {
		return repository.LeadRequest{}, err
	}

	status := domain.LeadStatusNew
	if score.IsSpam {
		status = domain.LeadStatusSpam
	}

	lead, err := s.repo.CreateLeadGraph(ctx, repository.CreateLeadParams{
		WorkspaceID:    sub.WorkspaceID,
		Status:         status,
		ConsumerName:   strings.TrimSpace(sub.ConsumerName),
		Phone:          phoneNumber,
		Email:          email,
		PostalCode:     optional(sub.PostalCode),
		City:           optional(sub.City),
		Region:         optional(sub.Region),
		Lat:            sub.Lat,
		Lng:            sub.Lng,
		Title:          strings.TrimSpace(sub.Title),
		Description:    strings.TrimSpace(sub.Description),
		Answers:        sub.Answers,
		Timing:         sub.Timing,
		BudgetMinCents: sub.BudgetMinCents,
		BudgetMaxCents: sub.BudgetMaxCents,
		IsExclusive:    sub.IsExclusive,
		MaxSoldCount:   domain.NormalizeMaxSold(sub.MaxSoldCount, sub.IsExclusive),
		QualityScore:   score.Score,
		QualityReasons: score.Reasons,
		PriceCents:     quote.PriceCents,
		PricingRuleID:  quote.RuleID,
		Source:         optional(sub.Source),
		IP:             optional(sub.IP),
	}, sub.ServiceIDs)
	if err != nil {
		return repository.LeadRequest{}, apperr.Persistence("create lead", err)
	}

	s.bus.Publish(ctx, events.LeadSubmitted{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       lead.ID,
		WorkspaceID:  lead.WorkspaceID,
		QualityScore: float64(lead.QualityScore),
		IsSpam:       score.IsSpam,
		PriceCents:   lead.PriceCents,
	})

	if lead.Status.Routable() {
		if err := s.enqueuer.EnqueueRoute(ctx, lead.WorkspaceID, lead.ID); err != nil {
			s.log.Error("enqueue lead routing", "error", err, "leadId", lead.ID)
		}
	}

	s.log.Info("lead submitted",
		"leadId", lead.ID,
		"workspaceId", lead.WorkspaceID,
		"status", string(lead.Status),
		"qualityScore", lead.QualityScore,
		"priceCents", lead.PriceCents,
	)
	return lead, nil
}
