package routing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/internal/notification"
	"leadmarket_backend/platform/logger"
)

// Repository is the persistence surface the engine needs.
type Repository interface {
	GetByID(ctx context.Context, workspaceID, id uuid.UUID) (repository.LeadRequest, error)
	MarkRouting(ctx context.Context, leadID uuid.UUID) error
	ListCandidates(ctx context.Context, workspaceID, leadID uuid.UUID, serviceIDs []uuid.UUID) ([]repository.Candidate, error)
	CreateOffers(ctx context.Context, lead repository.LeadRequest, offers []repository.OfferParams, leadStatus domain.LeadStatus, expiresAt time.Time) ([]repository.Match, error)
	FinishRouting(ctx context.Context, leadID uuid.UUID, status domain.LeadStatus, expiresAt *time.Time) error
	LogActivity(ctx context.Context, a repository.Activity) error
}

// Engine routes leads to providers.
type Engine struct {
	repo       Repository
	bus        events.Bus
	dispatcher notification.Dispatcher
	log        *logger.Logger
	now        func() time.Time
}

// NewEngine creates a routing engine.
func NewEngine(repo Repository, bus events.Bus, dispatcher notification.Dispatcher, log *logger.Logger) *Engine {
	return &Engine{repo: repo, bus: bus, dispatcher: dispatcher, log: log, now: time.Now}
}

// RouteLead matches one lead against the provider pool and creates offers.
// Zero eligible candidates is a normal outcome: the lead closes.
func (e *Engine) RouteLead(ctx context.Context, workspaceID, leadID uuid.UUID) error {
	lead, err := e.repo.GetByID(ctx, workspaceID, leadID)
	if err != nil {
		return err
	}

	if err := e.repo.MarkRouting(ctx, leadID); err != nil {
		return err
	}

	candidates, err := e.repo.ListCandidates(ctx, workspaceID, leadID, lead.ServiceIDs)
	if err != nil {
		return fmt.Errorf("route lead %s: %w", leadID, err)
	}

	prospects := make([]Prospect, len(candidates))
	for i, c := range candidates {
		areas := make([]Area, len(c.Areas))
		for j, a := range c.Areas {
			areas[j] = Area{Lat: a.Lat, Lng: a.Lng, RadiusKm: a.RadiusKm}
		}
		prospects[i] = Prospect{
			Index:              i,
			MinBudgetCents:     c.MinBudgetCents,
			PauseAtZeroBalance: c.PauseAtZeroBalance,
			BalanceCents:       c.BalanceCents,
			Areas:              areas,
		}
	}

	facts := LeadFacts{
		BudgetMaxCents: lead.BudgetMaxCents,
		PriceCents:     lead.PriceCents,
		Lat:            lead.Lat,
		Lng:            lead.Lng,
	}
	ranked := Rank(prospects, facts, lead.MaxSoldCount)

	if len(ranked) == 0 {
		if err := e.repo.FinishRouting(ctx, leadID, domain.LeadStatusClosed, nil); err != nil {
			return err
		}
		if err := e.repo.LogActivity(ctx, repository.Activity{
			WorkspaceID: workspaceID,
			LeadID:      leadID,
			Type:        "lead_routing_empty",
			Description: "no eligible providers found",
		}); err != nil {
			e.log.Error("log routing activity", "error", err, "leadId", leadID)
		}
		e.publishRouted(ctx, lead, 0, domain.LeadStatusClosed)
		return nil
	}

	offers := make([]repository.OfferParams, len(ranked))
	for i, r := range ranked {
		c := candidates[r.Index]
		offers[i] = repository.OfferParams{
			ProID:      c.ProID,
			CompanyID:  c.CompanyID,
			DistanceKm: r.DistanceKm,
			RankScore:  r.Score,
		}
	}

	expiresAt := e.now().Add(domain.OfferTTL)
	matches, err := e.repo.CreateOffers(ctx, lead, offers, domain.LeadStatusRouted, expiresAt)
	if err != nil {
		return fmt.Errorf("create offers for lead %s: %w", leadID, err)
	}

	e.notify(ctx, lead, candidates, ranked)
	e.publishRouted(ctx, lead, len(matches), domain.LeadStatusRouted)

	e.log.Info("lead routed",
		"leadId", leadID,
		"candidates", len(candidates),
		"offers", len(matches),
	)
	return nil
}

func (e *Engine) publishRouted(ctx context.Context, lead repository.LeadRequest, matches int, status domain.LeadStatus) {
	e.bus.Publish(ctx, events.LeadRouted{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		WorkspaceID: lead.WorkspaceID,
		MatchesMade: matches,
		FinalStatus: string(status),
	})
}

// notify emails each offered provider and, when at least one offer was made,
// the consumer. Failures are logged and swallowed.
func (e *Engine) notify(ctx context.Context, lead repository.LeadRequest, candidates []repository.Candidate, ranked []Ranked) {
	for _, r := range ranked {
		c := candidates[r.Index]
		msg := notification.Message{
			To:      c.ContactEmail,
			Subject: "New lead available: " + lead.Title,
			Body: fmt.Sprintf("A new lead matching your services is available for %.2f credits. It expires in %d hours.",
				float64(lead.PriceCents)/100, int(domain.OfferTTL.Hours())),
		}
		if err := e.dispatcher.Dispatch(ctx, msg); err != nil {
			e.log.NotifyError("provider_offer", err)
		}
	}

	if len(ranked) > 0 && lead.Email != nil {
		msg := notification.Message{
			To:      *lead.Email,
			Subject: "Your request has been sent to providers",
			Body:    fmt.Sprintf("Your request %q was shared with %d matching providers. They will contact you shortly.", lead.Title, len(ranked)),
		}
		if err := e.dispatcher.Dispatch(ctx, msg); err != nil {
			e.log.NotifyError("consumer_routed", err)
		}
	}
}
