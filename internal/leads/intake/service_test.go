package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/leads/repository"
	pricingengine "leadmarket_backend/internal/pricing/engine"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"
)

type fakeRepo struct {
	duplicateID uuid.UUID
	created     *repository.CreateLeadParams
	serviceIDs  []uuid.UUID
}

func (f *fakeRepo) FindRecentDuplicate(_ context.Context, _ uuid.UUID, _, _ *string, _ time.Time) (uuid.UUID, error) {
	return f.duplicateID, nil
}

func (f *fakeRepo) CreateLeadGraph(_ context.Context, params repository.CreateLeadParams, serviceIDs []uuid.UUID) (repository.LeadRequest, error) {
	f.created = &params
	f.serviceIDs = serviceIDs
	return repository.LeadRequest{
		ID:           uuid.New(),
		WorkspaceID:  params.WorkspaceID,
		Status:       params.Status,
		QualityScore: params.QualityScore,
		PriceCents:   params.PriceCents,
		MaxSoldCount: params.MaxSoldCount,
	}, nil
}

type fakeCatalog struct{ err error }

func (f *fakeCatalog) VerifyActive(context.Context, uuid.UUID, []uuid.UUID) error { return f.err }

type fakePricer struct{ quote pricingengine.Quote }

func (f *fakePricer) PriceLead(context.Context, uuid.UUID, pricingengine.Request) (pricingengine.Quote, error) {
	return f.quote, nil
}

type fakeEnqueuer struct{ enqueued []uuid.UUID }

func (f *fakeEnqueuer) EnqueueRoute(_ context.Context, _, leadID uuid.UUID) error {
	f.enqueued = append(f.enqueued, leadID)
	return nil
}

type fakeBus struct{ published []events.Event }

func (f *fakeBus) Publish(_ context.Context, e events.Event)          { f.published = append(f.published, e) }
func (f *fakeBus) PublishSync(_ context.Context, e events.Event) error {
	f.published = append(f.published, e)
	return nil
}
func (f *fakeBus) Subscribe(string, events.Handler) {}

func newService(repo *fakeRepo, catalog *fakeCatalog, pricer *fakePricer, enqueuer *fakeEnqueuer, bus *fakeBus) *Service {
	return New(repo, catalog, pricer, enqueuer, bus, logger.New("development"))
}

func validSubmission() Submission {
	return Submission{
		WorkspaceID:  uuid.New(),
		ConsumerName: "Jane Miller",
		Phone:        "+14155550123",
		Email:        "jane@example.com",
		PostalCode:   "94107",
		Title:        "Kitchen remodel",
		Description:  "Full kitchen remodel including cabinets and counters.",
		Timing:       domain.TimingASAP,
		ServiceIDs:   []uuid.UUID{uuid.New()},
	}
}

func TestSubmitRequiresContactMethod(t *testing.T) {
	svc := newService(&fakeRepo{}, &fakeCatalog{}, &fakePricer{}, &fakeEnqueuer{}, &fakeBus{})

	sub := validSubmission()
	sub.Phone = ""
	sub.Email = ""
	_, err := svc.Submit(context.Background(), sub)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitRequiresServices(t *testing.T) {
	svc := newService(&fakeRepo{}, &fakeCatalog{}, &fakePricer{}, &fakeEnqueuer{}, &fakeBus{})

	sub := validSubmission()
	sub.ServiceIDs = nil
	_, err := svc.Submit(context.Background(), sub)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitRejectsMalformedEmail(t *testing.T) {
	svc := newService(&fakeRepo{}, &fakeCatalog{}, &fakePricer{}, &fakeEnqueuer{}, &fakeBus{})

	sub := validSubmission()
	sub.Email = "not an address"
	_, err := svc.Submit(context.Background(), sub)
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request for malformed email, got %v", err)
	}
}

func TestSubmitDuplicateReferencesExistingLead(t *testing.T) {
	existing := uuid.New()
	repo := &fakeRepo{duplicateID: existing}
	svc := newService(repo, &fakeCatalog{}, &fakePricer{}, &fakeEnqueuer{}, &fakeBus{})

	_, err := svc.Submit(context.Background(), validSubmission())
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatal("expected typed error")
	}
	details, ok := appErr.Details.(map[string]any)
	if !ok || details["existingLeadId"] != existing {
		t.Fatalf("details must reference the existing lead, got %v", appErr.Details)
	}
	if repo.created != nil {
		t.Fatal("duplicate submission must not write a lead")
	}
}

func TestSubmitPersistsScoredAndPricedLead(t *testing.T) {
	repo := &fakeRepo{}
	pricer := &fakePricer{quote: pricingengine.Quote{PriceCents: 7500}}
	enqueuer := &fakeEnqueuer{}
	bus := &fakeBus{}
	svc := newService(repo, &fakeCatalog{}, pricer, enqueuer, bus)

	sub := validSubmission()
	lead, err := svc.Submit(context.Background(), sub)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if repo.created == nil {
		t.Fatal("lead was not persisted")
	}
	if repo.created.Status != domain.LeadStatusNew {
		t.Fatalf("expected status new, got %s", repo.created.Status)
	}
	if repo.created.PriceCents != 7500 {
		t.Fatalf("expected priced at 7500, got %d", repo.created.PriceCents)
	}
	if repo.created.QualityScore < 20 {
		t.Fatalf("complete submission must not score as spam, got %d", repo.created.QualityScore)
	}
	if repo.created.MaxSoldCount != domain.DefaultMaxSoldCount {
		t.Fatalf("expected default max sold, got %d", repo.created.MaxSoldCount)
	}
	if repo.created.Phone == nil || *repo.created.Phone != "+14155550123" {
		t.Fatalf("expected normalized phone, got %v", repo.created.Phone)
	}

	if len(enqueuer.enqueued) != 1 || enqueuer.enqueued[0] != lead.ID {
		t.Fatalf("routable lead must be enqueued once, got %v", enqueuer.enqueued)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(bus.published))
	}
	if _, ok := bus.published[0].(events.LeadSubmitted); !ok {
		t.Fatalf("expected LeadSubmitted event, got %T", bus.published[0])
	}
}

func TestSubmitSpamLeadIsPersistedButNotEnqueued(t *testing.T) {
	repo := &fakeRepo{}
	enqueuer := &fakeEnqueuer{}
	bus := &fakeBus{}
	svc := newService(repo, &fakeCatalog{}, &fakePricer{}, enqueuer, bus)

	sub := validSubmission()
	sub.ConsumerName = "test"
	sub.Phone = ""
	sub.Email = "spam@example.com"
	sub.PostalCode = ""
	sub.Title = "casino"
	sub.Description = "visit https://a.example and https://b.example"
	_, err := svc.Submit(context.Background(), sub)
	if err != nil {
		t.Fatalf("spam is persisted, not rejected: %v", err)
	}

	if repo.created == nil || repo.created.Status != domain.LeadStatusSpam {
		t.Fatalf("expected spam status, got %+v", repo.created)
	}
	if len(enqueuer.enqueued) != 0 {
		t.Fatal("spam lead must not be enqueued for routing")
	}
	if len(bus.published) != 1 {
		t.Fatal("spam lead still publishes the submitted event")
	}
	if e, ok := bus.published[0].(events.LeadSubmitted); !ok || !e.IsSpam {
		t.Fatalf("event must carry the spam verdict, got %+v", bus.published[0])
	}
}

func TestSubmitExclusiveCapsSoldCount(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo, &fakeCatalog{}, &fakePricer{}, &fakeEnqueuer{}, &fakeBus{})

	sub := validSubmission()
	sub.IsExclusive = true
	sub.MaxSoldCount = 5
	if _, err := svc.Submit(context.Background(), sub); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if repo.created.MaxSoldCount != 1 {
		t.Fatalf("exclusive lead must cap max sold at 1, got %d", repo.created.MaxSoldCount)
	}
}
