package matching

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/internal/notification"
	walletrepo "leadmarket_backend/internal/wallet/repository"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"
)

func TestContactVisible(t *testing.T) {
	visible := []domain.MatchStatus{
		domain.MatchStatusAccepted,
		domain.MatchStatusWon,
		domain.MatchStatusLost,
		domain.MatchStatusRefunded,
	}
	hidden := []domain.MatchStatus{
		domain.MatchStatusOffered,
		domain.MatchStatusViewed,
		domain.MatchStatusDeclined,
		domain.MatchStatusExpired,
	}

	for _, status := range visible {
		if !contactVisible(status) {
			t.Errorf("contact must be visible on %s", status)
		}
	}
	for _, status := range hidden {
		if contactVisible(status) {
			t.Errorf("contact must be hidden on %s", status)
		}
	}
}

func TestMaskLeadHidesContactOnUnpaidMatches(t *testing.T) {
	phone := "+14155550123"
	email := "jane@example.com"
	item := repository.MatchWithLead{
		Match: repository.Match{Status: domain.MatchStatusViewed},
		Lead: repository.LeadRequest{
			ConsumerName: "Jane Miller",
			Phone:        &phone,
			Email:        &email,
		},
	}

	maskLead(&item)
	if item.Lead.Phone != nil || item.Lead.Email != nil || item.Lead.ConsumerName != "" {
		t.Fatalf("unpaid match must not expose contact details: %+v", item.Lead)
	}

	item.Match.Status = domain.MatchStatusAccepted
	item.Lead.Phone = &phone
	item.Lead.Email = &email
	item.Lead.ConsumerName = "Jane Miller"
	maskLead(&item)
	if item.Lead.Phone == nil || item.Lead.Email == nil || item.Lead.ConsumerName == "" {
		t.Fatal("paid match must keep contact details")
	}
}

// fakeTx records whether the critical section committed or rolled back.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Begin(context.Context) (pgx.Tx, error) { return tx, nil }
func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}
func (tx *fakeTx) Rollback(context.Context) error {
	if !tx.committed {
		tx.rolledBack = true
	}
	return nil
}
func (tx *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (tx *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (tx *fakeTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (tx *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (tx *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (tx *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (tx *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (tx *fakeTx) Conn() *pgx.Conn                                         { return nil }

// fakeLifecycleRepo serves one match and its lead and records every mutation.
type fakeLifecycleRepo struct {
	match repository.Match
	lead  repository.LeadRequest

	tx             *fakeTx
	accepted       *repository.MarkAcceptedParams
	expired        []uuid.UUID
	siblingsFrozen bool
	saleStatus     *domain.LeadStatus
	refundTxID     *uuid.UUID
	declineOK      bool
	outcome        *domain.MatchStatus
	activities     []repository.Activity
}

func (f *fakeLifecycleRepo) Begin(context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

func (f *fakeLifecycleRepo) ListMatches(context.Context, repository.ListMatchesParams) ([]repository.MatchWithLead, int, error) {
	return nil, 0, nil
}

func (f *fakeLifecycleRepo) GetMatchForCompany(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) (repository.MatchWithLead, error) {
	return repository.MatchWithLead{Match: f.match, Lead: f.lead}, nil
}

func (f *fakeLifecycleRepo) MarkViewed(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakeLifecycleRepo) GetMatchForUpdate(context.Context, pgx.Tx, uuid.UUID, uuid.UUID, uuid.UUID) (repository.Match, error) {
	return f.match, nil
}

func (f *fakeLifecycleRepo) GetMatchForUpdateInLead(context.Context, pgx.Tx, uuid.UUID, uuid.UUID, uuid.UUID) (repository.Match, error) {
	return f.match, nil
}

func (f *fakeLifecycleRepo) MarkAccepted(_ context.Context, _ pgx.Tx, _ uuid.UUID, params repository.MarkAcceptedParams) (repository.Match, error) {
	f.accepted = &params
	m := f.match
	m.Status = domain.MatchStatusAccepted
	return m, nil
}

func (f *fakeLifecycleRepo) MarkExpired(_ context.Context, matchID uuid.UUID) error {
	f.expired = append(f.expired, matchID)
	return nil
}

func (f *fakeLifecycleRepo) ExpireSiblings(context.Context, pgx.Tx, uuid.UUID, uuid.UUID) ([]uuid.UUID, error) {
	f.siblingsFrozen = true
	return nil, nil
}

func (f *fakeLifecycleRepo) Decline(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, *string) (bool, error) {
	return f.declineOK, nil
}

func (f *fakeLifecycleRepo) MarkOutcome(_ context.Context, _ pgx.Tx, _ uuid.UUID, status domain.MatchStatus, _ *int64) (repository.Match, error) {
	f.outcome = &status
	m := f.match
	m.Status = status
	return m, nil
}

func (f *fakeLifecycleRepo) MarkRefunded(_ context.Context, _ pgx.Tx, _, refundTransactionID uuid.UUID) (repository.Match, error) {
	f.refundTxID = &refundTransactionID
	m := f.match
	m.Status = domain.MatchStatusRefunded
	return m, nil
}

func (f *fakeLifecycleRepo) GetLeadForUpdate(context.Context, pgx.Tx, uuid.UUID) (repository.LeadRequest, error) {
	return f.lead, nil
}

func (f *fakeLifecycleRepo) RecordSale(_ context.Context, _ pgx.Tx, _ uuid.UUID, status domain.LeadStatus) error {
	f.saleStatus = &status
	return nil
}

func (f *fakeLifecycleRepo) LogActivity(_ context.Context, a repository.Activity) error {
	f.activities = append(f.activities, a)
	return nil
}

func (f *fakeLifecycleRepo) LogActivityTx(_ context.Context, _ pgx.Tx, a repository.Activity) error {
	f.activities = append(f.activities, a)
	return nil
}

func (f *fakeLifecycleRepo) CreateQuote(_ context.Context, params repository.CreateQuoteParams) (repository.Quote, error) {
	return repository.Quote{ID: uuid.New(), MatchID: params.MatchID, AmountCents: params.AmountCents}, nil
}

func (f *fakeLifecycleRepo) ListExportRows(context.Context, repository.ListMatchesParams) ([]repository.ExportRow, error) {
	return nil, nil
}

func (f *fakeLifecycleRepo) GetProviderStats(context.Context, uuid.UUID, uuid.UUID) (repository.ProviderStats, error) {
	return repository.ProviderStats{}, nil
}

// fakeLedger records charges and refunds against a fixed wallet.
type fakeLedger struct {
	wallet  walletrepo.Wallet
	charges []walletrepo.LedgerParams
	refunds []walletrepo.LedgerParams
}

func (f *fakeLedger) GetOrCreate(context.Context, uuid.UUID, uuid.UUID) (walletrepo.Wallet, error) {
	return f.wallet, nil
}

func (f *fakeLedger) GetForUpdate(context.Context, pgx.Tx, uuid.UUID, uuid.UUID) (walletrepo.Wallet, error) {
	return f.wallet, nil
}

func (f *fakeLedger) ApplyCharge(_ context.Context, _ pgx.Tx, params walletrepo.LedgerParams) (walletrepo.Transaction, error) {
	f.charges = append(f.charges, params)
	return walletrepo.Transaction{
		ID:                 uuid.New(),
		WalletID:           params.WalletID,
		Type:               walletrepo.TxTypeCharge,
		AmountCents:        params.AmountCents,
		BalanceBeforeCents: f.wallet.BalanceCents,
		BalanceAfterCents:  f.wallet.BalanceCents - params.AmountCents,
	}, nil
}

func (f *fakeLedger) ApplyRefund(_ context.Context, _ pgx.Tx, params walletrepo.LedgerParams) (walletrepo.Transaction, error) {
	f.refunds = append(f.refunds, params)
	return walletrepo.Transaction{
		ID:                 uuid.New(),
		WalletID:           params.WalletID,
		Type:               walletrepo.TxTypeRefund,
		AmountCents:        params.AmountCents,
		BalanceBeforeCents: f.wallet.BalanceCents,
		BalanceAfterCents:  f.wallet.BalanceCents + params.AmountCents,
	}, nil
}

type fakeCounters struct {
	accepted []uuid.UUID
	won      []uuid.UUID
}

func (f *fakeCounters) IncrementAccepted(_ context.Context, _ pgx.Tx, proID uuid.UUID) error {
	f.accepted = append(f.accepted, proID)
	return nil
}

func (f *fakeCounters) IncrementWon(_ context.Context, _ pgx.Tx, proID uuid.UUID) error {
	f.won = append(f.won, proID)
	return nil
}

type fakeBus struct{ published []events.Event }

func (f *fakeBus) Publish(_ context.Context, e events.Event) { f.published = append(f.published, e) }
func (f *fakeBus) PublishSync(_ context.Context, e events.Event) error {
	f.published = append(f.published, e)
	return nil
}
func (f *fakeBus) Subscribe(string, events.Handler) {}

type fakeDispatcher struct{ sent []notification.Message }

func (f *fakeDispatcher) Dispatch(_ context.Context, msg notification.Message) error {
	f.sent = append(f.sent, msg)
	return nil
}

type lifecycleHarness struct {
	svc      *Service
	repo     *fakeLifecycleRepo
	ledger   *fakeLedger
	counters *fakeCounters
	bus      *fakeBus
}

func newLifecycleHarness(match repository.Match, lead repository.LeadRequest, balanceCents int64) *lifecycleHarness {
	repo := &fakeLifecycleRepo{match: match, lead: lead, declineOK: true}
	ledger := &fakeLedger{wallet: walletrepo.Wallet{
		ID:           uuid.New(),
		WorkspaceID:  match.WorkspaceID,
		CompanyID:    match.CompanyID,
		BalanceCents: balanceCents,
	}}
	counters := &fakeCounters{}
	bus := &fakeBus{}
	svc := New(repo, ledger, counters, bus, &fakeDispatcher{}, logger.New("development"))
	return &lifecycleHarness{svc: svc, repo: repo, ledger: ledger, counters: counters, bus: bus}
}

func pendingMatch(soldCount, maxSold int) (repository.Match, repository.LeadRequest) {
	workspaceID := uuid.New()
	leadID := uuid.New()
	expires := time.Now().Add(time.Hour)
	match := repository.Match{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		LeadID:      leadID,
		ProID:       uuid.New(),
		CompanyID:   uuid.New(),
		Status:      domain.MatchStatusViewed,
		PriceCents:  4000,
		ExpiresAt:   &expires,
		CreatedAt:   time.Now().Add(-30 * time.Minute),
	}
	lead := repository.LeadRequest{
		ID:           leadID,
		WorkspaceID:  workspaceID,
		Status:       domain.LeadStatusRouted,
		Title:        "Kitchen remodel",
		SoldCount:    soldCount,
		MaxSoldCount: maxSold,
	}
	return match, lead
}

func TestAcceptChargesWalletAndClosesOutLead(t *testing.T) {
	match, lead := pendingMatch(2, 3)
	h := newLifecycleHarness(match, lead, 10000)

	result, err := h.svc.Accept(context.Background(), match.WorkspaceID, match.CompanyID, match.ID, nil)
	if err != nil {
		t.Fatalf("accept failed: %v", err)
	}

	if len(h.ledger.charges) != 1 || h.ledger.charges[0].AmountCents != 4000 {
		t.Fatalf("expected one charge of 4000, got %+v", h.ledger.charges)
	}
	if h.repo.accepted == nil {
		t.Fatal("match was not marked accepted")
	}
	if h.repo.saleStatus == nil || *h.repo.saleStatus != domain.LeadStatusClosed {
		t.Fatalf("third sale must close the lead, got %v", h.repo.saleStatus)
	}
	if !h.repo.siblingsFrozen {
		t.Fatal("closing sale must expire the remaining sibling offers")
	}
	if len(h.counters.accepted) != 1 || h.counters.accepted[0] != match.ProID {
		t.Fatal("provider accepted counter was not bumped")
	}
	if h.repo.tx == nil || !h.repo.tx.committed {
		t.Fatal("accept must commit its transaction")
	}
	if result.BalanceAfterCents != 6000 {
		t.Fatalf("expected balance 6000 after charge, got %d", result.BalanceAfterCents)
	}
	if result.Lead.Status != domain.LeadStatusClosed {
		t.Fatalf("result lead status should be closed, got %s", result.Lead.Status)
	}

	if len(h.bus.published) != 1 {
		t.Fatalf("expected one event, got %d", len(h.bus.published))
	}
	accepted, ok := h.bus.published[0].(events.MatchAccepted)
	if !ok {
		t.Fatalf("expected MatchAccepted, got %T", h.bus.published[0])
	}
	if accepted.BalanceAfterCents != 6000 || accepted.PriceCents != 4000 {
		t.Fatalf("event carries wrong amounts: %+v", accepted)
	}
}

func TestAcceptExpiredOfferCommitsOnlyTheExpiry(t *testing.T) {
	match, lead := pendingMatch(0, 3)
	past := time.Now().Add(-time.Minute)
	match.ExpiresAt = &past
	h := newLifecycleHarness(match, lead, 10000)

	_, err := h.svc.Accept(context.Background(), match.WorkspaceID, match.CompanyID, match.ID, nil)
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request for expired offer, got %v", err)
	}

	if len(h.repo.expired) != 1 || h.repo.expired[0] != match.ID {
		t.Fatal("the expiry must be persisted as the single side effect")
	}
	if len(h.ledger.charges) != 0 {
		t.Fatal("expired accept must not charge the wallet")
	}
	if h.repo.accepted != nil || h.repo.saleStatus != nil {
		t.Fatal("expired accept must not touch match or lead state")
	}
	if h.repo.tx.committed {
		t.Fatal("the accept transaction must not commit")
	}
	if len(h.bus.published) != 0 {
		t.Fatal("no event on a failed accept")
	}
}

func TestAcceptSoldOutLeavesStateUntouched(t *testing.T) {
	match, lead := pendingMatch(3, 3)
	h := newLifecycleHarness(match, lead, 10000)

	_, err := h.svc.Accept(context.Background(), match.WorkspaceID, match.CompanyID, match.ID, nil)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict when the lead is sold out, got %v", err)
	}
	if len(h.ledger.charges) != 0 || h.repo.accepted != nil || h.repo.saleStatus != nil {
		t.Fatal("sold-out accept must not mutate anything")
	}
	if h.repo.tx.committed {
		t.Fatal("the transaction must roll back")
	}
}

func TestAcceptInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	match, lead := pendingMatch(0, 3)
	h := newLifecycleHarness(match, lead, 1500)

	_, err := h.svc.Accept(context.Background(), match.WorkspaceID, match.CompanyID, match.ID, nil)
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request on insufficient balance, got %v", err)
	}
	if len(h.ledger.charges) != 0 || h.repo.accepted != nil || h.repo.saleStatus != nil {
		t.Fatal("failed accept must not mutate anything")
	}
	if len(h.repo.expired) != 0 {
		t.Fatal("a live offer must not be expired by a balance failure")
	}
	if h.repo.tx.committed {
		t.Fatal("the transaction must roll back")
	}
}

func TestAcceptFromTerminalStateIsBadRequest(t *testing.T) {
	match, lead := pendingMatch(0, 3)
	match.Status = domain.MatchStatusDeclined
	h := newLifecycleHarness(match, lead, 10000)

	_, err := h.svc.Accept(context.Background(), match.WorkspaceID, match.CompanyID, match.ID, nil)
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("accepting a declined match must be a bad request, got %v", err)
	}
	if len(h.ledger.charges) != 0 || h.repo.tx.committed {
		t.Fatal("invalid-state accept must not charge or commit")
	}
}

func TestDeclineFromTerminalStateIsBadRequest(t *testing.T) {
	match, lead := pendingMatch(0, 3)
	h := newLifecycleHarness(match, lead, 10000)
	h.repo.declineOK = false

	err := h.svc.Decline(context.Background(), match.WorkspaceID, match.CompanyID, match.ID, nil)
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("declining a settled match must be a bad request, got %v", err)
	}
}

func TestRecordOutcomeRequiresAcceptedMatch(t *testing.T) {
	match, lead := pendingMatch(0, 3)
	h := newLifecycleHarness(match, lead, 10000)

	_, err := h.svc.RecordOutcome(context.Background(), match.WorkspaceID, match.CompanyID, match.ID, domain.MatchStatusWon, nil)
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("outcome on a pending match must be a bad request, got %v", err)
	}
	if h.repo.outcome != nil || h.repo.tx.committed {
		t.Fatal("rejected outcome must not mutate the match")
	}
}

func TestRecordOutcomeWonBumpsProviderCounter(t *testing.T) {
	match, lead := pendingMatch(1, 3)
	match.Status = domain.MatchStatusAccepted
	h := newLifecycleHarness(match, lead, 10000)

	result, err := h.svc.RecordOutcome(context.Background(), match.WorkspaceID, match.CompanyID, match.ID, domain.MatchStatusWon, nil)
	if err != nil {
		t.Fatalf("outcome failed: %v", err)
	}
	if result.Status != domain.MatchStatusWon {
		t.Fatalf("expected won, got %s", result.Status)
	}
	if len(h.counters.won) != 1 || h.counters.won[0] != match.ProID {
		t.Fatal("won counter was not bumped")
	}
	if !h.repo.tx.committed {
		t.Fatal("outcome must commit its transaction")
	}
}

func TestRefundRestoresWalletAndAppendsLedgerEntry(t *testing.T) {
	match, lead := pendingMatch(1, 3)
	match.Status = domain.MatchStatusAccepted
	h := newLifecycleHarness(match, lead, 2000)

	result, err := h.svc.Refund(context.Background(), match.WorkspaceID, match.LeadID, match.ID, nil, "no contact possible")
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}

	if len(h.ledger.refunds) != 1 || h.ledger.refunds[0].AmountCents != match.PriceCents {
		t.Fatalf("expected one full refund of %d, got %+v", match.PriceCents, h.ledger.refunds)
	}
	if h.repo.refundTxID == nil {
		t.Fatal("the refund ledger entry must be linked to the match")
	}
	if result.Status != domain.MatchStatusRefunded {
		t.Fatalf("expected refunded, got %s", result.Status)
	}
	if h.repo.saleStatus != nil {
		t.Fatal("a refund must not change the lead's sold state")
	}
	if !h.repo.tx.committed {
		t.Fatal("refund must commit its transaction")
	}

	if len(h.bus.published) != 1 {
		t.Fatalf("expected one event, got %d", len(h.bus.published))
	}
	refunded, ok := h.bus.published[0].(events.MatchRefunded)
	if !ok {
		t.Fatalf("expected MatchRefunded, got %T", h.bus.published[0])
	}
	if refunded.AmountCents != match.PriceCents || refunded.CompanyID != match.CompanyID {
		t.Fatalf("event carries wrong refund details: %+v", refunded)
	}
}

func TestRefundPartialAmount(t *testing.T) {
	match, lead := pendingMatch(1, 3)
	match.Status = domain.MatchStatusAccepted
	h := newLifecycleHarness(match, lead, 2000)

	partial := int64(1500)
	_, err := h.svc.Refund(context.Background(), match.WorkspaceID, match.LeadID, match.ID, &partial, "late arrival")
	if err != nil {
		t.Fatalf("partial refund failed: %v", err)
	}
	if len(h.ledger.refunds) != 1 || h.ledger.refunds[0].AmountCents != partial {
		t.Fatalf("expected a refund of %d, got %+v", partial, h.ledger.refunds)
	}
	refunded := h.bus.published[0].(events.MatchRefunded)
	if refunded.AmountCents != partial {
		t.Fatalf("event must carry the partial amount, got %d", refunded.AmountCents)
	}
}

func TestRefundRejectsAmountAboveCharge(t *testing.T) {
	match, lead := pendingMatch(1, 3)
	match.Status = domain.MatchStatusAccepted
	h := newLifecycleHarness(match, lead, 2000)

	tooMuch := match.PriceCents + 1
	_, err := h.svc.Refund(context.Background(), match.WorkspaceID, match.LeadID, match.ID, &tooMuch, "oops")
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(h.ledger.refunds) != 0 || h.repo.tx.committed {
		t.Fatal("an over-refund must not touch the wallet")
	}
}

func TestRefundRequiresAcceptedMatch(t *testing.T) {
	match, lead := pendingMatch(1, 3)
	h := newLifecycleHarness(match, lead, 2000)

	_, err := h.svc.Refund(context.Background(), match.WorkspaceID, match.LeadID, match.ID, nil, "not accepted yet")
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("refunding a pending match must be a bad request, got %v", err)
	}
	if len(h.ledger.refunds) != 0 || h.repo.tx.committed {
		t.Fatal("rejected refund must not touch the wallet")
	}
}
