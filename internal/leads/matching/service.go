// Package matching drives the offer lifecycle: viewing, accepting with the
// wallet charge, declining, outcomes, refunds, and quotes.
package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"leadmarket_backend/internal/events"
	"leadmarket_backend/internal/leads/domain"
	"leadmarket_backend/internal/leads/repository"
	"leadmarket_backend/internal/notification"
	providersrepo "leadmarket_backend/internal/providers/repository"
	walletrepo "leadmarket_backend/internal/wallet/repository"
	"leadmarket_backend/platform/apperr"
	"leadmarket_backend/platform/logger"
)

// Wallet is the ledger surface the lifecycle needs.
type Wallet interface {
	GetOrCreate(ctx context.Context, workspaceID, companyID uuid.UUID) (walletrepo.Wallet, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, workspaceID, companyID uuid.UUID) (walletrepo.Wallet, error)
	ApplyCharge(ctx context.Context, tx pgx.Tx, params walletrepo.LedgerParams) (walletrepo.Transaction, error)
	ApplyRefund(ctx context.Context, tx pgx.Tx, params walletrepo.LedgerParams) (walletrepo.Transaction, error)
}

// Providers is the counter surface the lifecycle needs.
type Providers interface {
	IncrementAccepted(ctx context.Context, tx pgx.Tx, proID uuid.UUID) error
	IncrementWon(ctx context.Context, tx pgx.Tx, proID uuid.UUID) error
}

// Repository is the lead/match persistence surface the lifecycle needs.
type Repository interface {
	Begin(ctx context.Context) (pgx.Tx, error)

	ListMatches(ctx context.Context, params repository.ListMatchesParams) ([]repository.MatchWithLead, int, error)
	GetMatchForCompany(ctx context.Context, workspaceID, companyID, matchID uuid.UUID) (repository.MatchWithLead, error)
	MarkViewed(ctx context.Context, workspaceID, companyID, matchID uuid.UUID) (bool, error)
	GetMatchForUpdate(ctx context.Context, tx pgx.Tx, workspaceID, companyID, matchID uuid.UUID) (repository.Match, error)
	GetMatchForUpdateInLead(ctx context.Context, tx pgx.Tx, workspaceID, leadID, matchID uuid.UUID) (repository.Match, error)
	MarkAccepted(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, params repository.MarkAcceptedParams) (repository.Match, error)
	MarkExpired(ctx context.Context, matchID uuid.UUID) error
	ExpireSiblings(ctx context.Context, tx pgx.Tx, leadID, keepMatchID uuid.UUID) ([]uuid.UUID, error)
	Decline(ctx context.Context, workspaceID, companyID, matchID uuid.UUID, reason *string) (bool, error)
	MarkOutcome(ctx context.Context, tx pgx.Tx, matchID uuid.UUID, status domain.MatchStatus, valueCents *int64) (repository.Match, error)
	MarkRefunded(ctx context.Context, tx pgx.Tx, matchID, refundTransactionID uuid.UUID) (repository.Match, error)

	GetLeadForUpdate(ctx context.Context, tx pgx.Tx, leadID uuid.UUID) (repository.LeadRequest, error)
	RecordSale(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, status domain.LeadStatus) error

	LogActivity(ctx context.Context, a repository.Activity) error
	LogActivityTx(ctx context.Context, tx pgx.Tx, a repository.Activity) error
	CreateQuote(ctx context.Context, params repository.CreateQuoteParams) (repository.Quote, error)
	ListExportRows(ctx context.Context, params repository.ListMatchesParams) ([]repository.ExportRow, error)
	GetProviderStats(ctx context.Context, workspaceID, companyID uuid.UUID) (repository.ProviderStats, error)
}

// Service manages match lifecycle transitions. All balance-touching paths
// lock rows in the fixed order match, lead, wallet.
type Service struct {
	repo       Repository
	wallet     Wallet
	providers  Providers
	bus        events.Bus
	dispatcher notification.Dispatcher
	log        *logger.Logger
	now        func() time.Time
}

// New creates a matching service.
func New(repo Repository, wallet Wallet, providers Providers, bus events.Bus, dispatcher notification.Dispatcher, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		wallet:     wallet,
		providers:  providers,
		bus:        bus,
		dispatcher: dispatcher,
		log:        log,
		now:        time.Now,
	}
}

// contactVisible reports whether the provider has paid for the lead and may
// see the consumer's contact details.
func contactVisible(status domain.MatchStatus) bool {
	switch status {
	case domain.MatchStatusAccepted, domain.MatchStatusWon, domain.MatchStatusLost, domain.MatchStatusRefunded:
		return true
	}
	return false
}

// maskLead hides contact details on unpaid matches.
func maskLead(item *repository.MatchWithLead) {
	if contactVisible(item.Match.Status) {
		return
	}
	item.Lead.Phone = nil
	item.Lead.Email = nil
	item.Lead.ConsumerName = ""
}

// ListMatches returns the provider's matches, contact details masked until
// the match is paid.
func (s *Service) ListMatches(ctx context.Context, params repository.ListMatchesParams) ([]repository.MatchWithLead, int, error) {
	if params.Limit < 1 || params.Limit > 100 {
		params.Limit = 25
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	items, total, err := s.repo.ListMatches(ctx, params)
	if err != nil {
		return nil, 0, apperr.Persistence("list matches", err)
	}
	for i := range items {
		maskLead(&items[i])
	}
	return items, total, nil
}

// GetMatch returns one match with its lead, flipping a fresh offer to viewed.
func (s *Service) GetMatch(ctx context.Context, workspaceID, companyID, matchID uuid.UUID) (repository.MatchWithLead, error) {
	viewed, err := s.repo.MarkViewed(ctx, workspaceID, companyID, matchID)
	if err != nil {
		return repository.MatchWithLead{}, apperr.Persistence("view match", err)
	}

	item, err := s.repo.GetMatchForCompany(ctx, workspaceID, companyID, matchID)
	if err != nil {
		return repository.MatchWithLead{}, err
	}

	if viewed {
		if err := s.repo.LogActivity(ctx, repository.Activity{
			WorkspaceID: workspaceID,
			LeadID:      item.Match.LeadID,
			MatchID:     &item.Match.ID,
			CompanyID:   &companyID,
			Type:        "lead_viewed",
			Description: "provider viewed the lead offer",
		}); err != nil {
			s.log.Error("log view activity", "error", err, "matchId", matchID)
		}
	}

	maskLead(&item)
	return item, nil
}

// AcceptResult is the outcome of a successful accept.
type AcceptResult struct {
	Match             repository.Match       `json:"match"`
	Lead              repository.LeadRequest `json:"lead"`
	BalanceAfterCents int64                  `json:"balanceAfterCents"`
}

// Accept charges the provider's wallet and claims a slot on the lead. The
// whole mutation is one transaction over locked rows; an expired offer is the
// one side effect that commits on its own.
func (s *Service) Accept(ctx context.Context, workspaceID, companyID, matchID uuid.UUID, ip *string) (AcceptResult, error) {
	// Ensure the wallet row exists before locking anything.
	if _, err := s.wallet.GetOrCreate(ctx, workspaceID, companyID); err != nil {
		return AcceptResult{}, apperr.Persistence("ensure wallet", err)
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return AcceptResult{}, apperr.Persistence("begin accept", err)
	}
	defer tx.Rollback(ctx)

	match, err := s.repo.GetMatchForUpdate(ctx, tx, workspaceID, companyID, matchID)
	if err != nil {
		return AcceptResult{}, err
	}
	lead, err := s.repo.GetLeadForUpdate(ctx, tx, match.LeadID)
	if err != nil {
		return AcceptResult{}, err
	}
	wallet, err := s.wallet.GetForUpdate(ctx, tx, workspaceID, companyID)
	if err != nil {
		return AcceptResult{}, err
	}

	now := s.now()
	verdict := domain.DecideAccept(match.Status, match.ExpiresAt, now,
		lead.SoldCount, lead.MaxSoldCount, wallet.BalanceCents, match.PriceCents)

	switch verdict {
	case domain.AcceptInvalidState:
		return AcceptResult{}, apperr.BadRequest("match cannot be accepted from its current state")
	case domain.AcceptExpired:
		// Release the locks, then persist the expiry on its own.
		_ = tx.Rollback(ctx)
		if err := s.repo.MarkExpired(ctx, matchID); err != nil {
			s.log.Error("persist match expiry", "error", err, "matchId", matchID)
		}
		return AcceptResult{}, apperr.BadRequest("offer has expired")
	case domain.AcceptSoldOut:
		return AcceptResult{}, apperr.Conflict("lead has been sold to the maximum number of providers")
	case domain.AcceptInsufficientBalance:
		return AcceptResult{}, apperr.BadRequest("insufficient wallet balance").WithDetails(map[string]any{
			"balanceCents":  wallet.BalanceCents,
			"requiredCents": match.PriceCents,
		})
	}

	entry, err := s.wallet.ApplyCharge(ctx, tx, walletrepo.LedgerParams{
		WalletID:    wallet.ID,
		AmountCents: match.PriceCents,
		MatchID:     &match.ID,
		Description: fmt.Sprintf("lead purchase: %s", lead.Title),
	})
	if err != nil {
		return AcceptResult{}, apperr.Persistence("charge wallet", err)
	}

	responseMinutes := int(now.Sub(match.CreatedAt).Minutes())
	match, err = s.repo.MarkAccepted(ctx, tx, match.ID, repository.MarkAcceptedParams{
		ResponseTimeMinutes: responseMinutes,
		CreditTransactionID: entry.ID,
	})
	if err != nil {
		return AcceptResult{}, apperr.Persistence("accept match", err)
	}

	newSold := lead.SoldCount + 1
	leadStatus := domain.LeadStatusPartial
	if newSold >= lead.MaxSoldCount {
		leadStatus = domain.LeadStatusClosed
	}
	if err := s.repo.RecordSale(ctx, tx, lead.ID, leadStatus); err != nil {
		return AcceptResult{}, apperr.Persistence("record sale", err)
	}

	if leadStatus == domain.LeadStatusClosed {
		if _, err := s.repo.ExpireSiblings(ctx, tx, lead.ID, match.ID); err != nil {
			return AcceptResult{}, apperr.Persistence("expire sibling offers", err)
		}
	}

	if err := s.providers.IncrementAccepted(ctx, tx, match.ProID); err != nil {
		return AcceptResult{}, apperr.Persistence("update provider counters", err)
	}

	if err := s.repo.LogActivityTx(ctx, tx, repository.Activity{
		WorkspaceID: workspaceID,
		LeadID:      lead.ID,
		MatchID:     &match.ID,
		CompanyID:   &companyID,
		Type:        "lead_accepted",
		Description: "provider accepted the lead",
		Meta: map[string]any{
			"priceCents":        match.PriceCents,
			"balanceAfterCents": entry.BalanceAfterCents,
		},
		IP: ip,
	}); err != nil {
		return AcceptResult{}, apperr.Persistence("log accept", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return AcceptResult{}, apperr.Persistence("commit accept", err)
	}

	s.bus.Publish(ctx, events.MatchAccepted{
		BaseEvent:         events.NewBaseEvent(),
		MatchID:           match.ID,
		LeadID:            lead.ID,
		WorkspaceID:       workspaceID,
		CompanyID:         companyID,
		PriceCents:        match.PriceCents,
		BalanceAfterCents: entry.BalanceAfterCents,
	})

	lead.SoldCount = newSold
	lead.Status = leadStatus
	s.log.Info("match accepted",
		"matchId", match.ID,
		"leadId", lead.ID,
		"priceCents", match.PriceCents,
		"balanceAfterCents", entry.BalanceAfterCents,
	)
	return AcceptResult{Match: match, Lead: lead, BalanceAfterCents: entry.BalanceAfterCents}, nil
}

// Decline turns down a pending offer.
func (s *Service) Decline(ctx context.Context, workspaceID, companyID, matchID uuid.UUID, reason *string) error {
	ok, err := s.repo.Decline(ctx, workspaceID, companyID, matchID, reason)
	if err != nil {
		return apperr.Persistence("decline match", err)
	}
	if !ok {
		return apperr.BadRequest("match cannot be declined from its current state")
	}

	item, err := s.repo.GetMatchForCompany(ctx, workspaceID, companyID, matchID)
	if err == nil {
		if logErr := s.repo.LogActivity(ctx, repository.Activity{
			WorkspaceID: workspaceID,
			LeadID:      item.Match.LeadID,
			MatchID:     &matchID,
			CompanyID:   &companyID,
			Type:        "lead_declined",
			Description: "provider declined the lead",
		}); logErr != nil {
			s.log.Error("log decline activity", "error", logErr, "matchId", matchID)
		}
	}
	return nil
}

// RecordOutcome closes the loop on an accepted match: won or lost.
func (s *Service) RecordOutcome(ctx context.Context, workspaceID, companyID, matchID uuid.UUID, outcome domain.MatchStatus, valueCents *int64) (repository.Match, error) {
	if outcome != domain.MatchStatusWon && outcome != domain.MatchStatusLost {
		return repository.Match{}, apperr.Validation("outcome must be won or lost")
	}
	if valueCents != nil && *valueCents < 0 {
		return repository.Match{}, apperr.Validation("outcome value cannot be negative")
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return repository.Match{}, apperr.Persistence("begin outcome", err)
	}
	defer tx.Rollback(ctx)

	match, err := s.repo.GetMatchForUpdate(ctx, tx, workspaceID, companyID, matchID)
	if err != nil {
		return repository.Match{}, err
	}
	if !domain.CanTransition(match.Status, outcome) {
		return repository.Match{}, apperr.BadRequest("outcome can only be recorded on an accepted match")
	}

	match, err = s.repo.MarkOutcome(ctx, tx, match.ID, outcome, valueCents)
	if err != nil {
		return repository.Match{}, apperr.Persistence("record outcome", err)
	}

	if outcome == domain.MatchStatusWon {
		if err := s.providers.IncrementWon(ctx, tx, match.ProID); err != nil {
			return repository.Match{}, apperr.Persistence("update provider counters", err)
		}
	}

	if err := s.repo.LogActivityTx(ctx, tx, repository.Activity{
		WorkspaceID: workspaceID,
		LeadID:      match.LeadID,
		MatchID:     &match.ID,
		CompanyID:   &companyID,
		Type:        "lead_outcome",
		Description: "provider recorded the outcome",
		Meta:        map[string]any{"outcome": string(outcome)},
	}); err != nil {
		return repository.Match{}, apperr.Persistence("log outcome", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return repository.Match{}, apperr.Persistence("commit outcome", err)
	}
	return match, nil
}

// Refund is a workspace-side action on a lead: it returns the charge of an
// accepted match to the provider's wallet, in full or in part. It runs in its
// own transaction with the same lock order as Accept. The lead's sold count
// is deliberately left untouched: a refunded slot is not resold.
func (s *Service) Refund(ctx context.Context, workspaceID, leadID, matchID uuid.UUID, amountCents *int64, reason string) (repository.Match, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return repository.Match{}, apperr.Persistence("begin refund", err)
	}
	defer tx.Rollback(ctx)

	match, err := s.repo.GetMatchForUpdateInLead(ctx, tx, workspaceID, leadID, matchID)
	if err != nil {
		return repository.Match{}, err
	}
	if match.Status != domain.MatchStatusAccepted {
		return repository.Match{}, apperr.BadRequest("only accepted matches can be refunded")
	}

	refundCents := match.PriceCents
	if amountCents != nil {
		refundCents = *amountCents
	}
	if refundCents <= 0 || refundCents > match.PriceCents {
		return repository.Match{}, apperr.Validation("refund amount must be positive and at most the charged price")
	}

	wallet, err := s.wallet.GetForUpdate(ctx, tx, workspaceID, match.CompanyID)
	if err != nil {
		return repository.Match{}, err
	}

	entry, err := s.wallet.ApplyRefund(ctx, tx, walletrepo.LedgerParams{
		WalletID:    wallet.ID,
		AmountCents: refundCents,
		MatchID:     &match.ID,
		Description: "lead refund: " + reason,
	})
	if err != nil {
		return repository.Match{}, apperr.Persistence("refund wallet", err)
	}

	match, err = s.repo.MarkRefunded(ctx, tx, match.ID, entry.ID)
	if err != nil {
		return repository.Match{}, apperr.Persistence("mark refunded", err)
	}

	if err := s.repo.LogActivityTx(ctx, tx, repository.Activity{
		WorkspaceID: workspaceID,
		LeadID:      match.LeadID,
		MatchID:     &match.ID,
		CompanyID:   &match.CompanyID,
		Type:        "lead_refunded",
		Description: "match refunded",
		Meta:        map[string]any{"amountCents": refundCents, "reason": reason},
	}); err != nil {
		return repository.Match{}, apperr.Persistence("log refund", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return repository.Match{}, apperr.Persistence("commit refund", err)
	}

	s.bus.Publish(ctx, events.MatchRefunded{
		BaseEvent:   events.NewBaseEvent(),
		MatchID:     match.ID,
		LeadID:      match.LeadID,
		WorkspaceID: workspaceID,
		CompanyID:   match.CompanyID,
		AmountCents: refundCents,
	})
	return match, nil
}

// SendQuote records a quote on a paid match and emails the consumer.
func (s *Service) SendQuote(ctx context.Context, workspaceID, companyID, matchID uuid.UUID, amountCents int64, message string) (repository.Quote, error) {
	if amountCents <= 0 {
		return repository.Quote{}, apperr.Validation("quote amount must be positive")
	}

	item, err := s.repo.GetMatchForCompany(ctx, workspaceID, companyID, matchID)
	if err != nil {
		return repository.Quote{}, err
	}
	if !contactVisible(item.Match.Status) || item.Match.Status == domain.MatchStatusRefunded {
		return repository.Quote{}, apperr.BadRequest("quotes can only be sent on accepted matches")
	}

	quote, err := s.repo.CreateQuote(ctx, repository.CreateQuoteParams{
		MatchID:     item.Match.ID,
		LeadID:      item.Match.LeadID,
		ProID:       item.Match.ProID,
		AmountCents: amountCents,
		Message:     message,
	})
	if err != nil {
		return repository.Quote{}, apperr.Persistence("create quote", err)
	}

	if err := s.repo.LogActivity(ctx, repository.Activity{
		WorkspaceID: workspaceID,
		LeadID:      item.Match.LeadID,
		MatchID:     &item.Match.ID,
		CompanyID:   &companyID,
		Type:        "quote_sent",
		Description: "provider sent a quote",
		Meta:        map[string]any{"amountCents": amountCents},
	}); err != nil {
		s.log.Error("log quote activity", "error", err, "matchId", matchID)
	}

	if item.Lead.Email != nil {
		msg := notification.Message{
			To:      *item.Lead.Email,
			Subject: "You received a quote for your request",
			Body:    fmt.Sprintf("A provider sent you a quote of %.2f for %q.\n\n%s", float64(amountCents)/100, item.Lead.Title, message),
		}
		if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
			s.log.NotifyError("quote_sent", err)
		}
	}
	return quote, nil
}

// ExportRows returns the provider's matches flattened for a CSV download,
// using the same filters as the listing.
func (s *Service) ExportRows(ctx context.Context, params repository.ListMatchesParams) ([]repository.ExportRow, error) {
	rows, err := s.repo.ListExportRows(ctx, params)
	if err != nil {
		return nil, apperr.Persistence("export matches", err)
	}
	return rows, nil
}

// ProviderStats returns the caller's marketplace performance summary.
func (s *Service) ProviderStats(ctx context.Context, workspaceID, companyID uuid.UUID) (repository.ProviderStats, error) {
	stats, err := s.repo.GetProviderStats(ctx, workspaceID, companyID)
	if err != nil {
		return repository.ProviderStats{}, apperr.Persistence("provider stats", err)
	}
	return stats, nil
}

var _ Repository = (*repository.Repo)(nil)
var _ Wallet = (*walletrepo.Repo)(nil)
var _ Providers = (*providersrepo.Repo)(nil)
