// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadmarket_backend/platform/events"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience.
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions.
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadSubmitted is published after a lead request is persisted (spam included;
// spam leads are never routed but still raise the event for audit consumers).
type LeadSubmitted struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	WorkspaceID  uuid.UUID `json:"workspaceId"`
	QualityScore float64   `json:"qualityScore"`
	IsSpam       bool      `json:"isSpam"`
	PriceCents   int64     `json:"priceCents"`
}

func (e LeadSubmitted) EventName() string { return "leads.lead.submitted" }

// LeadRouted is published after the routing engine finishes a lead, whether
// or not any offers were created.
type LeadRouted struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	WorkspaceID uuid.UUID `json:"workspaceId"`
	MatchesMade int       `json:"matchesMade"`
	FinalStatus string    `json:"finalStatus"`
}

func (e LeadRouted) EventName() string { return "leads.lead.routed" }

// MatchAccepted is published after a provider accepts an offer and the wallet
// charge has committed.
type MatchAccepted struct {
	BaseEvent
	MatchID           uuid.UUID `json:"matchId"`
	LeadID            uuid.UUID `json:"leadId"`
	WorkspaceID       uuid.UUID `json:"workspaceId"`
	CompanyID         uuid.UUID `json:"companyId"`
	PriceCents        int64     `json:"priceCents"`
	BalanceAfterCents int64     `json:"balanceAfterCents"`
}

func (e MatchAccepted) EventName() string { return "leads.match.accepted" }

// MatchRefunded is published after an accepted match is refunded.
type MatchRefunded struct {
	BaseEvent
	MatchID     uuid.UUID `json:"matchId"`
	LeadID      uuid.UUID `json:"leadId"`
	WorkspaceID uuid.UUID `json:"workspaceId"`
	CompanyID   uuid.UUID `json:"companyId"`
	AmountCents int64     `json:"amountCents"`
}

func (e MatchRefunded) EventName() string { return "leads.match.refunded" }
