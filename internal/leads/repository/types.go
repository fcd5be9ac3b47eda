// Package repository persists lead requests, matches, quotes, the activity
// log, and the routing queue.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leadmarket_backend/internal/leads/domain"
)

// Repo provides lead persistence backed by Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a leads repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Begin opens a transaction on the underlying pool so the match lifecycle can
// own its critical sections.
func (r *Repo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// LeadRequest is a consumer's request for a service, as stored.
type LeadRequest struct {
	ID             uuid.UUID         `json:"id"`
	WorkspaceID    uuid.UUID         `json:"workspaceId"`
	Status         domain.LeadStatus `json:"status"`
	ConsumerName   string            `json:"consumerName"`
	Phone          *string           `json:"phone,omitempty"`
	Email          *string           `json:"email,omitempty"`
	PostalCode     *string           `json:"postalCode,omitempty"`
	City           *string           `json:"city,omitempty"`
	Region         *string           `json:"region,omitempty"`
	Lat            *float64          `json:"lat,omitempty"`
	Lng            *float64          `json:"lng,omitempty"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Answers        map[string]string `json:"answers,omitempty"`
	Timing         domain.Timing     `json:"timing"`
	BudgetMinCents *int64            `json:"budgetMinCents,omitempty"`
	BudgetMaxCents *int64            `json:"budgetMaxCents,omitempty"`
	IsExclusive    bool              `json:"isExclusive"`
	MaxSoldCount   int               `json:"maxSoldCount"`
	SoldCount      int               `json:"soldCount"`
	QualityScore   int               `json:"qualityScore"`
	QualityReasons []string          `json:"qualityReasons,omitempty"`
	PriceCents     int64             `json:"priceCents"`
	PricingRuleID  *uuid.UUID        `json:"pricingRuleId,omitempty"`
	Source         *string           `json:"source,omitempty"`
	RoutedAt       *time.Time        `json:"routedAt,omitempty"`
	ExpiresAt      *time.Time        `json:"expiresAt,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`

	ServiceIDs []uuid.UUID `json:"serviceIds,omitempty"`
}

// Match is one offer of a lead to one provider.
type Match struct {
	ID                  uuid.UUID          `json:"id"`
	WorkspaceID         uuid.UUID          `json:"workspaceId"`
	LeadID              uuid.UUID          `json:"leadId"`
	ProID               uuid.UUID          `json:"proId"`
	CompanyID           uuid.UUID          `json:"companyId"`
	Status              domain.MatchStatus `json:"status"`
	PriceCents          int64              `json:"priceCents"`
	DistanceKm          *float64           `json:"distanceKm,omitempty"`
	RankScore           float64            `json:"rankScore"`
	ExpiresAt           *time.Time         `json:"expiresAt,omitempty"`
	ViewedAt            *time.Time         `json:"viewedAt,omitempty"`
	AcceptedAt          *time.Time         `json:"acceptedAt,omitempty"`
	DeclinedAt          *time.Time         `json:"declinedAt,omitempty"`
	WonAt               *time.Time         `json:"wonAt,omitempty"`
	LostAt              *time.Time         `json:"lostAt,omitempty"`
	ResponseTimeMinutes *int               `json:"responseTimeMinutes,omitempty"`
	DeclineReason       *string            `json:"declineReason,omitempty"`
	OutcomeValueCents   *int64             `json:"outcomeValueCents,omitempty"`
	CreditTransactionID *uuid.UUID         `json:"creditTransactionId,omitempty"`
	RefundTransactionID *uuid.UUID         `json:"refundTransactionId,omitempty"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

// Quote is a provider's price quote sent to a consumer for an accepted match.
type Quote struct {
	ID          uuid.UUID `json:"id"`
	MatchID     uuid.UUID `json:"matchId"`
	LeadID      uuid.UUID `json:"leadId"`
	ProID       uuid.UUID `json:"proId"`
	AmountCents int64     `json:"amountCents"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Activity is one append-only audit entry for a lead.
type Activity struct {
	ID          uuid.UUID      `json:"id"`
	WorkspaceID uuid.UUID      `json:"workspaceId"`
	LeadID      uuid.UUID      `json:"leadId"`
	MatchID     *uuid.UUID     `json:"matchId,omitempty"`
	CompanyID   *uuid.UUID     `json:"companyId,omitempty"`
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Meta        map[string]any `json:"meta,omitempty"`
	IP          *string        `json:"ip,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Candidate is one provider considered by the routing engine, joined with its
// preferences and wallet balance.
type Candidate struct {
	ProID              uuid.UUID
	CompanyID          uuid.UUID
	CompanyName        string
	ContactEmail       string
	MinBudgetCents     int64
	PauseAtZeroBalance bool
	BalanceCents       int64
	Areas              []CandidateArea
}

// CandidateArea is one service area of a candidate.
type CandidateArea struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
}

// Routing queue statuses.
const (
	QueueStatusPending = "pending"
	QueueStatusDone    = "done"
	QueueStatusFailed  = "failed"
)
