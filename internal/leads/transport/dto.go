// Package transport defines the HTTP request and response shapes for leads.
package transport

import "github.com/google/uuid"

// SubmitLeadRequest is the public intake payload. Contact, dedupe, and budget
// rules are enforced by the intake service; tags cover shape only.
type SubmitLeadRequest struct {
	ConsumerName   string            `json:"consumerName" validate:"omitempty,max=200"`
	Phone          string            `json:"phone" validate:"omitempty,max=32"`
	Email          string            `json:"email" validate:"omitempty,max=254"`
	PostalCode     string            `json:"postalCode" validate:"omitempty,max=16"`
	City           string            `json:"city" validate:"omitempty,max=100"`
	Region         string            `json:"region" validate:"omitempty,max=100"`
	Lat            *float64          `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lng            *float64          `json:"lng" validate:"omitempty,gte=-180,lte=180"`
	Title          string            `json:"title" validate:"required,max=200"`
	Description    string            `json:"description" validate:"omitempty,max=5000"`
	Answers        map[string]string `json:"answers" validate:"omitempty,max=50"`
	Timing         string            `json:"timing" validate:"omitempty,oneof=asap within_24h this_week flexible planning"`
	ServiceIDs     []uuid.UUID       `json:"serviceIds" validate:"required,min=1,max=10"`
	BudgetMinCents *int64            `json:"budgetMinCents" validate:"omitempty,gte=0"`
	BudgetMaxCents *int64            `json:"budgetMaxCents" validate:"omitempty,gte=0"`
	IsExclusive    bool              `json:"isExclusive"`
	MaxSoldCount   int               `json:"maxSoldCount" validate:"omitempty,gte=1,lte=10"`
	Source         string            `json:"source" validate:"omitempty,max=100"`
}

// DeclineRequest turns down an offer, optionally with a reason.
type DeclineRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// OutcomeRequest records the final result of an accepted match.
type OutcomeRequest struct {
	Outcome    string `json:"outcome" validate:"required,oneof=won lost"`
	ValueCents *int64 `json:"valueCents" validate:"omitempty,gte=0"`
}

// RefundRequest is the workspace action returning the charge on an accepted
// match to the provider's wallet. Omitting amountCents refunds the full
// charged price.
type RefundRequest struct {
	LeadMatchID uuid.UUID `json:"leadMatchId" validate:"required"`
	AmountCents *int64    `json:"amountCents" validate:"omitempty,gt=0"`
	Reason      string    `json:"reason" validate:"required,max=500"`
}

// QuoteRequest sends a price quote to the consumer.
type QuoteRequest struct {
	AmountCents int64  `json:"amountCents" validate:"required,gt=0"`
	Message     string `json:"message" validate:"omitempty,max=2000"`
}
