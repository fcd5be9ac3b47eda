// Package transport defines request DTOs for pricing rule administration.
package transport

import "github.com/google/uuid"

// RuleRequest is the body for creating or updating a pricing rule.
// Monetary fields are whole cents.
type RuleRequest struct {
	Name                string     `json:"name" validate:"required,max=120"`
	ServiceID           *uuid.UUID `json:"serviceId"`
	PostalCode          *string    `json:"postalCode" validate:"omitempty,max=16"`
	Timing              *string    `json:"timing" validate:"omitempty,oneof=asap within_24h this_week flexible planning"`
	BasePriceCents      int64      `json:"basePriceCents" validate:"min=0"`
	SurgeMultiplier     float64    `json:"surgeMultiplier" validate:"min=0"`
	ExclusiveMultiplier float64    `json:"exclusiveMultiplier" validate:"min=0"`
	Priority            int        `json:"priority"`
	IsActive            bool       `json:"isActive"`
}
