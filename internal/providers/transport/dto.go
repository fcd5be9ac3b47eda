// Package transport defines request DTOs for provider management.
package transport

import "github.com/google/uuid"

// RegisterRequest is the body for registering the caller's company as a pro.
type RegisterRequest struct {
	CompanyName  string `json:"companyName" validate:"required,max=160"`
	ContactEmail string `json:"contactEmail" validate:"required,email"`
	ContactPhone string `json:"contactPhone" validate:"omitempty,max=32"`
}

// UpdateProfileRequest is the body for updating the pro's profile.
type UpdateProfileRequest struct {
	CompanyName  string `json:"companyName" validate:"required,max=160"`
	ContactEmail string `json:"contactEmail" validate:"required,email"`
	ContactPhone string `json:"contactPhone" validate:"omitempty,max=32"`
	IsActive     bool   `json:"isActive"`
}

// ReplaceOfferingsRequest swaps the pro's offered services.
type ReplaceOfferingsRequest struct {
	ServiceIDs []uuid.UUID `json:"serviceIds" validate:"required,min=1,dive,required"`
}

// AreaRequest is one circular service area.
type AreaRequest struct {
	Name     string  `json:"name" validate:"required,max=120"`
	Lat      float64 `json:"lat" validate:"min=-90,max=90"`
	Lng      float64 `json:"lng" validate:"min=-180,max=180"`
	RadiusKm float64 `json:"radiusKm" validate:"gt=0,max=500"`
}

// ReplaceAreasRequest swaps the pro's service areas. Empty means serve anywhere.
type ReplaceAreasRequest struct {
	Areas []AreaRequest `json:"areas" validate:"dive"`
}

// PreferencesRequest writes the pro's lead filters.
type PreferencesRequest struct {
	MinBudgetCents     int64 `json:"minBudgetCents" validate:"min=0"`
	PauseAtZeroBalance bool  `json:"pauseAtZeroBalance"`
	MaxLeadsPerDay     int   `json:"maxLeadsPerDay" validate:"min=0"`
}
