// Package transport defines request DTOs for catalog administration.
package transport

import "github.com/google/uuid"

// ServiceRequest is the body for creating or updating a catalog service.
type ServiceRequest struct {
	Name        string     `json:"name" validate:"required,max=160"`
	ParentID    *uuid.UUID `json:"parentId"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	IsActive    bool       `json:"isActive"`
}
