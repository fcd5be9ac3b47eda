// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity represents the authenticated caller. The workspace ID is the
// tenancy scoping key for every core call; the company ID is present when the
// caller acts as a provider.
type Identity interface {
	UserID() uuid.UUID
	WorkspaceID() *uuid.UUID
	CompanyID() *uuid.UUID
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	workspaceID   *uuid.UUID
	companyID     *uuid.UUID
	authenticated bool
}

func (i *identity) UserID() uuid.UUID       { return i.userID }
func (i *identity) WorkspaceID() *uuid.UUID { return i.workspaceID }
func (i *identity) CompanyID() *uuid.UUID   { return i.companyID }
func (i *identity) IsAuthenticated() bool   { return i.authenticated }

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if user info is not present.
func GetIdentity(c *gin.Context) Identity {
	userID, ok := c.Get(ContextUserIDKey)
	if !ok {
		return &identity{authenticated: false}
	}

	uid, ok := userID.(uuid.UUID)
	if !ok {
		return &identity{authenticated: false}
	}

	id := &identity{userID: uid, authenticated: true}

	if v, ok := c.Get(ContextWorkspaceIDKey); ok {
		if ws, ok := v.(uuid.UUID); ok {
			id.workspaceID = &ws
		}
	}
	if v, ok := c.Get(ContextCompanyIDKey); ok {
		if company, ok := v.(uuid.UUID); ok {
			id.companyID = &company
		}
	}

	return id
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the user is not authenticated, it aborts with 401 Unauthorized and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}

// MustGetWorkspaceID returns the caller's workspace scope or aborts with 403.
func MustGetWorkspaceID(c *gin.Context) (uuid.UUID, bool) {
	id := MustGetIdentity(c)
	if id == nil {
		return uuid.Nil, false
	}
	ws := id.WorkspaceID()
	if ws == nil {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "no workspace context"})
		return uuid.Nil, false
	}
	return *ws, true
}

// MustGetCompanyID returns the caller's provider company scope or aborts with 400.
func MustGetCompanyID(c *gin.Context) (uuid.UUID, bool) {
	id := MustGetIdentity(c)
	if id == nil {
		return uuid.Nil, false
	}
	company := id.CompanyID()
	if company == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "company context required"})
		return uuid.Nil, false
	}
	return *company, true
}
