// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Role names carried in access token claims.
const (
	RoleCommissioner = "commissioner"
	RoleFreelancer   = "freelancer"
)

// Identity represents the authenticated actor's identity.
// This interface abstracts identity extraction from the web framework,
// allowing handlers to access actor information without depending on Gin.
type Identity interface {
	// UserID returns the authenticated actor's ID.
	UserID() uuid.UUID
	// Roles returns the actor's assigned roles.
	Roles() []string
	// HasRole checks if the actor has a specific role.
	HasRole(role string) bool
	// IsAuthenticated returns true if the actor is authenticated.
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	roles         []string
	authenticated bool
}

func (i *identity) UserID() uuid.UUID { return i.userID }

func (i *identity) Roles() []string { return i.roles }

func (i *identity) HasRole(role string) bool {
	for _, r := range i.roles {
		if r == role {
			return true
		}
	}
	return false
}

func (i *identity) IsAuthenticated() bool { return i.authenticated }

const identityContextKey = "httpkit.identity"

// NewIdentity constructs an authenticated identity value.
func NewIdentity(userID uuid.UUID, roles []string) Identity {
	return &identity{userID: userID, roles: roles, authenticated: true}
}

// SetIdentity stores the identity in the Gin context. Called by the auth middleware.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(identityContextKey, id)
}

// GetIdentity extracts the identity from the Gin context.
// Returns an unauthenticated identity if none was set.
func GetIdentity(c *gin.Context) Identity {
	if v, ok := c.Get(identityContextKey); ok {
		if id, ok := v.(Identity); ok {
			return id
		}
	}
	return &identity{}
}

// MustGetUserID extracts the authenticated user ID or aborts with 401.
// Returns false if the request was aborted.
func MustGetUserID(c *gin.Context) (uuid.UUID, bool) {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		c.Abort()
		return uuid.Nil, false
	}
	return id.UserID(), true
}
