package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noor-academy/backend/internal/identity"
	"github.com/noor-academy/backend/pkg/response"
)

const (
	// ContextIdentity is the key for the authenticated *identity.Identity in gin context.
	ContextIdentity = "identity"
	// ContextRole is the key for the role resolved by RequireRole. It is for
	// view assembly only; services resolve the role again before mutating.
	ContextRole = "role"
)

// Identity authenticates the request and stores the caller's identity in
// context. Requests without credentials continue anonymously; invalid
// credentials are rejected.
func Identity(auth identity.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := auth.Authenticate(c.Request.Context(), c.Request)
		if err != nil {
			response.Abort(c, err)
			return
		}
		if id != nil {
			c.Set(ContextIdentity, id)
		}
		c.Next()
	}
}

// RequireIdentity rejects anonymous requests.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentIdentity(c) == nil {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the authenticated caller, or nil.
func CurrentIdentity(c *gin.Context) *identity.Identity {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return nil
	}
	id, _ := v.(*identity.Identity)
	return id
}
