package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noor-academy/backend/internal/guard"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/response"
)

// RequireRole is the coarse, route-level check: it keeps callers outside roles
// from reaching a handler at all. The service behind the handler re-checks
// through the same guard immediately before any mutation.
func RequireRole(g *guard.Guard, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth, err := g.Require(c.Request.Context(), CurrentIdentity(c), roles...)
		if err != nil {
			response.Abort(c, err)
			return
		}
		c.Set(ContextRole, auth.Role)
		c.Next()
	}
}
