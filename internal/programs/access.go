package programs

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noor-academy/backend/internal/middleware"
	"github.com/noor-academy/backend/pkg/response"
)

// ContextProgram is the context key for the *models.Program loaded by RequireProgramManager.
const ContextProgram = "program"

// RequireProgramManager admits the program's lead teacher and admins to
// routes under /programs/:id. It only decides whether the view is shown;
// the operation behind it checks again before writing.
func RequireProgramManager(catalog *Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		programID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid program id")
			c.Abort()
			return
		}
		_, p, err := catalog.RequireManager(c.Request.Context(), middleware.CurrentIdentity(c), programID)
		if err != nil {
			response.Abort(c, err)
			return
		}
		c.Set(ContextProgram, p)
		c.Next()
	}
}
