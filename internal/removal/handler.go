package removal

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noor-academy/backend/internal/middleware"
	"github.com/noor-academy/backend/pkg/response"
)

// RemoveRequest is the optional body for DELETE /admin/users/:id.
type RemoveRequest struct {
	Reason string `json:"reason"`
}

// Handler handles account removal endpoints.
type Handler struct {
	protocol *Protocol
}

// NewHandler creates a removal handler.
func NewHandler(protocol *Protocol) *Handler {
	return &Handler{protocol: protocol}
}

// Remove handles DELETE /admin/users/:id.
func (h *Handler) Remove(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req RemoveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	snap, err := h.protocol.RemoveUser(c.Request.Context(), middleware.CurrentIdentity(c), targetID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, snap)
}

// RetryRevocation handles POST /admin/users/:id/revoke.
func (h *Handler) RetryRevocation(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	if err := h.protocol.RetryRevocation(c.Request.Context(), middleware.CurrentIdentity(c), targetID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"account_id": targetID, "revoked": true})
}
