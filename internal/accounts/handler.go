package accounts

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noor-academy/backend/internal/middleware"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/response"
)

// UpdateRoleRequest is the body for PATCH /admin/users/:id/role.
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// MeResponse is the GET /me payload. NeedsSetup is true until an admin
// assigns a role.
type MeResponse struct {
	Account    *models.Account `json:"account"`
	Role       models.Role     `json:"role"`
	NeedsSetup bool            `json:"needs_setup"`
}

// Handler handles account HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates an accounts handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Me handles GET /me.
func (h *Handler) Me(c *gin.Context) {
	acc, role, err := h.svc.Me(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, MeResponse{Account: acc, Role: role, NeedsSetup: role == models.RoleUnknown})
}

// List handles GET /admin/users.
func (h *Handler) List(c *gin.Context) {
	groups, err := h.svc.ListAccounts(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, groups)
}

// Teachers handles GET /teachers.
func (h *Handler) Teachers(c *gin.Context) {
	list, err := h.svc.ListTeachers(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// UpdateRole handles PATCH /admin/users/:id/role.
func (h *Handler) UpdateRole(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	acc, err := h.svc.UpdateRole(c.Request.Context(), middleware.CurrentIdentity(c), targetID, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, acc)
}
