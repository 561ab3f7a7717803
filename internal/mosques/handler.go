package mosques

import (
	"github.com/gin-gonic/gin"

	"github.com/noor-academy/backend/internal/middleware"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/response"
)

// CreateRequest is the body for POST /mosques.
type CreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Address     string `json:"address"`
	PicturePath string `json:"picture_path"`
}

// Handler handles mosque HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a mosques handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /mosques.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Create handles POST /mosques.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	m, err := h.svc.Create(c.Request.Context(), middleware.CurrentIdentity(c), models.NewMosque{
		Name:        req.Name,
		Address:     req.Address,
		PicturePath: req.PicturePath,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}
