package programs

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noor-academy/backend/internal/identity"
	"github.com/noor-academy/backend/internal/middleware"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/response"
)

// EnrollmentOverlay reports which programs the caller is enrolled in.
type EnrollmentOverlay interface {
	EnrolledProgramIDs(ctx context.Context, caller *identity.Identity) ([]uuid.UUID, error)
}

// CreateRequest is the body for POST /programs.
type CreateRequest struct {
	Title         string            `json:"title" binding:"required"`
	Description   string            `json:"description"`
	Location      string            `json:"location"`
	LeadTeacherID *uuid.UUID        `json:"lead_teacher_id"`
	PriceMonthly  string            `json:"price_monthly"`
	ThumbnailPath string            `json:"thumbnail_path"`
	MosqueMode    string            `json:"mosque_mode"`
	MosqueID      *uuid.UUID        `json:"mosque_id"`
	NewMosque     *models.NewMosque `json:"new_mosque"`
}

// CatalogView is the GET /programs payload.
type CatalogView struct {
	Programs           []models.Program `json:"programs"`
	EnrolledProgramIDs []uuid.UUID      `json:"enrolled_program_ids"`
}

// Handler handles program HTTP endpoints.
type Handler struct {
	catalog *Catalog
	overlay EnrollmentOverlay
	logger  *zap.Logger
}

// NewHandler creates a programs handler. overlay may be nil.
func NewHandler(catalog *Catalog, overlay EnrollmentOverlay, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{catalog: catalog, overlay: overlay, logger: logger}
}

// List handles GET /programs. Public; signed-in callers also get the ids of
// the programs they are enrolled in.
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := h.catalog.ListActivePrograms(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	view := CatalogView{Programs: list, EnrolledProgramIDs: []uuid.UUID{}}
	if id := middleware.CurrentIdentity(c); id != nil && h.overlay != nil {
		ids, err := h.overlay.EnrolledProgramIDs(ctx, id)
		if err != nil {
			// The listing is still useful without the overlay.
			h.logger.Warn("enrolled ids unavailable", zap.String("account_id", id.AccountID.String()), zap.Error(err))
		} else {
			view.EnrolledProgramIDs = ids
		}
	}
	response.OK(c, view)
}

// Get handles GET /programs/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid program id")
		return
	}
	p, err := h.catalog.GetProgram(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Create handles POST /programs (teacher or admin).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.catalog.CreateProgram(c.Request.Context(), middleware.CurrentIdentity(c), models.NewProgram{
		Title:         req.Title,
		Description:   req.Description,
		Location:      req.Location,
		LeadTeacherID: req.LeadTeacherID,
		PriceMonthly:  req.PriceMonthly,
		ThumbnailPath: req.ThumbnailPath,
		MosqueMode:    req.MosqueMode,
		MosqueID:      req.MosqueID,
		NewMosque:     req.NewMosque,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

// Deactivate handles POST /programs/:id/deactivate (lead teacher or admin).
func (h *Handler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid program id")
		return
	}
	p, err := h.catalog.DeactivateProgram(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// ListMine handles GET /teacher/programs. Admins may pass ?teacher_id=.
func (h *Handler) ListMine(c *gin.Context) {
	var teacherID *uuid.UUID
	if raw := c.Query("teacher_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid teacher_id")
			return
		}
		teacherID = &id
	}
	list, err := h.catalog.ListProgramsForTeacher(c.Request.Context(), middleware.CurrentIdentity(c), teacherID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}
