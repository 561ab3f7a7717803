package enrollments

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noor-academy/backend/internal/middleware"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/response"
)

// Handler handles enrollment HTTP endpoints.
type Handler struct {
	lifecycle *Lifecycle
}

// NewHandler creates an enrollments handler.
func NewHandler(lifecycle *Lifecycle) *Handler {
	return &Handler{lifecycle: lifecycle}
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// Enroll handles POST /programs/:id/enroll. A new enrollment is 201; an
// existing one is returned with 200.
func (h *Handler) Enroll(c *gin.Context) {
	programID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.lifecycle.Enroll(c.Request.Context(), middleware.CurrentIdentity(c), programID)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if res.Changed {
		status = http.StatusCreated
	}
	c.JSON(status, response.Body{Success: true, Data: res})
}

// Withdraw handles DELETE /programs/:id/enroll.
func (h *Handler) Withdraw(c *gin.Context) {
	programID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.lifecycle.Withdraw(c.Request.Context(), middleware.CurrentIdentity(c), programID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// ListMine handles GET /me/enrollments. Admins may pass ?student_id=.
func (h *Handler) ListMine(c *gin.Context) {
	var studentID *uuid.UUID
	if raw := c.Query("student_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid student_id")
			return
		}
		studentID = &id
	}
	list, err := h.lifecycle.ListEnrollmentsForStudent(c.Request.Context(), middleware.CurrentIdentity(c), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Roster handles GET /programs/:id/enrollments (lead teacher or admin).
func (h *Handler) Roster(c *gin.Context) {
	programID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	list, err := h.lifecycle.ListEnrollmentsForProgram(c.Request.Context(), middleware.CurrentIdentity(c), programID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Approve handles POST /programs/:id/enrollments/:student_id/approve.
func (h *Handler) Approve(c *gin.Context) {
	h.decide(c, models.EnrollmentActive)
}

// Reject handles POST /programs/:id/enrollments/:student_id/reject.
func (h *Handler) Reject(c *gin.Context) {
	h.decide(c, models.EnrollmentRejected)
}

func (h *Handler) decide(c *gin.Context, to models.EnrollmentStatus) {
	programID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	studentID, ok := paramUUID(c, "student_id")
	if !ok {
		return
	}
	decide := h.lifecycle.Approve
	if to == models.EnrollmentRejected {
		decide = h.lifecycle.Reject
	}
	e, err := decide(c.Request.Context(), middleware.CurrentIdentity(c), studentID, programID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, e)
}
