// Package dashboard assembles the per-role home view.
package dashboard

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noor-academy/backend/internal/identity"
	"github.com/noor-academy/backend/internal/middleware"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/response"
)

// Catalog lists programs.
type Catalog interface {
	ListActivePrograms(ctx context.Context) ([]models.Program, error)
	ListProgramsForTeacher(ctx context.Context, caller *identity.Identity, teacherID *uuid.UUID) ([]models.Program, error)
}

// Enrollments lists a student's programs.
type Enrollments interface {
	ListEnrollmentsForStudent(ctx context.Context, caller *identity.Identity, studentID *uuid.UUID) ([]models.EnrolledProgram, error)
}

// Accounts lists accounts for the admin view.
type Accounts interface {
	ListAccounts(ctx context.Context, caller *identity.Identity) (models.AccountsByRole, error)
}

// Summary is the GET /dashboard payload. Only the sections for the caller's
// role are set.
type Summary struct {
	Role             models.Role              `json:"role"`
	Enrolled         []models.EnrolledProgram `json:"enrolled,omitempty"`
	Catalog          []models.Program         `json:"catalog,omitempty"`
	Leading          []models.Program         `json:"leading,omitempty"`
	TotalEnrollments *int                     `json:"total_enrollments,omitempty"`
	Accounts         *models.AccountsByRole   `json:"accounts,omitempty"`
}

// Handler handles GET /dashboard.
type Handler struct {
	catalog     Catalog
	enrollments Enrollments
	accounts    Accounts
}

// NewHandler creates a dashboard handler.
func NewHandler(catalog Catalog, enrollments Enrollments, accounts Accounts) *Handler {
	return &Handler{catalog: catalog, enrollments: enrollments, accounts: accounts}
}

// Get handles GET /dashboard. The route is behind middleware.RequireRole,
// which stores the resolved role; each section's service checks it again.
func (h *Handler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	caller := middleware.CurrentIdentity(c)
	role, _ := c.Get(middleware.ContextRole)
	out := Summary{}
	out.Role, _ = role.(models.Role)

	var err error
	switch out.Role {
	case models.RoleStudent:
		if out.Enrolled, err = h.enrollments.ListEnrollmentsForStudent(ctx, caller, nil); err != nil {
			break
		}
		out.Catalog, err = h.catalog.ListActivePrograms(ctx)
	case models.RoleTeacher:
		if out.Leading, err = h.catalog.ListProgramsForTeacher(ctx, caller, nil); err != nil {
			break
		}
		total := 0
		for _, p := range out.Leading {
			total += p.EnrollmentCount
		}
		out.TotalEnrollments = &total
	case models.RoleAdmin:
		var groups models.AccountsByRole
		if groups, err = h.accounts.ListAccounts(ctx, caller); err != nil {
			break
		}
		out.Accounts = &groups
		out.Catalog, err = h.catalog.ListActivePrograms(ctx)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}
