// Package programs is the program catalog: creation, lookup, listing and
// deactivation of programs, with the lead teacher rules that govern them.
package programs

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noor-academy/backend/internal/guard"
	"github.com/noor-academy/backend/internal/identity"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/internal/mosques"
	"github.com/noor-academy/backend/pkg/apperr"
	"github.com/noor-academy/backend/pkg/cache"
)

// maxPrice is the largest value numeric(10,2) holds.
const maxPrice = 99999999.99

// Store persists programs.
type Store interface {
	CreateProgram(ctx context.Context, p *models.Program, newMosque *models.Mosque) error
	GetProgram(ctx context.Context, id uuid.UUID) (*models.Program, error)
	ListActivePrograms(ctx context.Context) ([]models.Program, error)
	ListProgramsByLead(ctx context.Context, leadID uuid.UUID) ([]models.Program, error)
	SetProgramActive(ctx context.Context, id uuid.UUID, active bool) (*models.Program, error)
	GetMosque(ctx context.Context, id uuid.UUID) (*models.Mosque, error)
}

// AccountReader looks up the lead teacher's current account row.
type AccountReader interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// Catalog implements program operations.
type Catalog struct {
	store    Store
	accounts AccountReader
	guard    *guard.Guard
	cache    cache.Cache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewCatalog creates a program catalog. Read views are cached in c for ttl.
func NewCatalog(store Store, accounts AccountReader, g *guard.Guard, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{store: store, accounts: accounts, guard: g, cache: c, ttl: ttl, logger: logger}
}

// ParsePrice reads a submitted monthly price. Blank or non-numeric input
// is 0; negative or out-of-range input is rejected. The result is rounded
// to cents.
func ParsePrice(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, nil
	}
	if v < 0 {
		return 0, apperr.Validation("price must not be negative")
	}
	v = math.Round(v*100) / 100
	if v > maxPrice {
		return 0, apperr.Validation("price is too large")
	}
	return v, nil
}

// CreateProgram validates in and creates the program. Admins may name any
// teacher as lead; a teacher always leads the programs they create.
func (c *Catalog) CreateProgram(ctx context.Context, caller *identity.Identity, in models.NewProgram) (*models.Program, error) {
	auth, err := c.guard.Require(ctx, caller, models.RoleAdmin, models.RoleTeacher)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	price, err := ParsePrice(in.PriceMonthly)
	if err != nil {
		return nil, err
	}

	leadID, err := c.leadFor(auth, in.LeadTeacherID)
	if err != nil {
		return nil, err
	}
	if err := c.checkLead(ctx, leadID); err != nil {
		return nil, err
	}

	p := &models.Program{
		Title:         title,
		Description:   strings.TrimSpace(in.Description),
		Location:      strings.TrimSpace(in.Location),
		LeadTeacherID: leadID,
		PriceMonthly:  price,
		ThumbnailPath: strings.TrimSpace(in.ThumbnailPath),
		IsActive:      true,
		CreatedBy:     auth.AccountID,
	}
	newMosque, err := c.mosqueFor(ctx, auth, in, p)
	if err != nil {
		return nil, err
	}
	if err := c.store.CreateProgram(ctx, p, newMosque); err != nil {
		return nil, err
	}
	c.logger.Info("program created",
		zap.String("program_id", p.ID.String()),
		zap.String("lead_teacher_id", leadID.String()),
		zap.String("by", auth.AccountID.String()),
	)
	// The program exists now; a stale listing expires with its ttl.
	if err := cache.Invalidate(ctx, c.cache, cache.CatalogKey, cache.TeacherProgramsKey(leadID)); err != nil {
		c.logger.Error("cache invalidation failed", zap.String("program_id", p.ID.String()), zap.Error(err))
	}
	return p, nil
}

func (c *Catalog) leadFor(auth guard.Authorized, requested *uuid.UUID) (uuid.UUID, error) {
	if auth.Is(models.RoleTeacher) {
		if requested != nil && *requested != uuid.Nil && *requested != auth.AccountID {
			return uuid.Nil, apperr.Validation("teachers can only create programs they lead")
		}
		return auth.AccountID, nil
	}
	if requested == nil || *requested == uuid.Nil {
		return uuid.Nil, apperr.Validation("lead teacher is required")
	}
	return *requested, nil
}

// checkLead re-reads the lead's account so a demotion since the form was
// rendered is caught here.
func (c *Catalog) checkLead(ctx context.Context, leadID uuid.UUID) error {
	acc, err := c.accounts.GetAccount(ctx, leadID)
	if apperr.Is(err, apperr.KindNotFound) {
		return apperr.Validation("lead teacher not found")
	}
	if err != nil {
		return err
	}
	if acc.Removed || acc.Role != models.RoleTeacher {
		return apperr.Validation("lead teacher must hold the teacher role")
	}
	return nil
}

// mosqueFor sets p.MosqueID for an existing mosque, or returns the mosque to
// insert alongside the program.
func (c *Catalog) mosqueFor(ctx context.Context, auth guard.Authorized, in models.NewProgram, p *models.Program) (*models.Mosque, error) {
	switch strings.TrimSpace(in.MosqueMode) {
	case "", models.MosqueModeExisting:
		if in.MosqueID == nil || *in.MosqueID == uuid.Nil {
			return nil, nil
		}
		m, err := c.store.GetMosque(ctx, *in.MosqueID)
		if err != nil {
			return nil, err
		}
		p.MosqueID = &m.ID
		return nil, nil
	case models.MosqueModeNew:
		if in.NewMosque == nil {
			return nil, apperr.Validation("new mosque details are required")
		}
		nm, err := mosques.Normalize(*in.NewMosque)
		if err != nil {
			return nil, err
		}
		return &models.Mosque{
			Name:        nm.Name,
			Address:     nm.Address,
			PicturePath: nm.PicturePath,
			CreatedBy:   auth.AccountID,
		}, nil
	default:
		return nil, apperr.Validation("mosque_mode must be existing or new")
	}
}

// GetProgram returns a program's detail view. Inactive programs are visible
// only to their lead teacher and admins; everyone else gets NotFound.
func (c *Catalog) GetProgram(ctx context.Context, caller *identity.Identity, id uuid.UUID) (*models.Program, error) {
	p, err := cache.Remember(ctx, c.cache, cache.ProgramKey(id), c.ttl, c.logger,
		func(ctx context.Context) (*models.Program, error) { return c.store.GetProgram(ctx, id) })
	if err != nil {
		return nil, err
	}
	if p.IsActive || c.canManage(ctx, caller, p) {
		return p, nil
	}
	return nil, apperr.NotFound("program not found")
}

func (c *Catalog) canManage(ctx context.Context, caller *identity.Identity, p *models.Program) bool {
	switch c.guard.Resolve(ctx, caller) {
	case models.RoleAdmin:
		return true
	case models.RoleTeacher:
		return p.LeadTeacherID == caller.AccountID
	}
	return false
}

// ListActivePrograms returns the public catalog, newest first.
func (c *Catalog) ListActivePrograms(ctx context.Context) ([]models.Program, error) {
	return cache.Remember(ctx, c.cache, cache.CatalogKey, c.ttl, c.logger, c.store.ListActivePrograms)
}

// ListProgramsForTeacher returns the programs a teacher leads, active or not.
// A nil teacherID means the caller; only admins may name another teacher.
func (c *Catalog) ListProgramsForTeacher(ctx context.Context, caller *identity.Identity, teacherID *uuid.UUID) ([]models.Program, error) {
	auth, err := c.guard.Require(ctx, caller, models.RoleAdmin, models.RoleTeacher)
	if err != nil {
		return nil, err
	}
	target := auth.AccountID
	if teacherID != nil && *teacherID != uuid.Nil && *teacherID != auth.AccountID {
		if !auth.Is(models.RoleAdmin) {
			return nil, apperr.Forbidden("cannot list another teacher's programs")
		}
		target = *teacherID
	}
	return cache.Remember(ctx, c.cache, cache.TeacherProgramsKey(target), c.ttl, c.logger,
		func(ctx context.Context) ([]models.Program, error) { return c.store.ListProgramsByLead(ctx, target) })
}

// RequireManager checks that caller is an admin or the program's lead teacher,
// reading both role and program fresh. A teacher asking about another
// teacher's program is Forbidden, not NotFound.
func (c *Catalog) RequireManager(ctx context.Context, caller *identity.Identity, programID uuid.UUID) (guard.Authorized, *models.Program, error) {
	auth, err := c.guard.Require(ctx, caller, models.RoleAdmin, models.RoleTeacher)
	if err != nil {
		return guard.Authorized{}, nil, err
	}
	p, err := c.store.GetProgram(ctx, programID)
	if err != nil {
		return guard.Authorized{}, nil, err
	}
	if auth.Is(models.RoleTeacher) && p.LeadTeacherID != auth.AccountID {
		return guard.Authorized{}, nil, apperr.Forbidden("not the lead teacher of this program")
	}
	return auth, p, nil
}

// LoadProgram reads a program from the store, bypassing the view cache.
func (c *Catalog) LoadProgram(ctx context.Context, id uuid.UUID) (*models.Program, error) {
	return c.store.GetProgram(ctx, id)
}

// DeactivateProgram hides a program from the catalog and stops new
// enrollments. Existing enrollments are kept.
func (c *Catalog) DeactivateProgram(ctx context.Context, caller *identity.Identity, id uuid.UUID) (*models.Program, error) {
	auth, _, err := c.RequireManager(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	p, err := c.store.SetProgramActive(ctx, id, false)
	if err != nil {
		return nil, err
	}
	c.logger.Info("program deactivated", zap.String("program_id", id.String()), zap.String("by", auth.AccountID.String()))
	if err := cache.Invalidate(ctx, c.cache,
		cache.ProgramKey(id), cache.CatalogKey, cache.TeacherProgramsKey(p.LeadTeacherID)); err != nil {
		return nil, err
	}
	return p, nil
}
