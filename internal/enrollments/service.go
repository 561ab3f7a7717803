// Package enrollments governs a student's relationship to a program:
// enroll, withdraw, approval and the listings built from those rows.
package enrollments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noor-academy/backend/internal/guard"
	"github.com/noor-academy/backend/internal/identity"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/apperr"
	"github.com/noor-academy/backend/pkg/cache"
)

// Store persists enrollments.
type Store interface {
	InsertEnrollment(ctx context.Context, e *models.Enrollment) error
	GetEnrollment(ctx context.Context, studentID, programID uuid.UUID) (*models.Enrollment, error)
	DeleteEnrollment(ctx context.Context, studentID, programID uuid.UUID) (bool, error)
	UpdateEnrollmentStatus(ctx context.Context, studentID, programID uuid.UUID, status models.EnrollmentStatus) (*models.Enrollment, error)
	ListEnrolledPrograms(ctx context.Context, studentID uuid.UUID) ([]models.EnrolledProgram, error)
	ListRoster(ctx context.Context, programID uuid.UUID) ([]models.RosterEntry, error)
	ListEnrolledProgramIDs(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, error)
}

// Programs is the part of the catalog the lifecycle depends on.
type Programs interface {
	LoadProgram(ctx context.Context, id uuid.UUID) (*models.Program, error)
	RequireManager(ctx context.Context, caller *identity.Identity, programID uuid.UUID) (guard.Authorized, *models.Program, error)
}

// Options configures a Lifecycle.
type Options struct {
	// AutoApprove makes new enrollments active instead of pending.
	AutoApprove bool
	CacheTTL    time.Duration
}

// Result reports the outcome of an enroll or withdraw call. Changed is false
// when the call was a no-op.
type Result struct {
	Enrollment *models.Enrollment `json:"enrollment,omitempty"`
	Changed    bool               `json:"changed"`
}

// Lifecycle implements the enrollment state machine.
type Lifecycle struct {
	store    Store
	programs Programs
	guard    *guard.Guard
	cache    cache.Cache
	opts     Options
	logger   *zap.Logger
}

// NewLifecycle creates an enrollment lifecycle.
func NewLifecycle(store Store, programs Programs, g *guard.Guard, c cache.Cache, opts Options, logger *zap.Logger) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{store: store, programs: programs, guard: g, cache: c, opts: opts, logger: logger}
}

// Enroll creates the caller's enrollment in an active program. Enrolling
// again returns the existing row unchanged.
func (l *Lifecycle) Enroll(ctx context.Context, caller *identity.Identity, programID uuid.UUID) (*Result, error) {
	auth, err := l.guard.Require(ctx, caller, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	p, err := l.programs.LoadProgram(ctx, programID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperr.NotFound("program not found")
	}

	status := models.EnrollmentPending
	if l.opts.AutoApprove {
		status = models.EnrollmentActive
	}
	res, err := l.insert(ctx, &models.Enrollment{StudentID: auth.AccountID, ProgramID: programID, Status: status})
	if err != nil {
		return nil, err
	}
	if res.Changed {
		l.logger.Info("enrolled",
			zap.String("account_id", auth.AccountID.String()),
			zap.String("program_id", programID.String()),
			zap.String("status", string(status)),
		)
	}
	// Invalidate on the no-op path too: a retry after a failed invalidation
	// must still clear stale views.
	if err := l.invalidate(ctx, auth.AccountID, p); err != nil {
		return nil, err
	}
	return res, nil
}

// insert treats a duplicate as success. The existing row can vanish between
// the conflict and the read when a withdraw races in, so the insert is tried
// once more.
func (l *Lifecycle) insert(ctx context.Context, e *models.Enrollment) (*Result, error) {
	for attempt := 0; ; attempt++ {
		err := l.store.InsertEnrollment(ctx, e)
		if err == nil {
			return &Result{Enrollment: e, Changed: true}, nil
		}
		if !apperr.Is(err, apperr.KindConflict) {
			return nil, err
		}
		existing, err := l.store.GetEnrollment(ctx, e.StudentID, e.ProgramID)
		if err == nil {
			return &Result{Enrollment: existing}, nil
		}
		if !apperr.Is(err, apperr.KindNotFound) || attempt > 0 {
			return nil, err
		}
	}
}

// Withdraw deletes the caller's own enrollment. Withdrawing without one
// succeeds with Changed false.
func (l *Lifecycle) Withdraw(ctx context.Context, caller *identity.Identity, programID uuid.UUID) (*Result, error) {
	auth, err := l.guard.Require(ctx, caller)
	if err != nil {
		return nil, err
	}
	existed, err := l.store.DeleteEnrollment(ctx, auth.AccountID, programID)
	if err != nil {
		return nil, err
	}
	if existed {
		l.logger.Info("withdrawn", zap.String("account_id", auth.AccountID.String()), zap.String("program_id", programID.String()))
	}

	p, err := l.programs.LoadProgram(ctx, programID)
	if apperr.Is(err, apperr.KindNotFound) {
		p = &models.Program{ID: programID}
	} else if err != nil {
		return nil, err
	}
	if err := l.invalidate(ctx, auth.AccountID, p); err != nil {
		return nil, err
	}
	return &Result{Changed: existed}, nil
}

// ListEnrollmentsForStudent returns a student's programs with their
// enrollment status. A nil studentID means the caller; only admins may name
// another account.
func (l *Lifecycle) ListEnrollmentsForStudent(ctx context.Context, caller *identity.Identity, studentID *uuid.UUID) ([]models.EnrolledProgram, error) {
	auth, err := l.guard.Require(ctx, caller)
	if err != nil {
		return nil, err
	}
	target := auth.AccountID
	if studentID != nil && *studentID != uuid.Nil && *studentID != auth.AccountID {
		if !auth.Is(models.RoleAdmin) {
			return nil, apperr.Forbidden("cannot list another student's enrollments")
		}
		target = *studentID
	}
	return cache.Remember(ctx, l.cache, cache.StudentProgramsKey(target), l.opts.CacheTTL, l.logger,
		func(ctx context.Context) ([]models.EnrolledProgram, error) { return l.store.ListEnrolledPrograms(ctx, target) })
}

// ListEnrollmentsForProgram returns a program's roster. Only its lead
// teacher and admins may see it; any other caller is Forbidden even when the
// roster is empty.
func (l *Lifecycle) ListEnrollmentsForProgram(ctx context.Context, caller *identity.Identity, programID uuid.UUID) ([]models.RosterEntry, error) {
	if _, _, err := l.programs.RequireManager(ctx, caller, programID); err != nil {
		return nil, err
	}
	return l.store.ListRoster(ctx, programID)
}

// Approve moves a pending enrollment to active.
func (l *Lifecycle) Approve(ctx context.Context, caller *identity.Identity, studentID, programID uuid.UUID) (*models.Enrollment, error) {
	return l.decide(ctx, caller, studentID, programID, models.EnrollmentActive)
}

// Reject moves a pending enrollment to rejected.
func (l *Lifecycle) Reject(ctx context.Context, caller *identity.Identity, studentID, programID uuid.UUID) (*models.Enrollment, error) {
	return l.decide(ctx, caller, studentID, programID, models.EnrollmentRejected)
}

func (l *Lifecycle) decide(ctx context.Context, caller *identity.Identity, studentID, programID uuid.UUID, to models.EnrollmentStatus) (*models.Enrollment, error) {
	auth, p, err := l.programs.RequireManager(ctx, caller, programID)
	if err != nil {
		return nil, err
	}
	e, err := l.store.GetEnrollment(ctx, studentID, programID)
	if err != nil {
		return nil, err
	}
	switch e.Status {
	case to:
		return e, nil
	case models.EnrollmentPending:
	default:
		return nil, apperr.Validation("only pending enrollments can be decided")
	}
	e, err = l.store.UpdateEnrollmentStatus(ctx, studentID, programID, to)
	if err != nil {
		return nil, err
	}
	l.logger.Info("enrollment decided",
		zap.String("account_id", studentID.String()),
		zap.String("program_id", programID.String()),
		zap.String("status", string(to)),
		zap.String("by", auth.AccountID.String()),
	)
	if err := l.invalidate(ctx, studentID, p); err != nil {
		return nil, err
	}
	return e, nil
}

// EnrolledProgramIDs returns the ids of the programs the caller has an
// enrollment row for. Callers without a role get an empty set.
func (l *Lifecycle) EnrolledProgramIDs(ctx context.Context, caller *identity.Identity) ([]uuid.UUID, error) {
	if l.guard.Resolve(ctx, caller) == models.RoleUnknown {
		return []uuid.UUID{}, nil
	}
	return l.store.ListEnrolledProgramIDs(ctx, caller.AccountID)
}

func (l *Lifecycle) invalidate(ctx context.Context, studentID uuid.UUID, p *models.Program) error {
	keys := []string{cache.ProgramKey(p.ID), cache.CatalogKey, cache.StudentProgramsKey(studentID)}
	if p.LeadTeacherID != uuid.Nil {
		keys = append(keys, cache.TeacherProgramsKey(p.LeadTeacherID))
	}
	if err := cache.Invalidate(ctx, l.cache, keys...); err != nil {
		l.logger.Error("cache invalidation failed",
			zap.String("account_id", studentID.String()),
			zap.String("program_id", p.ID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
