// Package removal removes user accounts: an audit snapshot and soft delete
// in one transaction, then revocation of the identity at the provider.
//
// The revocation step cannot be rolled back with the first two. When it
// fails the account stays safely removed, the caller gets a
// RevocationPending error, and the step is retried on its own, either by an
// operator through RetryRevocation or by the revocation worker.
package removal

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noor-academy/backend/internal/guard"
	"github.com/noor-academy/backend/internal/identity"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/apperr"
	"github.com/noor-academy/backend/pkg/cache"
	"github.com/noor-academy/backend/pkg/queue"
)

const maxReasonLength = 1000

// Store is the part of the account store removal needs.
type Store interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	RemoveAccount(ctx context.Context, targetID, removedBy uuid.UUID, reason string, at time.Time) (*models.RemovedAccountSnapshot, error)
}

// RevocationQueue hands failed revocations to the worker.
type RevocationQueue interface {
	EnqueueRevocation(ctx context.Context, payload queue.RevocationPayload) error
}

// LeadLister lists the programs an account leads.
type LeadLister interface {
	ListProgramsByLead(ctx context.Context, leadID uuid.UUID) ([]models.Program, error)
}

// EnrolledLister lists the programs an account is enrolled in.
type EnrolledLister interface {
	ListEnrolledPrograms(ctx context.Context, studentID uuid.UUID) ([]models.EnrolledProgram, error)
}

// Views locates the cached program views that mention a removed account.
// The zero value skips invalidation.
type Views struct {
	Cache       cache.Cache
	Programs    LeadLister
	Enrollments EnrolledLister
}

// Protocol implements user removal.
type Protocol struct {
	store   Store
	guard   *guard.Guard
	revoker identity.Revoker
	queue   RevocationQueue
	views   Views
	now     func() time.Time
	logger  *zap.Logger
}

// NewProtocol creates a removal protocol. q may be nil, in which case failed
// revocations are only reported.
func NewProtocol(store Store, g *guard.Guard, revoker identity.Revoker, q RevocationQueue, views Views, logger *zap.Logger) *Protocol {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Protocol{store: store, guard: g, revoker: revoker, queue: q, views: views, now: time.Now, logger: logger}
}

// RemoveUser removes target on behalf of an admin. Checks run in order:
// caller is admin, target is not the caller, target exists and is live,
// target is not an admin. The store repeats the last two under a row lock.
func (p *Protocol) RemoveUser(ctx context.Context, caller *identity.Identity, targetID uuid.UUID, reason string) (*models.RemovedAccountSnapshot, error) {
	auth, err := p.guard.Require(ctx, caller, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if targetID == auth.AccountID {
		return nil, apperr.Validation("you cannot remove your own account")
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, apperr.Validation("reason is too long")
	}
	target, err := p.store.GetAccount(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := target.CheckRemovable(); err != nil {
		return nil, err
	}

	log := p.logger.With(zap.String("account_id", targetID.String()), zap.String("by", auth.AccountID.String()))
	snap, err := p.store.RemoveAccount(ctx, targetID, auth.AccountID, reason, p.now().UTC())
	if err != nil {
		log.Error("removal failed", zap.String("stage", "soft_delete"), zap.Error(err))
		return nil, err
	}
	log.Info("account removed", zap.String("prior_role", string(snap.PriorRole)))
	p.invalidate(ctx, targetID, log)

	if err := p.revoker.RevokeIdentity(ctx, targetID); err != nil {
		log.Error("identity revocation failed", zap.String("stage", "revoke"), zap.Error(err))
		p.enqueue(ctx, targetID, auth.AccountID)
		return nil, apperr.RevocationPending(err, targetID)
	}
	log.Info("identity revoked")
	return snap, nil
}

// invalidate drops cached views that still show the removed account. The
// removal is committed by now, so failures are logged and the views expire
// with their TTL.
func (p *Protocol) invalidate(ctx context.Context, targetID uuid.UUID, log *zap.Logger) {
	if p.views.Cache == nil {
		return
	}
	keys := []string{cache.CatalogKey, cache.TeacherProgramsKey(targetID), cache.StudentProgramsKey(targetID)}
	if p.views.Programs != nil {
		led, err := p.views.Programs.ListProgramsByLead(ctx, targetID)
		if err != nil {
			log.Warn("list led programs failed", zap.Error(err))
		}
		for _, pr := range led {
			keys = append(keys, cache.ProgramKey(pr.ID))
		}
	}
	if p.views.Enrollments != nil {
		enrolled, err := p.views.Enrollments.ListEnrolledPrograms(ctx, targetID)
		if err != nil {
			log.Warn("list enrolled programs failed", zap.Error(err))
		}
		for _, ep := range enrolled {
			keys = append(keys, cache.ProgramKey(ep.ID), cache.TeacherProgramsKey(ep.LeadTeacherID))
		}
	}
	if err := cache.Invalidate(ctx, p.views.Cache, keys...); err != nil {
		log.Error("cache invalidation failed", zap.String("stage", "invalidate"), zap.Error(err))
	}
}

func (p *Protocol) enqueue(ctx context.Context, targetID, by uuid.UUID) {
	if p.queue == nil {
		return
	}
	if err := p.queue.EnqueueRevocation(ctx, queue.RevocationPayload{AccountID: targetID, RemovedBy: by}); err != nil {
		p.logger.Error("revocation enqueue failed", zap.String("account_id", targetID.String()), zap.Error(err))
	}
}

// RetryRevocation re-runs only the revocation step for an already removed
// account. It is safe to call repeatedly.
func (p *Protocol) RetryRevocation(ctx context.Context, caller *identity.Identity, targetID uuid.UUID) error {
	auth, err := p.guard.Require(ctx, caller, models.RoleAdmin)
	if err != nil {
		return err
	}
	target, err := p.store.GetAccount(ctx, targetID)
	if err != nil {
		return err
	}
	if !target.Removed {
		return apperr.Validation("account has not been removed")
	}
	if err := p.revoker.RevokeIdentity(ctx, targetID); err != nil {
		p.logger.Error("identity revocation retry failed",
			zap.String("account_id", targetID.String()),
			zap.String("by", auth.AccountID.String()),
			zap.Error(err),
		)
		return apperr.RevocationPending(err, targetID)
	}
	p.logger.Info("identity revoked on retry", zap.String("account_id", targetID.String()), zap.String("by", auth.AccountID.String()))
	return nil
}
