package accounts

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noor-academy/backend/internal/identity"
	"github.com/noor-academy/backend/internal/models"
)

// Reader is the read side of the account store.
type Reader interface {
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// Resolver derives the caller's role from the account store. It is the only
// source of role truth and never caches across calls.
type Resolver struct {
	store  Reader
	logger *zap.Logger
}

// NewResolver creates a role resolver.
func NewResolver(store Reader, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, logger: logger}
}

// ResolveRole returns the caller's current role. It fails closed: a nil
// identity, lookup error, missing row, removed account or unassigned role all
// yield models.RoleUnknown.
func (r *Resolver) ResolveRole(ctx context.Context, id *identity.Identity) models.Role {
	if id == nil || id.AccountID == uuid.Nil {
		return models.RoleUnknown
	}
	acc, err := r.store.GetAccount(ctx, id.AccountID)
	if err != nil {
		r.logger.Debug("resolve role: lookup failed", zap.String("account_id", id.AccountID.String()), zap.Error(err))
		return models.RoleUnknown
	}
	if acc == nil || acc.Removed {
		return models.RoleUnknown
	}
	role, ok := models.ParseRole(string(acc.Role))
	if !ok {
		return models.RoleUnknown
	}
	return role
}
