// Package guard authorizes privileged operations against a freshly resolved role.
//
// The same Require call backs both the coarse route check (middleware.RequireRole)
// and the check each service performs immediately before it mutates data. A role
// seen by an earlier request, or sent by the client, is never trusted.
package guard

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noor-academy/backend/internal/identity"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/apperr"
)

// RoleResolver returns the caller's current role, or models.RoleUnknown.
type RoleResolver interface {
	ResolveRole(ctx context.Context, id *identity.Identity) models.Role
}

// Authorized is the context handed to an operation after a passed check.
type Authorized struct {
	AccountID uuid.UUID
	Role      models.Role
}

// Is reports whether the authorized caller holds role.
func (a Authorized) Is(role models.Role) bool {
	return a.Role == role
}

// Guard checks a caller's resolved role against an allowed set.
type Guard struct {
	resolver RoleResolver
	logger   *zap.Logger
}

// New creates a Guard.
func New(resolver RoleResolver, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{resolver: resolver, logger: logger}
}

// Require resolves the caller's role and returns Authorized when it is in allowed.
// A nil identity is Unauthenticated; an unknown or disallowed role is Forbidden.
// An empty allowed set admits any known role.
func (g *Guard) Require(ctx context.Context, id *identity.Identity, allowed ...models.Role) (Authorized, error) {
	if id == nil {
		return Authorized{}, apperr.Unauthenticated("sign in required")
	}
	role := g.resolver.ResolveRole(ctx, id)
	if role == models.RoleUnknown {
		g.logger.Debug("denied: no role", zap.String("account_id", id.AccountID.String()))
		return Authorized{}, apperr.Forbidden("account has no active role")
	}
	if len(allowed) > 0 && !contains(allowed, role) {
		g.logger.Debug("denied: role not allowed",
			zap.String("account_id", id.AccountID.String()),
			zap.String("role", string(role)),
		)
		return Authorized{}, apperr.Forbidden("insufficient permissions")
	}
	return Authorized{AccountID: id.AccountID, Role: role}, nil
}

// Resolve returns the caller's current role without enforcing anything.
// Used by read paths whose visibility depends on role.
func (g *Guard) Resolve(ctx context.Context, id *identity.Identity) models.Role {
	if id == nil {
		return models.RoleUnknown
	}
	return g.resolver.ResolveRole(ctx, id)
}

func contains(roles []models.Role, r models.Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}
