package accounts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noor-academy/backend/internal/guard"
	"github.com/noor-academy/backend/internal/identity"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/apperr"
)

// Store is the account role store.
type Store interface {
	Reader
	EnsureAccount(ctx context.Context, a *models.Account) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.AccountPublic, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Account, error)
	RemoveAccount(ctx context.Context, targetID, removedBy uuid.UUID, reason string, at time.Time) (*models.RemovedAccountSnapshot, error)
	GetSnapshot(ctx context.Context, accountID uuid.UUID) (*models.RemovedAccountSnapshot, error)
}

// Service implements account administration.
type Service struct {
	store       Store
	guard       *guard.Guard
	defaultRole models.Role
	logger      *zap.Logger
}

// NewService creates an accounts service. defaultRole is given to accounts
// created by EnsureAccount; models.RoleUnknown leaves them unassigned.
func NewService(store Store, g *guard.Guard, defaultRole models.Role, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, guard: g, defaultRole: defaultRole, logger: logger}
}

// EnsureAccount creates the profile row on the first successful authentication
// handshake. It returns the existing row when one is already present.
func (s *Service) EnsureAccount(ctx context.Context, id *identity.Identity, fullName string) (*models.Account, error) {
	if id == nil {
		return nil, apperr.Unauthenticated("sign in required")
	}
	acc, err := s.store.EnsureAccount(ctx, &models.Account{
		ID:       id.AccountID,
		FullName: strings.TrimSpace(fullName),
		Email:    strings.ToLower(strings.TrimSpace(id.Email)),
		Role:     s.defaultRole,
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// Me returns the caller's account and resolved role. An unknown role means the
// account still needs setup by an admin.
func (s *Service) Me(ctx context.Context, id *identity.Identity) (*models.Account, models.Role, error) {
	if id == nil {
		return nil, models.RoleUnknown, apperr.Unauthenticated("sign in required")
	}
	acc, err := s.store.GetAccount(ctx, id.AccountID)
	if err != nil {
		return nil, models.RoleUnknown, err
	}
	if acc.Removed {
		return nil, models.RoleUnknown, apperr.NotFound("account not found")
	}
	return acc, s.guard.Resolve(ctx, id), nil
}

// ListAccounts returns live accounts grouped by role. Admin only.
func (s *Service) ListAccounts(ctx context.Context, caller *identity.Identity) (models.AccountsByRole, error) {
	if _, err := s.guard.Require(ctx, caller, models.RoleAdmin); err != nil {
		return models.AccountsByRole{}, err
	}
	list, err := s.store.ListAccounts(ctx)
	if err != nil {
		return models.AccountsByRole{}, err
	}
	return models.GroupByRole(list), nil
}

// ListTeachers returns live teacher accounts for lead-teacher selection.
func (s *Service) ListTeachers(ctx context.Context, caller *identity.Identity) ([]models.AccountPublic, error) {
	if _, err := s.guard.Require(ctx, caller, models.RoleAdmin, models.RoleTeacher); err != nil {
		return nil, err
	}
	return s.store.ListByRole(ctx, models.RoleTeacher)
}

// UpdateRole assigns newRole to target. Admin only, re-checked at call time.
// Admins may demote themselves.
func (s *Service) UpdateRole(ctx context.Context, caller *identity.Identity, targetID uuid.UUID, newRole string) (*models.Account, error) {
	auth, err := s.guard.Require(ctx, caller, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	role, ok := models.ParseRole(strings.TrimSpace(newRole))
	if !ok {
		return nil, apperr.Validation("role must be one of admin, teacher, student")
	}
	acc, err := s.store.UpdateRole(ctx, targetID, role)
	if err != nil {
		return nil, err
	}
	s.logger.Info("role updated",
		zap.String("account_id", targetID.String()),
		zap.String("role", string(role)),
		zap.String("by", auth.AccountID.String()),
	)
	return acc, nil
}
