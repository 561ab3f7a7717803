package mosques

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noor-academy/backend/internal/guard"
	"github.com/noor-academy/backend/internal/identity"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/apperr"
)

// Store persists mosques.
type Store interface {
	CreateMosque(ctx context.Context, m *models.Mosque) error
	ListMosques(ctx context.Context) ([]models.Mosque, error)
}

// Service lists and creates mosques.
type Service struct {
	store  Store
	guard  *guard.Guard
	logger *zap.Logger
}

// NewService creates a mosques service.
func NewService(store Store, g *guard.Guard, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, guard: g, logger: logger}
}

// Normalize trims input and checks the required name.
func Normalize(in models.NewMosque) (models.NewMosque, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.PicturePath = strings.TrimSpace(in.PicturePath)
	if in.Name == "" {
		return in, apperr.Validation("mosque name is required")
	}
	return in, nil
}

// List returns all mosques. Public.
func (s *Service) List(ctx context.Context) ([]models.Mosque, error) {
	return s.store.ListMosques(ctx)
}

// Create adds a mosque. Teachers and admins only.
func (s *Service) Create(ctx context.Context, caller *identity.Identity, in models.NewMosque) (*models.Mosque, error) {
	auth, err := s.guard.Require(ctx, caller, models.RoleAdmin, models.RoleTeacher)
	if err != nil {
		return nil, err
	}
	in, err = Normalize(in)
	if err != nil {
		return nil, err
	}
	m := &models.Mosque{Name: in.Name, Address: in.Address, PicturePath: in.PicturePath, CreatedBy: auth.AccountID}
	if err := s.store.CreateMosque(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("mosque created", zap.String("mosque_id", m.ID.String()), zap.String("by", auth.AccountID.String()))
	return m, nil
}
