package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noor-academy/backend/internal/identity"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/apperr"
)

// CredentialStore persists password credentials.
type CredentialStore interface {
	CreateCredential(ctx context.Context, c *models.Credential) error
	GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error)
	CredentialExists(ctx context.Context, accountID uuid.UUID) (bool, error)
	DeleteCredential(ctx context.Context, accountID uuid.UUID) error
}

// Provider is the built-in identity provider: bearer JWTs backed by a
// credential row. Deleting the row revokes every token issued for it.
type Provider struct {
	creds  CredentialStore
	jwt    *JWTService
	logger *zap.Logger
}

var _ identity.Provider = (*Provider)(nil)

// NewProvider creates an identity provider.
func NewProvider(creds CredentialStore, jwt *JWTService, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{creds: creds, jwt: jwt, logger: logger}
}

// Authenticate reads the bearer token. No Authorization header yields (nil, nil).
func (p *Provider) Authenticate(ctx context.Context, r *http.Request) (*identity.Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, apperr.Unauthenticated("invalid authorization header")
	}
	claims, err := p.jwt.Validate(parts[1])
	if err != nil {
		return nil, apperr.Unauthenticated("invalid or expired token")
	}
	ok, err := p.creds.CredentialExists(ctx, claims.AccountID)
	if err != nil {
		return nil, apperr.Upstream(err, "check credential")
	}
	if !ok {
		return nil, apperr.Unauthenticated("credential revoked")
	}
	return &identity.Identity{AccountID: claims.AccountID, Email: claims.Email}, nil
}

// RevokeIdentity hard-deletes the account's credential. It is idempotent.
func (p *Provider) RevokeIdentity(ctx context.Context, accountID uuid.UUID) error {
	if err := p.creds.DeleteCredential(ctx, accountID); err != nil {
		return apperr.Upstream(err, "revoke identity")
	}
	p.logger.Info("identity revoked", zap.String("account_id", accountID.String()))
	return nil
}
