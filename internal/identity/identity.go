// Package identity defines the authenticated caller value passed into every
// core operation and the identity provider capabilities the core consumes.
package identity

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// Identity is an authenticated caller. Only AccountID is used as the account key.
type Identity struct {
	AccountID uuid.UUID
	Email     string
}

// Authenticator authenticates an inbound request. It returns (nil, nil) when
// the request carries no credentials and an error when they are invalid.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (*Identity, error)
}

// Revoker hard-deletes an identity's credential at the provider.
// Revoking an already revoked identity must succeed.
type Revoker interface {
	RevokeIdentity(ctx context.Context, accountID uuid.UUID) error
}

// Provider is the full identity provider surface.
type Provider interface {
	Authenticator
	Revoker
}
