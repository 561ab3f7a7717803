package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/database"
)

// Repository handles credential persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a credentials repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateCredential inserts a credential. A taken email is Conflict.
func (r *Repository) CreateCredential(ctx context.Context, c *models.Credential) error {
	const q = `INSERT INTO credentials (account_id, email, password_hash)
		VALUES ($1, lower($2), $3)
		RETURNING email, created_at`
	err := r.pool.QueryRow(ctx, q, c.AccountID, c.Email, c.PasswordHash).Scan(&c.Email, &c.CreatedAt)
	return database.StoreError(err, "credential")
}

// GetCredentialByEmail returns a credential by email.
func (r *Repository) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	const q = `SELECT account_id, email, password_hash, created_at FROM credentials WHERE lower(email) = lower($1)`
	var c models.Credential
	err := r.pool.QueryRow(ctx, q, email).Scan(&c.AccountID, &c.Email, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		return nil, database.StoreError(err, "credential")
	}
	return &c, nil
}

// CredentialExists reports whether accountID still holds a credential.
func (r *Repository) CredentialExists(ctx context.Context, accountID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM credentials WHERE account_id = $1)`, accountID).Scan(&exists)
	if err != nil {
		return false, database.StoreError(err, "credential")
	}
	return exists, nil
}

// DeleteCredential hard-deletes a credential. Deleting a missing one succeeds.
func (r *Repository) DeleteCredential(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM credentials WHERE account_id = $1`, accountID)
	return database.StoreError(err, "credential")
}
