package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/apperr"
	"github.com/noor-academy/backend/pkg/database"
)

const accountColumns = `id, full_name, COALESCE(email,''), COALESCE(avatar_path,''), COALESCE(role,''),
	removed, removed_at, removed_by, created_at, updated_at`

// Repository is the Postgres account role store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an accounts repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	var role string
	if err := row.Scan(&a.ID, &a.FullName, &a.Email, &a.AvatarPath, &role,
		&a.Removed, &a.RemovedAt, &a.RemovedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	// Unrecognised stored values normalize to unassigned here, not in callers.
	a.Role, _ = models.ParseRole(role)
	return &a, nil
}

// GetAccount returns an account by ID, including removed ones.
func (r *Repository) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return nil, database.StoreError(err, "account")
	}
	return a, nil
}

// EnsureAccount inserts a if no account with its ID exists and returns the stored row.
func (r *Repository) EnsureAccount(ctx context.Context, a *models.Account) (*models.Account, error) {
	const q = `INSERT INTO accounts (id, full_name, email, avatar_path, role)
		VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''))
		ON CONFLICT (id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, q, a.ID, a.FullName, a.Email, a.AvatarPath, string(a.Role)); err != nil {
		return nil, database.StoreError(err, "account")
	}
	return r.GetAccount(ctx, a.ID)
}

// ListAccounts returns all live accounts ordered by name.
func (r *Repository) ListAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE removed = FALSE ORDER BY full_name, id`)
	if err != nil {
		return nil, database.StoreError(err, "account")
	}
	defer rows.Close()
	list := []models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, database.StoreError(err, "account")
		}
		list = append(list, *a)
	}
	return list, database.StoreError(rows.Err(), "account")
}

// ListByRole returns live accounts holding role.
func (r *Repository) ListByRole(ctx context.Context, role models.Role) ([]models.AccountPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts
		WHERE removed = FALSE AND role = $1 ORDER BY full_name, id`, string(role))
	if err != nil {
		return nil, database.StoreError(err, "account")
	}
	defer rows.Close()
	list := []models.AccountPublic{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, database.StoreError(err, "account")
		}
		list = append(list, a.ToPublic())
	}
	return list, database.StoreError(rows.Err(), "account")
}

// UpdateRole sets a live account's role. Removed or missing accounts are NotFound.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Account, error) {
	row := r.pool.QueryRow(ctx, `UPDATE accounts SET role = $2, updated_at = NOW()
		WHERE id = $1 AND removed = FALSE
		RETURNING `+accountColumns, id, string(role))
	a, err := scanAccount(row)
	if err != nil {
		return nil, database.StoreError(err, "account")
	}
	return a, nil
}

// RemoveAccount writes the audit snapshot and soft-deletes the account in one
// transaction. The target row is locked and re-checked, so a concurrent removal
// or promotion to admin is seen here rather than acted on from a stale read.
func (r *Repository) RemoveAccount(ctx context.Context, targetID, removedBy uuid.UUID, reason string, at time.Time) (*models.RemovedAccountSnapshot, error) {
	var snap *models.RemovedAccountSnapshot
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		acc, err := scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, targetID))
		if err != nil {
			return database.StoreError(err, "account")
		}
		if err := acc.CheckRemovable(); err != nil {
			return err
		}

		snap = &models.RemovedAccountSnapshot{
			AccountID: acc.ID,
			FullName:  acc.FullName,
			Email:     acc.Email,
			PriorRole: acc.Role,
			RemovedBy: removedBy,
			Reason:    reason,
		}
		const insertSnap = `INSERT INTO removed_accounts (account_id, full_name, email, prior_role, removed_by, reason, created_at)
			VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), $5, $6, $7)
			RETURNING id, created_at`
		if err := tx.QueryRow(ctx, insertSnap, snap.AccountID, snap.FullName, snap.Email, string(snap.PriorRole),
			snap.RemovedBy, snap.Reason, at).Scan(&snap.ID, &snap.CreatedAt); err != nil {
			return database.StoreError(err, "removed account snapshot")
		}

		const softDelete = `UPDATE accounts SET removed = TRUE, removed_at = $2, removed_by = $3, email = NULL, updated_at = $2
			WHERE id = $1`
		if _, err := tx.Exec(ctx, softDelete, targetID, at, removedBy); err != nil {
			return database.StoreError(err, "account")
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			return nil, apperr.Upstream(err, "remove account")
		}
		return nil, err
	}
	return snap, nil
}

// GetSnapshot returns the removal snapshot for an account.
func (r *Repository) GetSnapshot(ctx context.Context, accountID uuid.UUID) (*models.RemovedAccountSnapshot, error) {
	const q = `SELECT id, account_id, full_name, COALESCE(email,''), COALESCE(prior_role,''), removed_by, reason, created_at
		FROM removed_accounts WHERE account_id = $1 ORDER BY created_at DESC LIMIT 1`
	var s models.RemovedAccountSnapshot
	var role string
	err := r.pool.QueryRow(ctx, q, accountID).Scan(&s.ID, &s.AccountID, &s.FullName, &s.Email, &role, &s.RemovedBy, &s.Reason, &s.CreatedAt)
	if err != nil {
		return nil, database.StoreError(err, "removed account snapshot")
	}
	s.PriorRole, _ = models.ParseRole(role)
	return &s, nil
}
