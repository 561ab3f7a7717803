//go:build integration

package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/apperr"
	"github.com/noor-academy/backend/pkg/database/dbtest"
)

func TestPostgresAccountRemoval(t *testing.T) {
	ctx := context.Background()
	pool := dbtest.NewPool(t)
	repo := NewRepository(pool)

	ensure := func(name, email string, role models.Role) *models.Account {
		a, err := repo.EnsureAccount(ctx, &models.Account{ID: uuid.New(), FullName: name, Email: email, Role: role})
		require.NoError(t, err)
		return a
	}
	admin := ensure("Amina Admin", "amina@example.com", models.RoleAdmin)
	admin2 := ensure("Bilal Admin", "bilal@example.com", models.RoleAdmin)
	teacher := ensure("Tariq Teacher", "tariq@example.com", models.RoleTeacher)
	student := ensure("Sara Student", "sara@example.com", models.RoleStudent)
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	t.Run("update role", func(t *testing.T) {
		got, err := repo.UpdateRole(ctx, student.ID, models.RoleTeacher)
		require.NoError(t, err)
		assert.Equal(t, models.RoleTeacher, got.Role)
		got, err = repo.UpdateRole(ctx, student.ID, models.RoleStudent)
		require.NoError(t, err)
		assert.Equal(t, models.RoleStudent, got.Role)

		_, err = repo.UpdateRole(ctx, uuid.New(), models.RoleTeacher)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("email is unique while live", func(t *testing.T) {
		_, err := repo.EnsureAccount(ctx, &models.Account{ID: uuid.New(), FullName: "Copy", Email: "SARA@example.com"})
		assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
	})

	t.Run("admin target is rejected under lock", func(t *testing.T) {
		_, err := repo.RemoveAccount(ctx, admin2.ID, admin.ID, "cleanup", at)
		assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		_, err = repo.GetSnapshot(ctx, admin2.ID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
		got, err := repo.GetAccount(ctx, admin2.ID)
		require.NoError(t, err)
		assert.False(t, got.Removed)
	})

	t.Run("failed soft delete rolls back the snapshot", func(t *testing.T) {
		_, err := pool.Exec(ctx, `CREATE FUNCTION block_soft_delete() RETURNS trigger AS $$
			BEGIN RAISE EXCEPTION 'soft delete blocked'; END $$ LANGUAGE plpgsql`)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, `CREATE TRIGGER block_soft_delete BEFORE UPDATE OF removed ON accounts
			FOR EACH ROW WHEN (NEW.removed) EXECUTE FUNCTION block_soft_delete()`)
		require.NoError(t, err)

		_, err = repo.RemoveAccount(ctx, teacher.ID, admin.ID, "cleanup", at)
		assert.True(t, apperr.Is(err, apperr.KindUpstream), "got %v", err)

		_, err = pool.Exec(ctx, `DROP TRIGGER block_soft_delete ON accounts`)
		require.NoError(t, err)

		_, err = repo.GetSnapshot(ctx, teacher.ID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
		got, err := repo.GetAccount(ctx, teacher.ID)
		require.NoError(t, err)
		assert.False(t, got.Removed)
		assert.Equal(t, "tariq@example.com", got.Email)
	})

	t.Run("remove", func(t *testing.T) {
		snap, err := repo.RemoveAccount(ctx, student.ID, admin.ID, "left the academy", at)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, snap.ID)
		assert.Equal(t, student.ID, snap.AccountID)
		assert.Equal(t, "Sara Student", snap.FullName)
		assert.Equal(t, "sara@example.com", snap.Email)
		assert.Equal(t, models.RoleStudent, snap.PriorRole)
		assert.Equal(t, admin.ID, snap.RemovedBy)
		assert.Equal(t, "left the academy", snap.Reason)
		assert.True(t, at.Equal(snap.CreatedAt))

		stored, err := repo.GetSnapshot(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, snap.ID, stored.ID)
		assert.Equal(t, "sara@example.com", stored.Email)
		assert.Equal(t, models.RoleStudent, stored.PriorRole)

		got, err := repo.GetAccount(ctx, student.ID)
		require.NoError(t, err)
		assert.True(t, got.Removed)
		assert.Empty(t, got.Email)
		require.NotNil(t, got.RemovedBy)
		assert.Equal(t, admin.ID, *got.RemovedBy)
		require.NotNil(t, got.RemovedAt)
		assert.True(t, at.Equal(*got.RemovedAt))

		students, err := repo.ListByRole(ctx, models.RoleStudent)
		require.NoError(t, err)
		assert.Empty(t, students)
		_, err = repo.UpdateRole(ctx, student.ID, models.RoleTeacher)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("removed email can register again", func(t *testing.T) {
		again := ensure("Sara Again", "sara@example.com", models.RoleStudent)
		assert.NotEqual(t, student.ID, again.ID)
		assert.Equal(t, "sara@example.com", again.Email)
	})

	t.Run("double removal is not found", func(t *testing.T) {
		_, err := repo.RemoveAccount(ctx, student.ID, admin.ID, "again", at.Add(time.Hour))
		assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
		stored, err := repo.GetSnapshot(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, "left the academy", stored.Reason)

		var n int
		require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM removed_accounts WHERE account_id = $1`, student.ID).Scan(&n))
		assert.Equal(t, 1, n)
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := repo.RemoveAccount(ctx, uuid.New(), admin.ID, "", at)
		assert.True(t, apperr.Is(err, apperr.KindNotFound), "got %v", err)
	})
}
