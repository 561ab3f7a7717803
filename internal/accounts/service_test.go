package accounts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noor-academy/backend/internal/guard"
	"github.com/noor-academy/backend/internal/identity"
	"github.com/noor-academy/backend/internal/memstore"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/apperr"
)

type fixture struct {
	store   *memstore.Store
	guard   *guard.Guard
	svc     *Service
	admin   *identity.Identity
	teacher *identity.Identity
	student *identity.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	g := guard.New(NewResolver(store, nil), nil)
	f := &fixture{store: store, guard: g, svc: NewService(store, g, models.RoleStudent, nil)}
	f.admin = f.put("Amina Admin", "amina@example.com", models.RoleAdmin)
	f.teacher = f.put("Tariq Teacher", "tariq@example.com", models.RoleTeacher)
	f.student = f.put("Sara Student", "sara@example.com", models.RoleStudent)
	return f
}

func (f *fixture) put(name, email string, role models.Role) *identity.Identity {
	id := uuid.New()
	f.store.PutAccount(models.Account{ID: id, FullName: name, Email: email, Role: role})
	return &identity.Identity{AccountID: id, Email: email}
}

func TestUpdateRoleSelfDemotion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	acc, err := f.svc.UpdateRole(ctx, f.admin, f.admin.AccountID, "student")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, acc.Role)

	assert.Equal(t, models.RoleStudent, f.guard.Resolve(ctx, f.admin))
	_, err = f.guard.Require(ctx, f.admin, models.RoleAdmin)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	// The demoted admin can no longer change roles.
	_, err = f.svc.UpdateRole(ctx, f.admin, f.student.AccountID, "admin")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestUpdateRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("non-admin is forbidden", func(t *testing.T) {
		_, err := f.svc.UpdateRole(ctx, f.teacher, f.student.AccountID, "teacher")
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
		acc, _ := f.store.GetAccount(ctx, f.student.AccountID)
		assert.Equal(t, models.RoleStudent, acc.Role)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := f.svc.UpdateRole(ctx, nil, f.student.AccountID, "teacher")
		assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := f.svc.UpdateRole(ctx, f.admin, f.student.AccountID, "owner")
		assert.True(t, apperr.Is(err, apperr.KindValidation))
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := f.svc.UpdateRole(ctx, f.admin, uuid.New(), "teacher")
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("promote student", func(t *testing.T) {
		acc, err := f.svc.UpdateRole(ctx, f.admin, f.student.AccountID, " teacher ")
		require.NoError(t, err)
		assert.Equal(t, models.RoleTeacher, acc.Role)
		assert.Equal(t, models.RoleTeacher, f.guard.Resolve(ctx, f.student))
	})
}

func TestListAccountsGroupsByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put("Nobody Yet", "", models.RoleUnknown)

	groups, err := f.svc.ListAccounts(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, groups.Admins, 1)
	assert.Len(t, groups.Teachers, 1)
	assert.Len(t, groups.Students, 1)
	assert.Len(t, groups.Unassigned, 1)

	_, err = f.svc.ListAccounts(ctx, f.student)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestListTeachers(t *testing.T) {
	f := newFixture(t)
	list, err := f.svc.ListTeachers(context.Background(), f.teacher)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, f.teacher.AccountID, list[0].ID)
}

func TestEnsureAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := &identity.Identity{AccountID: uuid.New(), Email: "New@Example.com"}

	acc, err := f.svc.EnsureAccount(ctx, id, "  New Person ")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, acc.Role)
	assert.Equal(t, "new@example.com", acc.Email)
	assert.Equal(t, "New Person", acc.FullName)

	// Second handshake keeps the stored row, including an admin-assigned role.
	_, err = f.svc.UpdateRole(ctx, f.admin, id.AccountID, "teacher")
	require.NoError(t, err)
	acc, err = f.svc.EnsureAccount(ctx, id, "Other Name")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, acc.Role)
	assert.Equal(t, "New Person", acc.FullName)
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	acc, role, err := f.svc.Me(context.Background(), f.teacher)
	require.NoError(t, err)
	assert.Equal(t, f.teacher.AccountID, acc.ID)
	assert.Equal(t, models.RoleTeacher, role)

	_, _, err = f.svc.Me(context.Background(), nil)
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}
