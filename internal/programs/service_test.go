package programs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noor-academy/backend/internal/accounts"
	"github.com/noor-academy/backend/internal/guard"
	"github.com/noor-academy/backend/internal/identity"
	"github.com/noor-academy/backend/internal/memstore"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/apperr"
	"github.com/noor-academy/backend/pkg/cache"
)

type fixture struct {
	store   *memstore.Store
	cache   *cache.Memory
	catalog *Catalog
	admin   *identity.Identity
	t1      *identity.Identity
	t2      *identity.Identity
	student *identity.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	g := guard.New(accounts.NewResolver(store, nil), nil)
	c := cache.NewMemory()
	f := &fixture{store: store, cache: c, catalog: NewCatalog(store, store, g, c, time.Minute, nil)}
	f.admin = f.put("Amina Admin", models.RoleAdmin)
	f.t1 = f.put("Tariq Teacher", models.RoleTeacher)
	f.t2 = f.put("Yusuf Teacher", models.RoleTeacher)
	f.student = f.put("Sara Student", models.RoleStudent)
	return f
}

func (f *fixture) put(name string, role models.Role) *identity.Identity {
	id := uuid.New()
	f.store.PutAccount(models.Account{ID: id, FullName: name, Role: role})
	return &identity.Identity{AccountID: id}
}

func (f *fixture) create(t *testing.T, caller *identity.Identity, title string) *models.Program {
	t.Helper()
	p, err := f.catalog.CreateProgram(context.Background(), caller, models.NewProgram{Title: title, PriceMonthly: "75"})
	require.NoError(t, err)
	return p
}

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		kind apperr.Kind
	}{
		{"", 0, ""},
		{"  ", 0, ""},
		{"abc", 0, ""},
		{"NaN", 0, ""},
		{"Inf", 0, ""},
		{"75", 75, ""},
		{" 75.00 ", 75, ""},
		{"12.345", 12.35, ""},
		{"0", 0, ""},
		{"-1", 0, apperr.KindValidation},
		{"1e12", 0, apperr.KindValidation},
	}
	for _, tc := range cases {
		got, err := ParsePrice(tc.in)
		if tc.kind != "" {
			assert.True(t, apperr.Is(err, tc.kind), "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.InDelta(t, tc.want, got, 0.0001, "input %q", tc.in)
	}
}

func TestCreateProgramValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	studentID := f.student.AccountID
	t2 := f.t2.AccountID

	cases := []struct {
		name   string
		caller *identity.Identity
		in     models.NewProgram
		kind   apperr.Kind
	}{
		{"empty title", f.admin, models.NewProgram{Title: "", LeadTeacherID: &f.t1.AccountID}, apperr.KindValidation},
		{"whitespace title", f.t1, models.NewProgram{Title: " \t "}, apperr.KindValidation},
		{"student as lead", f.admin, models.NewProgram{Title: "Fiqh", LeadTeacherID: &studentID}, apperr.KindValidation},
		{"unknown lead", f.admin, models.NewProgram{Title: "Fiqh", LeadTeacherID: ptr(uuid.New())}, apperr.KindValidation},
		{"admin without lead", f.admin, models.NewProgram{Title: "Fiqh"}, apperr.KindValidation},
		{"teacher naming another lead", f.t1, models.NewProgram{Title: "Fiqh", LeadTeacherID: &t2}, apperr.KindValidation},
		{"negative price", f.t1, models.NewProgram{Title: "Fiqh", PriceMonthly: "-5"}, apperr.KindValidation},
		{"bad mosque mode", f.t1, models.NewProgram{Title: "Fiqh", MosqueMode: "both"}, apperr.KindValidation},
		{"new mosque without name", f.t1, models.NewProgram{Title: "Fiqh", MosqueMode: "new", NewMosque: &models.NewMosque{Name: " "}}, apperr.KindValidation},
		{"missing mosque", f.t1, models.NewProgram{Title: "Fiqh", MosqueID: ptr(uuid.New())}, apperr.KindNotFound},
		{"student caller", f.student, models.NewProgram{Title: "Fiqh"}, apperr.KindForbidden},
		{"anonymous", nil, models.NewProgram{Title: "Fiqh"}, apperr.KindUnauthenticated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.catalog.CreateProgram(ctx, tc.caller, tc.in)
			assert.True(t, apperr.Is(err, tc.kind), "got %v", err)
		})
	}

	list, err := f.store.ListActivePrograms(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	mosques, err := f.store.ListMosques(ctx)
	require.NoError(t, err)
	assert.Empty(t, mosques)
}

func TestCreateProgramLeadRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	own, err := f.catalog.CreateProgram(ctx, f.t1, models.NewProgram{Title: "  Tajweed  ", PriceMonthly: "75.00"})
	require.NoError(t, err)
	assert.Equal(t, "Tajweed", own.Title)
	assert.Equal(t, f.t1.AccountID, own.LeadTeacherID)
	assert.Equal(t, "Tariq Teacher", own.LeadTeacherName)
	assert.True(t, own.IsActive)
	assert.InDelta(t, 75.0, own.PriceMonthly, 0.001)

	// Naming themself explicitly is fine.
	self := f.t1.AccountID
	_, err = f.catalog.CreateProgram(ctx, f.t1, models.NewProgram{Title: "Hifz", LeadTeacherID: &self})
	require.NoError(t, err)

	assigned, err := f.catalog.CreateProgram(ctx, f.admin, models.NewProgram{Title: "Seerah", LeadTeacherID: &f.t2.AccountID})
	require.NoError(t, err)
	assert.Equal(t, f.t2.AccountID, assigned.LeadTeacherID)
	assert.Equal(t, f.admin.AccountID, assigned.CreatedBy)
	assert.Zero(t, assigned.PriceMonthly)
}

func TestCreateProgramRechecksLeadRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := accounts.NewService(f.store, guard.New(accounts.NewResolver(f.store, nil), nil), models.RoleStudent, nil).
		UpdateRole(ctx, f.admin, f.t2.AccountID, "student")
	require.NoError(t, err)

	_, err = f.catalog.CreateProgram(ctx, f.admin, models.NewProgram{Title: "Seerah", LeadTeacherID: &f.t2.AccountID})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCreateProgramWithMosque(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.catalog.CreateProgram(ctx, f.t1, models.NewProgram{
		Title:      "Arabic I",
		MosqueMode: models.MosqueModeNew,
		NewMosque:  &models.NewMosque{Name: " Masjid Noor ", Address: "1 Main St"},
	})
	require.NoError(t, err)
	require.NotNil(t, p.MosqueID)
	assert.Equal(t, "Masjid Noor", p.MosqueName)

	m, err := f.store.GetMosque(ctx, *p.MosqueID)
	require.NoError(t, err)
	assert.Equal(t, f.t1.AccountID, m.CreatedBy)

	again, err := f.catalog.CreateProgram(ctx, f.t1, models.NewProgram{Title: "Arabic II", MosqueID: p.MosqueID})
	require.NoError(t, err)
	assert.Equal(t, *p.MosqueID, *again.MosqueID)

	all, err := f.store.ListMosques(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetProgramVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, f.t1, "Tajweed")

	got, err := f.catalog.GetProgram(ctx, nil, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = f.catalog.DeactivateProgram(ctx, f.t1, p.ID)
	require.NoError(t, err)

	for _, caller := range []*identity.Identity{nil, f.student, f.t2} {
		_, err = f.catalog.GetProgram(ctx, caller, p.ID)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	}
	for _, caller := range []*identity.Identity{f.t1, f.admin} {
		got, err = f.catalog.GetProgram(ctx, caller, p.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)
	}

	_, err = f.catalog.GetProgram(ctx, f.admin, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCatalogCacheInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	list, err := f.catalog.ListActivePrograms(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.True(t, f.cache.Has(cache.CatalogKey))

	p := f.create(t, f.t1, "Tajweed")
	assert.False(t, f.cache.Has(cache.CatalogKey))

	list, err = f.catalog.ListActivePrograms(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = f.catalog.GetProgram(ctx, nil, p.ID)
	require.NoError(t, err)
	assert.True(t, f.cache.Has(cache.ProgramKey(p.ID)))

	_, err = f.catalog.DeactivateProgram(ctx, f.admin, p.ID)
	require.NoError(t, err)
	assert.False(t, f.cache.Has(cache.ProgramKey(p.ID)))

	list, err = f.catalog.ListActivePrograms(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeactivateProgramAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, f.t1, "Tajweed")

	_, err := f.catalog.DeactivateProgram(ctx, f.t2, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = f.catalog.DeactivateProgram(ctx, f.student, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	_, err = f.catalog.DeactivateProgram(ctx, f.admin, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	got, err := f.store.GetProgram(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestRequireManager(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, f.t2, "Seerah")

	_, _, err := f.catalog.RequireManager(ctx, f.t1, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	auth, got, err := f.catalog.RequireManager(ctx, f.t2, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.True(t, auth.Is(models.RoleTeacher))

	auth, _, err = f.catalog.RequireManager(ctx, f.admin, p.ID)
	require.NoError(t, err)
	assert.True(t, auth.Is(models.RoleAdmin))
}

func TestListProgramsForTeacher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.create(t, f.t1, "Tajweed")
	second := f.create(t, f.t1, "Hifz")
	f.create(t, f.t2, "Seerah")
	_, err := f.catalog.DeactivateProgram(ctx, f.t1, first.ID)
	require.NoError(t, err)

	mine, err := f.catalog.ListProgramsForTeacher(ctx, f.t1, nil)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID, "newest first")

	_, err = f.catalog.ListProgramsForTeacher(ctx, f.t1, &f.t2.AccountID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	theirs, err := f.catalog.ListProgramsForTeacher(ctx, f.admin, &f.t2.AccountID)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)

	_, err = f.catalog.ListProgramsForTeacher(ctx, f.student, nil)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func ptr(id uuid.UUID) *uuid.UUID {
	return &id
}
