package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noor-academy/backend/internal/accounts"
	"github.com/noor-academy/backend/internal/enrollments"
	"github.com/noor-academy/backend/internal/guard"
	"github.com/noor-academy/backend/internal/identity"
	"github.com/noor-academy/backend/internal/memstore"
	"github.com/noor-academy/backend/internal/middleware"
	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/internal/programs"
	"github.com/noor-academy/backend/pkg/cache"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	store     *memstore.Store
	guard     *guard.Guard
	catalog   *programs.Catalog
	lifecycle *enrollments.Lifecycle
	accounts  *accounts.Service
}

func newFixture() *fixture {
	store := memstore.New()
	g := guard.New(accounts.NewResolver(store, nil), nil)
	c := cache.NewMemory()
	catalog := programs.NewCatalog(store, store, g, c, time.Minute, nil)
	return &fixture{
		store:     store,
		guard:     g,
		catalog:   catalog,
		lifecycle: enrollments.NewLifecycle(store, catalog, g, c, enrollments.Options{AutoApprove: true, CacheTTL: time.Minute}, nil),
		accounts:  accounts.NewService(store, g, models.RoleStudent, nil),
	}
}

func (f *fixture) put(role models.Role) *identity.Identity {
	id := uuid.New()
	f.store.PutAccount(models.Account{ID: id, FullName: string(role) + " user", Role: role})
	return &identity.Identity{AccountID: id}
}

func (f *fixture) get(t *testing.T, caller *identity.Identity) (int, Summary) {
	t.Helper()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextIdentity, caller)
		c.Next()
	})
	h := NewHandler(f.catalog, f.lifecycle, f.accounts)
	r.GET("/dashboard", middleware.RequireRole(f.guard, models.RoleAdmin, models.RoleTeacher, models.RoleStudent), h.Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	var body struct {
		Data Summary `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w.Code, body.Data
}

func TestDashboardPerRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	admin := f.put(models.RoleAdmin)
	teacher := f.put(models.RoleTeacher)
	student := f.put(models.RoleStudent)

	p, err := f.catalog.CreateProgram(ctx, teacher, models.NewProgram{Title: "Quran Memorization"})
	require.NoError(t, err)
	_, err = f.catalog.CreateProgram(ctx, admin, models.NewProgram{Title: "Arabic I", LeadTeacherID: &teacher.AccountID})
	require.NoError(t, err)
	_, err = f.lifecycle.Enroll(ctx, student, p.ID)
	require.NoError(t, err)

	code, s := f.get(t, student)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.RoleStudent, s.Role)
	require.Len(t, s.Enrolled, 1)
	assert.Equal(t, p.ID, s.Enrolled[0].ID)
	assert.Len(t, s.Catalog, 2)
	assert.Nil(t, s.Accounts)

	code, s = f.get(t, teacher)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, s.Leading, 2)
	require.NotNil(t, s.TotalEnrollments)
	assert.Equal(t, 1, *s.TotalEnrollments)
	assert.Empty(t, s.Enrolled)

	code, s = f.get(t, admin)
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, s.Accounts)
	assert.Len(t, s.Accounts.Students, 1)
	assert.Len(t, s.Catalog, 2)
}

func TestDashboardUnassignedIsForbidden(t *testing.T) {
	f := newFixture()
	code, _ := f.get(t, f.put(models.RoleUnknown))
	assert.Equal(t, http.StatusForbidden, code)
}
