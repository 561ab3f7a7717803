package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type view struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

func TestMemoryRoundTripAndDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	var got view
	ok, err := c.Get(ctx, CatalogKey, &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, CatalogKey, view{Title: "Tajweed", Count: 3}, time.Minute))
	ok, err = c.Get(ctx, CatalogKey, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, view{Title: "Tajweed", Count: 3}, got)

	require.NoError(t, c.Delete(ctx, CatalogKey, "missing"))
	assert.False(t, c.Has(CatalogKey))
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", view{Title: "x"}, time.Second))
	assert.True(t, c.Has("k"))

	now = now.Add(2 * time.Second)
	var got view
	ok, err := c.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("7f1c6d6e-2a55-4f8e-9d0c-3a1b2c3d4e5f")
	assert.Equal(t, "program:7f1c6d6e-2a55-4f8e-9d0c-3a1b2c3d4e5f", ProgramKey(id))
	assert.Equal(t, "student:7f1c6d6e-2a55-4f8e-9d0c-3a1b2c3d4e5f:programs", StudentProgramsKey(id))
	assert.Equal(t, "teacher:7f1c6d6e-2a55-4f8e-9d0c-3a1b2c3d4e5f:programs", TeacherProgramsKey(id))
}
