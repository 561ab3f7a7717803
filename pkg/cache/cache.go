// Package cache stores rendered read views (program detail, catalog, dashboards)
// so they can be dropped the moment an enrollment changes.
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Cache is a JSON view cache. Get reports false on a miss.
//
// Every key has a generation that Delete advances. A view loaded from the
// store is written with SetIfGeneration against the generation read before
// the load, so a load that raced an invalidation never lands in the cache.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Generation(ctx context.Context, key string) (int64, error)
	SetIfGeneration(ctx context.Context, key string, gen int64, value interface{}, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// CatalogKey is the key for the active program listing.
const CatalogKey = "catalog:active"

// ProgramKey is the key for one program's detail view.
func ProgramKey(programID uuid.UUID) string {
	return "program:" + programID.String()
}

// StudentProgramsKey is the key for a student's enrolled programs.
func StudentProgramsKey(studentID uuid.UUID) string {
	return "student:" + studentID.String() + ":programs"
}

// TeacherProgramsKey is the key for the programs a teacher leads.
func TeacherProgramsKey(teacherID uuid.UUID) string {
	return "teacher:" + teacherID.String() + ":programs"
}
