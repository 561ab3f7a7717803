package enrollments

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/internal/programs"
	"github.com/noor-academy/backend/pkg/apperr"
	"github.com/noor-academy/backend/pkg/database"
)

// Repository handles enrollment persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an enrollments repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertEnrollment inserts e. An existing row for the pair is Conflict; the
// primary key decides, so concurrent inserts yield exactly one row.
func (r *Repository) InsertEnrollment(ctx context.Context, e *models.Enrollment) error {
	const q = `INSERT INTO enrollments (student_id, program_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_id, program_id) DO NOTHING
		RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, e.StudentID, e.ProgramID, string(e.Status)).Scan(&e.CreatedAt, &e.UpdatedAt)
	if database.IsNoRows(err) {
		return apperr.Conflict("enrollment already exists")
	}
	return database.StoreError(err, "enrollment")
}

// GetEnrollment returns the enrollment for a pair.
func (r *Repository) GetEnrollment(ctx context.Context, studentID, programID uuid.UUID) (*models.Enrollment, error) {
	const q = `SELECT student_id, program_id, status, created_at, updated_at
		FROM enrollments WHERE student_id = $1 AND program_id = $2`
	var e models.Enrollment
	err := r.pool.QueryRow(ctx, q, studentID, programID).Scan(&e.StudentID, &e.ProgramID, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, database.StoreError(err, "enrollment")
	}
	return &e, nil
}

// DeleteEnrollment deletes the pair's row and reports whether one existed.
func (r *Repository) DeleteEnrollment(ctx context.Context, studentID, programID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM enrollments WHERE student_id = $1 AND program_id = $2`, studentID, programID)
	if err != nil {
		return false, database.StoreError(err, "enrollment")
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateEnrollmentStatus sets the pair's status.
func (r *Repository) UpdateEnrollmentStatus(ctx context.Context, studentID, programID uuid.UUID, status models.EnrollmentStatus) (*models.Enrollment, error) {
	const q = `UPDATE enrollments SET status = $3, updated_at = NOW()
		WHERE student_id = $1 AND program_id = $2
		RETURNING student_id, program_id, status, created_at, updated_at`
	var e models.Enrollment
	err := r.pool.QueryRow(ctx, q, studentID, programID, string(status)).
		Scan(&e.StudentID, &e.ProgramID, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, database.StoreError(err, "enrollment")
	}
	return &e, nil
}

// ListEnrolledPrograms returns the student's programs, newest enrollment first.
func (r *Repository) ListEnrolledPrograms(ctx context.Context, studentID uuid.UUID) ([]models.EnrolledProgram, error) {
	q := `SELECT ` + programs.ProgramColumns + `, e.status, e.created_at
		` + programs.ProgramFrom + `
		JOIN enrollments e ON e.program_id = p.id
		WHERE e.student_id = $1
		ORDER BY e.created_at DESC, p.id`
	rows, err := r.pool.Query(ctx, q, studentID)
	if err != nil {
		return nil, database.StoreError(err, "enrollment")
	}
	defer rows.Close()

	list := []models.EnrolledProgram{}
	for rows.Next() {
		var ep models.EnrolledProgram
		dest := append(programs.ScanTargets(&ep.Program), &ep.Status, &ep.EnrolledAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, database.StoreError(err, "enrollment")
		}
		list = append(list, ep)
	}
	return list, database.StoreError(rows.Err(), "enrollment")
}

// ListRoster returns the live students enrolled in a program, ordered by name.
func (r *Repository) ListRoster(ctx context.Context, programID uuid.UUID) ([]models.RosterEntry, error) {
	const q = `SELECT a.id, a.full_name, COALESCE(a.email,''), COALESCE(a.avatar_path,''), COALESCE(a.role,''),
		e.status, e.created_at
		FROM enrollments e
		JOIN accounts a ON a.id = e.student_id
		WHERE e.program_id = $1 AND a.removed = FALSE
		ORDER BY a.full_name, a.id`
	rows, err := r.pool.Query(ctx, q, programID)
	if err != nil {
		return nil, database.StoreError(err, "enrollment")
	}
	defer rows.Close()

	list := []models.RosterEntry{}
	for rows.Next() {
		var re models.RosterEntry
		var role string
		if err := rows.Scan(&re.ID, &re.FullName, &re.Email, &re.AvatarPath, &role, &re.Status, &re.EnrolledAt); err != nil {
			return nil, database.StoreError(err, "enrollment")
		}
		re.Role, _ = models.ParseRole(role)
		list = append(list, re)
	}
	return list, database.StoreError(rows.Err(), "enrollment")
}

// ListEnrolledProgramIDs returns the IDs of programs the student has a row for.
func (r *Repository) ListEnrolledProgramIDs(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT program_id FROM enrollments WHERE student_id = $1 ORDER BY program_id`, studentID)
	if err != nil {
		return nil, database.StoreError(err, "enrollment")
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, database.StoreError(err, "enrollment")
		}
		ids = append(ids, id)
	}
	return ids, database.StoreError(rows.Err(), "enrollment")
}
