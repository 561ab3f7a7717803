package programs

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/internal/mosques"
	"github.com/noor-academy/backend/pkg/database"
)

// ProgramColumns and ProgramFrom select the joined program view: lead
// teacher and mosque names plus the active enrollment count. Scan rows with
// ScanTargets.
const (
	ProgramColumns = `p.id, p.title, COALESCE(p.description,''), COALESCE(p.location,''), p.mosque_id,
	p.lead_teacher_id, p.price_monthly::float8, COALESCE(p.thumbnail_path,''), p.is_active, p.created_by,
	p.created_at, p.updated_at,
	COALESCE(a.full_name,''), COALESCE(a.avatar_path,''), COALESCE(m.name,''),
	(SELECT COUNT(*) FROM enrollments ec
		JOIN accounts ea ON ea.id = ec.student_id AND ea.removed = FALSE
		WHERE ec.program_id = p.id AND ec.status = 'active')::int`
	ProgramFrom = `FROM programs p
	JOIN accounts a ON a.id = p.lead_teacher_id
	LEFT JOIN mosques m ON m.id = p.mosque_id`
)

const programSelect = `SELECT ` + ProgramColumns + ` ` + ProgramFrom

// ScanTargets returns the scan destinations for ProgramColumns, in order.
func ScanTargets(p *models.Program) []any {
	return []any{&p.ID, &p.Title, &p.Description, &p.Location, &p.MosqueID,
		&p.LeadTeacherID, &p.PriceMonthly, &p.ThumbnailPath, &p.IsActive, &p.CreatedBy,
		&p.CreatedAt, &p.UpdatedAt,
		&p.LeadTeacherName, &p.LeadTeacherAvatar, &p.MosqueName, &p.EnrollmentCount}
}

// Repository handles program persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a program repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProgram(row pgx.Row) (*models.Program, error) {
	var p models.Program
	if err := row.Scan(ScanTargets(&p)...); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProgram inserts p. When newMosque is set it is inserted first in the
// same transaction and p references it, so a failed program insert leaves no
// orphan mosque.
func (r *Repository) CreateProgram(ctx context.Context, p *models.Program, newMosque *models.Mosque) error {
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if newMosque != nil {
			if err := mosques.Insert(ctx, tx, newMosque); err != nil {
				return err
			}
			id := newMosque.ID
			p.MosqueID = &id
		}
		const q = `INSERT INTO programs (title, description, location, mosque_id, lead_teacher_id,
			price_monthly, thumbnail_path, is_active, created_by)
			VALUES ($1, NULLIF($2,''), NULLIF($3,''), $4, $5, $6, NULLIF($7,''), $8, $9)
			RETURNING id`
		return tx.QueryRow(ctx, q, p.Title, p.Description, p.Location, p.MosqueID, p.LeadTeacherID,
			p.PriceMonthly, p.ThumbnailPath, p.IsActive, p.CreatedBy).Scan(&p.ID)
	})
	if err != nil {
		return database.StoreError(err, "program")
	}
	stored, err := r.GetProgram(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *stored
	return nil
}

// GetProgram returns a program by ID, active or not.
func (r *Repository) GetProgram(ctx context.Context, id uuid.UUID) (*models.Program, error) {
	p, err := scanProgram(r.pool.QueryRow(ctx, programSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, database.StoreError(err, "program")
	}
	return p, nil
}

func (r *Repository) list(ctx context.Context, where string, args ...any) ([]models.Program, error) {
	rows, err := r.pool.Query(ctx, programSelect+where+` ORDER BY p.created_at DESC`, args...)
	if err != nil {
		return nil, database.StoreError(err, "program")
	}
	defer rows.Close()

	list := []models.Program{}
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, database.StoreError(err, "program")
		}
		list = append(list, *p)
	}
	return list, database.StoreError(rows.Err(), "program")
}

// ListActivePrograms returns active programs, newest first.
func (r *Repository) ListActivePrograms(ctx context.Context) ([]models.Program, error) {
	return r.list(ctx, ` WHERE p.is_active`)
}

// ListProgramsByLead returns every program led by leadID, newest first.
func (r *Repository) ListProgramsByLead(ctx context.Context, leadID uuid.UUID) ([]models.Program, error) {
	return r.list(ctx, ` WHERE p.lead_teacher_id = $1`, leadID)
}

// SetProgramActive flips the active flag and returns the updated program.
func (r *Repository) SetProgramActive(ctx context.Context, id uuid.UUID, active bool) (*models.Program, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE programs SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return nil, database.StoreError(err, "program")
	}
	if tag.RowsAffected() == 0 {
		return nil, database.StoreError(pgx.ErrNoRows, "program")
	}
	return r.GetProgram(ctx, id)
}

// GetMosque returns a mosque by ID.
func (r *Repository) GetMosque(ctx context.Context, id uuid.UUID) (*models.Mosque, error) {
	return mosques.Get(ctx, r.pool, id)
}
