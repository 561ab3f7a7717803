package mosques

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/database"
)

// Repository handles mosque persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a mosques repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert creates a mosque using db, which may be a transaction.
func Insert(ctx context.Context, db database.DBTX, m *models.Mosque) error {
	const q = `INSERT INTO mosques (name, address, picture_path, created_by)
		VALUES ($1, NULLIF($2,''), NULLIF($3,''), $4)
		RETURNING id, created_at`
	err := db.QueryRow(ctx, q, m.Name, m.Address, m.PicturePath, m.CreatedBy).Scan(&m.ID, &m.CreatedAt)
	return database.StoreError(err, "mosque")
}

// CreateMosque creates a mosque.
func (r *Repository) CreateMosque(ctx context.Context, m *models.Mosque) error {
	return Insert(ctx, r.pool, m)
}

// Get returns a mosque by ID using db.
func Get(ctx context.Context, db database.DBTX, id uuid.UUID) (*models.Mosque, error) {
	const q = `SELECT id, name, COALESCE(address,''), COALESCE(picture_path,''), created_by, created_at FROM mosques WHERE id = $1`
	var m models.Mosque
	err := db.QueryRow(ctx, q, id).Scan(&m.ID, &m.Name, &m.Address, &m.PicturePath, &m.CreatedBy, &m.CreatedAt)
	if err != nil {
		return nil, database.StoreError(err, "mosque")
	}
	return &m, nil
}

// GetMosque returns a mosque by ID.
func (r *Repository) GetMosque(ctx context.Context, id uuid.UUID) (*models.Mosque, error) {
	return Get(ctx, r.pool, id)
}

// ListMosques returns all mosques ordered by name.
func (r *Repository) ListMosques(ctx context.Context) ([]models.Mosque, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, COALESCE(address,''), COALESCE(picture_path,''), created_by, created_at
		FROM mosques ORDER BY name, created_at`)
	if err != nil {
		return nil, database.StoreError(err, "mosque")
	}
	defer rows.Close()
	list := []models.Mosque{}
	for rows.Next() {
		var m models.Mosque
		if err := rows.Scan(&m.ID, &m.Name, &m.Address, &m.PicturePath, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, database.StoreError(err, "mosque")
		}
		list = append(list, m)
	}
	return list, database.StoreError(rows.Err(), "mosque")
}
