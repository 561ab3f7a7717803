package models

import (
	"time"

	"github.com/google/uuid"
)

// Program is a recurring class offered at (optionally) a mosque and led by one teacher.
type Program struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Location      string     `json:"location,omitempty"`
	MosqueID      *uuid.UUID `json:"mosque_id,omitempty"`
	LeadTeacherID uuid.UUID  `json:"lead_teacher_id"`
	PriceMonthly  float64    `json:"price_monthly"`
	ThumbnailPath string     `json:"thumbnail_path,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// Joined view fields, filled by listing and detail queries.
	LeadTeacherName   string `json:"lead_teacher_name,omitempty"`
	LeadTeacherAvatar string `json:"lead_teacher_avatar,omitempty"`
	MosqueName        string `json:"mosque_name,omitempty"`
	EnrollmentCount   int    `json:"enrollment_count"`
}

// NewProgram is the input to program creation. PriceMonthly is the raw
// submitted value; absent or non-numeric means 0. MosqueMode is "existing"
// (default) or "new".
type NewProgram struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Location      string     `json:"location"`
	LeadTeacherID *uuid.UUID `json:"lead_teacher_id"`
	PriceMonthly  string     `json:"price_monthly"`
	ThumbnailPath string     `json:"thumbnail_path"`
	MosqueMode    string     `json:"mosque_mode"`
	MosqueID      *uuid.UUID `json:"mosque_id"`
	NewMosque     *NewMosque `json:"new_mosque"`
}

const (
	MosqueModeExisting = "existing"
	MosqueModeNew      = "new"
)
