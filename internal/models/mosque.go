package models

import (
	"time"

	"github.com/google/uuid"
)

// Mosque is a venue that programs may reference.
type Mosque struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address,omitempty"`
	PicturePath string    `json:"picture_path,omitempty"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewMosque is the input to mosque creation.
type NewMosque struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	PicturePath string `json:"picture_path"`
}
