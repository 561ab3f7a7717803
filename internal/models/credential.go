package models

import (
	"time"

	"github.com/google/uuid"
)

// Credential is a password login held by the built-in identity provider.
type Credential struct {
	AccountID    uuid.UUID `json:"account_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
