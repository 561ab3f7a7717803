package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/noor-academy/backend/pkg/apperr"
)

// Role represents an account's role in the platform.
// The zero value means no role: unassigned in storage, unknown when resolved.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	// RoleUnknown is returned by role resolution for unauthenticated,
	// unassigned, removed or unreadable accounts.
	RoleUnknown Role = ""
)

// Valid reports whether r is one of the assignable roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// ParseRole converts a stored or submitted value into a Role.
// Anything outside the assignable set is RoleUnknown with ok=false.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	if !r.Valid() {
		return RoleUnknown, false
	}
	return r, true
}

// Account is a platform profile keyed by the identity provider's account id.
type Account struct {
	ID         uuid.UUID  `json:"id"`
	FullName   string     `json:"full_name"`
	Email      string     `json:"email"`
	AvatarPath string     `json:"avatar_path,omitempty"`
	Role       Role       `json:"role"`
	Removed    bool       `json:"removed"`
	RemovedAt  *time.Time `json:"removed_at,omitempty"`
	RemovedBy  *uuid.UUID `json:"removed_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CheckRemovable reports why the account cannot be removed right now, if anything.
func (a *Account) CheckRemovable() error {
	if a.Removed {
		return apperr.NotFound("account already removed")
	}
	if a.Role == RoleAdmin {
		return apperr.Validation("admin accounts cannot be removed")
	}
	return nil
}

// AccountPublic is the subset of Account shown in rosters and listings.
type AccountPublic struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	AvatarPath string    `json:"avatar_path,omitempty"`
	Role       Role      `json:"role"`
}

// ToPublic converts Account to AccountPublic.
func (a *Account) ToPublic() AccountPublic {
	return AccountPublic{
		ID:         a.ID,
		FullName:   a.FullName,
		Email:      a.Email,
		AvatarPath: a.AvatarPath,
		Role:       a.Role,
	}
}

// AccountsByRole groups live accounts for the admin users page.
type AccountsByRole struct {
	Admins     []AccountPublic `json:"admins"`
	Teachers   []AccountPublic `json:"teachers"`
	Students   []AccountPublic `json:"students"`
	Unassigned []AccountPublic `json:"unassigned"`
}

// GroupByRole buckets accounts by role. Removed accounts are skipped.
func GroupByRole(list []Account) AccountsByRole {
	out := AccountsByRole{
		Admins:     []AccountPublic{},
		Teachers:   []AccountPublic{},
		Students:   []AccountPublic{},
		Unassigned: []AccountPublic{},
	}
	for i := range list {
		a := &list[i]
		if a.Removed {
			continue
		}
		switch a.Role {
		case RoleAdmin:
			out.Admins = append(out.Admins, a.ToPublic())
		case RoleTeacher:
			out.Teachers = append(out.Teachers, a.ToPublic())
		case RoleStudent:
			out.Students = append(out.Students, a.ToPublic())
		default:
			out.Unassigned = append(out.Unassigned, a.ToPublic())
		}
	}
	return out
}

// RemovedAccountSnapshot is the append-only audit record written on removal.
type RemovedAccountSnapshot struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	PriorRole Role      `json:"prior_role"`
	RemovedBy uuid.UUID `json:"removed_by"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}
