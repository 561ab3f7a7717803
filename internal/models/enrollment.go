package models

import (
	"time"

	"github.com/google/uuid"
)

// EnrollmentStatus is the state of a (student, program) relationship.
type EnrollmentStatus string

const (
	EnrollmentPending  EnrollmentStatus = "pending"
	EnrollmentActive   EnrollmentStatus = "active"
	EnrollmentRejected EnrollmentStatus = "rejected"
)

// Enrollment links a student to a program. At most one row exists per pair.
type Enrollment struct {
	StudentID uuid.UUID        `json:"student_id"`
	ProgramID uuid.UUID        `json:"program_id"`
	Status    EnrollmentStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// EnrolledProgram is a program as seen from a student's dashboard.
type EnrolledProgram struct {
	Program
	Status     EnrollmentStatus `json:"enrollment_status"`
	EnrolledAt time.Time        `json:"enrolled_at"`
}

// RosterEntry is one student on a program's roster.
type RosterEntry struct {
	AccountPublic
	Status     EnrollmentStatus `json:"enrollment_status"`
	EnrolledAt time.Time        `json:"enrolled_at"`
}
