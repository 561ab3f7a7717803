// Package memstore is an in-process implementation of every repository
// interface. It enforces the same uniqueness, soft-delete and join semantics as
// the Postgres schema and backs the "memory" database driver and service tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noor-academy/backend/internal/models"
	"github.com/noor-academy/backend/pkg/apperr"
)

type enrollmentKey struct {
	student uuid.UUID
	program uuid.UUID
}

type programRow struct {
	models.Program
	seq int
}

// Store holds all rows in maps guarded by one mutex.
type Store struct {
	mu          sync.RWMutex
	accounts    map[uuid.UUID]models.Account
	snapshots   []models.RemovedAccountSnapshot
	credentials map[uuid.UUID]models.Credential
	mosques     map[uuid.UUID]models.Mosque
	mosqueOrder []uuid.UUID
	programs    map[uuid.UUID]programRow
	enrollments map[enrollmentKey]models.Enrollment
	seq         int
	now         func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts:    make(map[uuid.UUID]models.Account),
		credentials: make(map[uuid.UUID]models.Credential),
		mosques:     make(map[uuid.UUID]models.Mosque),
		programs:    make(map[uuid.UUID]programRow),
		enrollments: make(map[enrollmentKey]models.Enrollment),
		now:         time.Now,
	}
}

// PutAccount inserts or replaces an account row. Test and seed helper.
func (s *Store) PutAccount(a models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
		a.UpdatedAt = a.CreatedAt
	}
	s.accounts[a.ID] = a
}

// ---- accounts ----

// GetAccount returns an account by ID, including removed ones.
func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, apperr.NotFound("account not found")
	}
	return &a, nil
}

// EnsureAccount inserts a unless its ID exists and returns the stored row.
func (s *Store) EnsureAccount(_ context.Context, a *models.Account) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.accounts[a.ID]; ok {
		return &existing, nil
	}
	if a.Email != "" && s.emailTaken(a.Email, a.ID) {
		return nil, apperr.Conflict("account already exists")
	}
	row := *a
	row.CreatedAt = s.now()
	row.UpdatedAt = row.CreatedAt
	s.accounts[row.ID] = row
	return &row, nil
}

func (s *Store) emailTaken(email string, except uuid.UUID) bool {
	for id, a := range s.accounts {
		if id != except && a.Email != "" && strings.EqualFold(a.Email, email) {
			return true
		}
	}
	return false
}

// ListAccounts returns live accounts ordered by name.
func (s *Store) ListAccounts(_ context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := []models.Account{}
	for _, a := range s.accounts {
		if !a.Removed {
			list = append(list, a)
		}
	}
	sortAccounts(list)
	return list, nil
}

// ListByRole returns live accounts holding role.
func (s *Store) ListByRole(ctx context.Context, role models.Role) ([]models.AccountPublic, error) {
	all, _ := s.ListAccounts(ctx)
	list := []models.AccountPublic{}
	for i := range all {
		if all[i].Role == role {
			list = append(list, all[i].ToPublic())
		}
	}
	return list, nil
}

func sortAccounts(list []models.Account) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].FullName != list[j].FullName {
			return list[i].FullName < list[j].FullName
		}
		return list[i].ID.String() < list[j].ID.String()
	})
}

// UpdateRole sets a live account's role.
func (s *Store) UpdateRole(_ context.Context, id uuid.UUID, role models.Role) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.Removed {
		return nil, apperr.NotFound("account not found")
	}
	a.Role = role
	a.UpdatedAt = s.now()
	s.accounts[id] = a
	return &a, nil
}

// RemoveAccount atomically writes the snapshot and soft-deletes the account.
func (s *Store) RemoveAccount(_ context.Context, targetID, removedBy uuid.UUID, reason string, at time.Time) (*models.RemovedAccountSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[targetID]
	if !ok {
		return nil, apperr.NotFound("account not found")
	}
	if err := a.CheckRemovable(); err != nil {
		return nil, err
	}
	snap := models.RemovedAccountSnapshot{
		ID:        uuid.New(),
		AccountID: a.ID,
		FullName:  a.FullName,
		Email:     a.Email,
		PriorRole: a.Role,
		RemovedBy: removedBy,
		Reason:    reason,
		CreatedAt: at,
	}
	s.snapshots = append(s.snapshots, snap)

	by := removedBy
	removedAt := at
	a.Removed = true
	a.RemovedAt = &removedAt
	a.RemovedBy = &by
	a.Email = ""
	a.UpdatedAt = at
	s.accounts[targetID] = a
	return &snap, nil
}

// GetSnapshot returns the latest removal snapshot for an account.
func (s *Store) GetSnapshot(_ context.Context, accountID uuid.UUID) (*models.RemovedAccountSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.snapshots) - 1; i >= 0; i-- {
		if s.snapshots[i].AccountID == accountID {
			snap := s.snapshots[i]
			return &snap, nil
		}
	}
	return nil, apperr.NotFound("removed account snapshot not found")
}

// SnapshotCount returns the number of snapshots written. Test helper.
func (s *Store) SnapshotCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

// ---- credentials ----

// CreateCredential stores a password credential. Emails are unique case-insensitively.
func (s *Store) CreateCredential(_ context.Context, c *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.credentials {
		if strings.EqualFold(existing.Email, c.Email) {
			return apperr.Conflict("credential already exists")
		}
	}
	if _, ok := s.credentials[c.AccountID]; ok {
		return apperr.Conflict("credential already exists")
	}
	c.CreatedAt = s.now()
	s.credentials[c.AccountID] = *c
	return nil
}

// GetCredentialByEmail returns a credential by email.
func (s *Store) GetCredentialByEmail(_ context.Context, email string) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.credentials {
		if strings.EqualFold(c.Email, email) {
			return &c, nil
		}
	}
	return nil, apperr.NotFound("credential not found")
}

// CredentialExists reports whether accountID still holds a credential.
func (s *Store) CredentialExists(_ context.Context, accountID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.credentials[accountID]
	return ok, nil
}

// DeleteCredential removes a credential. Missing credentials are not an error.
func (s *Store) DeleteCredential(_ context.Context, accountID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.credentials, accountID)
	return nil
}

// ---- mosques ----

// CreateMosque inserts a mosque.
func (s *Store) CreateMosque(_ context.Context, m *models.Mosque) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertMosque(m)
	return nil
}

func (s *Store) insertMosque(m *models.Mosque) {
	m.ID = uuid.New()
	m.CreatedAt = s.now()
	s.mosques[m.ID] = *m
	s.mosqueOrder = append(s.mosqueOrder, m.ID)
}

// GetMosque returns a mosque by ID.
func (s *Store) GetMosque(_ context.Context, id uuid.UUID) (*models.Mosque, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.mosques[id]
	if !ok {
		return nil, apperr.NotFound("mosque not found")
	}
	return &m, nil
}

// ListMosques returns mosques ordered by name.
func (s *Store) ListMosques(_ context.Context) ([]models.Mosque, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]models.Mosque, 0, len(s.mosqueOrder))
	for _, id := range s.mosqueOrder {
		list = append(list, s.mosques[id])
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

// ---- programs ----

// CreateProgram inserts p, first inserting newMosque when given.
func (s *Store) CreateProgram(_ context.Context, p *models.Program, newMosque *models.Mosque) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.accounts[p.LeadTeacherID]
	if !ok {
		return apperr.Upstream(nil, "lead teacher foreign key violation")
	}
	if newMosque != nil {
		s.insertMosque(newMosque)
		id := newMosque.ID
		p.MosqueID = &id
	} else if p.MosqueID != nil {
		if _, ok := s.mosques[*p.MosqueID]; !ok {
			return apperr.Upstream(nil, "mosque foreign key violation")
		}
	}
	s.seq++
	p.ID = uuid.New()
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.programs[p.ID] = programRow{Program: *p, seq: s.seq}
	p.LeadTeacherName = lead.FullName
	p.LeadTeacherAvatar = lead.AvatarPath
	if p.MosqueID != nil {
		p.MosqueName = s.mosques[*p.MosqueID].Name
	}
	return nil
}

// view fills joined fields. Caller holds the lock.
func (s *Store) view(row programRow) models.Program {
	p := row.Program
	if lead, ok := s.accounts[p.LeadTeacherID]; ok {
		p.LeadTeacherName = lead.FullName
		p.LeadTeacherAvatar = lead.AvatarPath
	}
	if p.MosqueID != nil {
		p.MosqueName = s.mosques[*p.MosqueID].Name
	}
	p.EnrollmentCount = 0
	for k, e := range s.enrollments {
		if k.program != p.ID || e.Status != models.EnrollmentActive {
			continue
		}
		if st, ok := s.accounts[k.student]; !ok || st.Removed {
			continue
		}
		p.EnrollmentCount++
	}
	return p
}

// GetProgram returns a program with joined fields.
func (s *Store) GetProgram(_ context.Context, id uuid.UUID) (*models.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.programs[id]
	if !ok {
		return nil, apperr.NotFound("program not found")
	}
	p := s.view(row)
	return &p, nil
}

func (s *Store) listPrograms(keep func(models.Program) bool) []models.Program {
	rows := make([]programRow, 0, len(s.programs))
	for _, row := range s.programs {
		if keep(row.Program) {
			rows = append(rows, row)
		}
	}
	// Newest first, like the Postgres ORDER BY created_at DESC.
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })
	list := make([]models.Program, 0, len(rows))
	for _, row := range rows {
		list = append(list, s.view(row))
	}
	return list
}

// ListActivePrograms returns active programs, newest first.
func (s *Store) ListActivePrograms(_ context.Context) ([]models.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPrograms(func(p models.Program) bool { return p.IsActive }), nil
}

// ListProgramsByLead returns every program led by leadID, newest first.
func (s *Store) ListProgramsByLead(_ context.Context, leadID uuid.UUID) ([]models.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listPrograms(func(p models.Program) bool { return p.LeadTeacherID == leadID }), nil
}

// SetProgramActive flips a program's active flag.
func (s *Store) SetProgramActive(_ context.Context, id uuid.UUID, active bool) (*models.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.programs[id]
	if !ok {
		return nil, apperr.NotFound("program not found")
	}
	row.IsActive = active
	row.UpdatedAt = s.now()
	s.programs[id] = row
	p := s.view(row)
	return &p, nil
}

// ---- enrollments ----

// InsertEnrollment inserts e. A duplicate (student, program) pair is Conflict,
// as a unique violation would be.
func (s *Store) InsertEnrollment(_ context.Context, e *models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := enrollmentKey{student: e.StudentID, program: e.ProgramID}
	if _, ok := s.enrollments[k]; ok {
		return apperr.Conflict("enrollment already exists")
	}
	if _, ok := s.programs[e.ProgramID]; !ok {
		return apperr.Upstream(nil, "program foreign key violation")
	}
	e.CreatedAt = s.now()
	e.UpdatedAt = e.CreatedAt
	s.enrollments[k] = *e
	return nil
}

// GetEnrollment returns the enrollment for a pair.
func (s *Store) GetEnrollment(_ context.Context, studentID, programID uuid.UUID) (*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[enrollmentKey{student: studentID, program: programID}]
	if !ok {
		return nil, apperr.NotFound("enrollment not found")
	}
	return &e, nil
}

// DeleteEnrollment deletes the pair's row and reports whether one existed.
func (s *Store) DeleteEnrollment(_ context.Context, studentID, programID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := enrollmentKey{student: studentID, program: programID}
	_, ok := s.enrollments[k]
	delete(s.enrollments, k)
	return ok, nil
}

// UpdateEnrollmentStatus sets the pair's status.
func (s *Store) UpdateEnrollmentStatus(_ context.Context, studentID, programID uuid.UUID, status models.EnrollmentStatus) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := enrollmentKey{student: studentID, program: programID}
	e, ok := s.enrollments[k]
	if !ok {
		return nil, apperr.NotFound("enrollment not found")
	}
	e.Status = status
	e.UpdatedAt = s.now()
	s.enrollments[k] = e
	return &e, nil
}

// ListEnrolledPrograms returns the student's programs, newest enrollment first.
func (s *Store) ListEnrolledPrograms(_ context.Context, studentID uuid.UUID) ([]models.EnrolledProgram, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := []models.EnrolledProgram{}
	for k, e := range s.enrollments {
		if k.student != studentID {
			continue
		}
		row, ok := s.programs[k.program]
		if !ok {
			continue
		}
		list = append(list, models.EnrolledProgram{Program: s.view(row), Status: e.Status, EnrolledAt: e.CreatedAt})
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].EnrolledAt.Equal(list[j].EnrolledAt) {
			return list[i].EnrolledAt.After(list[j].EnrolledAt)
		}
		return list[i].ID.String() < list[j].ID.String()
	})
	return list, nil
}

// ListRoster returns the students enrolled in a program, ordered by name.
func (s *Store) ListRoster(_ context.Context, programID uuid.UUID) ([]models.RosterEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := []models.RosterEntry{}
	for k, e := range s.enrollments {
		if k.program != programID {
			continue
		}
		a, ok := s.accounts[k.student]
		if !ok || a.Removed {
			continue
		}
		list = append(list, models.RosterEntry{AccountPublic: a.ToPublic(), Status: e.Status, EnrolledAt: e.CreatedAt})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].FullName != list[j].FullName {
			return list[i].FullName < list[j].FullName
		}
		return list[i].ID.String() < list[j].ID.String()
	})
	return list, nil
}

// ListEnrolledProgramIDs returns the IDs of programs the student has a row for.
func (s *Store) ListEnrolledProgramIDs(_ context.Context, studentID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := []uuid.UUID{}
	for k := range s.enrollments {
		if k.student == studentID {
			ids = append(ids, k.program)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// EnrollmentCount returns the number of rows for a pair (0 or 1). Test helper.
func (s *Store) EnrollmentCount(studentID, programID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.enrollments[enrollmentKey{student: studentID, program: programID}]; ok {
		return 1
	}
	return 0
}
