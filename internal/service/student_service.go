package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haneul-lab/storybook-api/internal/crypto"
	"github.com/haneul-lab/storybook-api/internal/lock"
	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/requestcache"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context) ([]models.Student, error)
	Append(ctx context.Context, s *models.Student) error
	WriteActivation(ctx context.Context, s *models.Student) error
	UpdateStatus(ctx context.Context, rowIndex int, status models.StudentStatus) error
	Delete(ctx context.Context, rowIndex int) error
}

// BulkRegisterResult summarizes a CSV roster import.
type BulkRegisterResult struct {
	Registered int      `json:"registered"`
	Skipped    []string `json:"skipped,omitempty"`
}

// StudentService implements the teacher-facing roster operations.
type StudentService struct {
	students  studentRepository
	settings  saltSource
	locker    lock.Locker
	lockWait  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService instance.
func NewStudentService(students studentRepository, settings saltSource, locker lock.Locker, lockWait time.Duration, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockWait <= 0 {
		lockWait = 10 * time.Second
	}
	return &StudentService{students: students, settings: settings, locker: locker, lockWait: lockWait, validator: validate, logger: logger}
}

// List returns the roster.
func (s *StudentService) List(ctx context.Context, rc *requestcache.Cache) ([]models.Student, error) {
	students, err := rc.Students(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	return students, nil
}

// Register adds a single student. Status starts pending unless a PIN is
// supplied at creation. Uniqueness of (name, number) is checked on a fresh
// read under the write lock.
func (s *StudentService) Register(ctx context.Context, rc *requestcache.Cache, req models.RegisterStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name and a number between 1 and 100 are required")
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rc.InvalidateStudents()
	existing, err := rc.FindStudent(ctx, req.Name, req.Number)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("student (%s, %d) is already registered", req.Name, req.Number))
	}

	student, err := s.buildStudent(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.students.Append(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register student")
	}
	rc.InvalidateStudents()
	return student, nil
}

// BulkRegister imports a roster from CSV lines of the form name,number[,pin].
// Invalid or duplicate lines are skipped with a reason; the whole import runs
// under one lock acquisition.
func (s *StudentService) BulkRegister(ctx context.Context, rc *requestcache.Cache, csvData string) (*BulkRegisterResult, error) {
	reader := csv.NewReader(strings.NewReader(csvData))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "CSV data could not be parsed")
	}
	if len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "CSV data is empty")
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rc.InvalidateStudents()
	roster, err := rc.Students(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	seen := make(map[string]struct{}, len(roster))
	for _, st := range roster {
		seen[rosterKey(st.Name, st.Number)] = struct{}{}
	}

	result := &BulkRegisterResult{}
	for lineNo, record := range records {
		req, reason := parseRosterLine(record)
		if reason != "" {
			result.Skipped = append(result.Skipped, fmt.Sprintf("line %d: %s", lineNo+1, reason))
			continue
		}
		if _, dup := seen[rosterKey(req.Name, req.Number)]; dup {
			result.Skipped = append(result.Skipped, fmt.Sprintf("line %d: (%s, %d) already registered", lineNo+1, req.Name, req.Number))
			continue
		}
		if err := s.validator.Struct(req); err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("line %d: invalid entry", lineNo+1))
			continue
		}

		student, err := s.buildStudent(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := s.students.Append(ctx, student); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register student")
		}
		seen[rosterKey(req.Name, req.Number)] = struct{}{}
		result.Registered++
	}
	rc.InvalidateStudents()
	return result, nil
}

// Deactivate suspends a student's logins.
func (s *StudentService) Deactivate(ctx context.Context, rc *requestcache.Cache, name string, number int) error {
	return s.setStatus(ctx, rc, name, number, models.StudentInactive)
}

// Reactivate restores a deactivated student. A student who never set a PIN
// returns to pending, keeping the status/PIN invariant intact.
func (s *StudentService) Reactivate(ctx context.Context, rc *requestcache.Cache, name string, number int) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	rc.InvalidateStudents()
	student, err := rc.FindStudent(ctx, name, number)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if student == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "this student is not registered")
	}

	status := models.StudentActive
	if !student.HasPIN() {
		status = models.StudentPending
	}
	if err := s.students.UpdateStatus(ctx, student.RowIndex, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	rc.InvalidateStudents()
	return nil
}

// ResetPIN sets a fresh PIN on behalf of a student and activates the account.
func (s *StudentService) ResetPIN(ctx context.Context, rc *requestcache.Cache, name string, number int, pin string) error {
	if len(pin) != 6 || !isDigits(pin) {
		return appErrors.Clone(appErrors.ErrValidation, "the PIN must be exactly 6 digits")
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	rc.InvalidateStudents()
	student, err := rc.FindStudent(ctx, name, number)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if student == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "this student is not registered")
	}

	salt, err := s.salt(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	student.PINHash = crypto.Hash(pin, crypto.TagStudentPIN, salt)
	student.Status = models.StudentActive
	student.LastAccessAt = &now
	if err := s.students.WriteActivation(ctx, student); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset PIN")
	}
	rc.InvalidateStudents()
	return nil
}

// Delete removes a student row, independent of any authored works.
func (s *StudentService) Delete(ctx context.Context, rc *requestcache.Cache, name string, number int) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	rc.InvalidateStudents()
	student, err := rc.FindStudent(ctx, name, number)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if student == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "this student is not registered")
	}
	if err := s.students.Delete(ctx, student.RowIndex); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	rc.InvalidateStudents()
	return nil
}

func (s *StudentService) setStatus(ctx context.Context, rc *requestcache.Cache, name string, number int, status models.StudentStatus) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	rc.InvalidateStudents()
	student, err := rc.FindStudent(ctx, name, number)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if student == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "this student is not registered")
	}
	if err := s.students.UpdateStatus(ctx, student.RowIndex, status); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	rc.InvalidateStudents()
	return nil
}

func (s *StudentService) buildStudent(ctx context.Context, req models.RegisterStudentRequest) (*models.Student, error) {
	student := &models.Student{
		Name:      req.Name,
		Number:    req.Number,
		Token:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Status:    models.StudentPending,
	}
	if req.PIN != "" {
		salt, err := s.salt(ctx)
		if err != nil {
			return nil, err
		}
		student.PINHash = crypto.Hash(req.PIN, crypto.TagStudentPIN, salt)
		student.Status = models.StudentActive
	}
	return student, nil
}

func (s *StudentService) acquire(ctx context.Context) (lock.ReleaseFunc, error) {
	release, err := s.locker.Acquire(ctx, s.lockWait)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, appErrors.ErrContention
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire write lock")
	}
	return release, nil
}

func (s *StudentService) salt(ctx context.Context) (string, error) {
	salt, found, err := s.settings.Get(ctx, models.SettingSalt)
	if err != nil || !found || salt == "" {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "credential salt is not available")
	}
	return salt, nil
}

func rosterKey(name string, number int) string {
	return fmt.Sprintf("%s:%d", name, number)
}

func parseRosterLine(record []string) (models.RegisterStudentRequest, string) {
	if len(record) < 2 {
		return models.RegisterStudentRequest{}, "expected name,number[,pin]"
	}
	name := strings.TrimSpace(record[0])
	if name == "" {
		return models.RegisterStudentRequest{}, "name is empty"
	}
	number, err := strconv.Atoi(strings.TrimSpace(record[1]))
	if err != nil || number < 1 || number > 100 {
		return models.RegisterStudentRequest{}, "number must be between 1 and 100"
	}
	req := models.RegisterStudentRequest{Name: name, Number: number}
	if len(record) >= 3 {
		pin := strings.TrimSpace(record[2])
		if pin != "" {
			if len(pin) != 6 || !isDigits(pin) {
				return models.RegisterStudentRequest{}, "PIN must be exactly 6 digits"
			}
			req.PIN = pin
		}
	}
	return req, ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
