package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/haneul-lab/storybook-api/internal/crypto"
	"github.com/haneul-lab/storybook-api/internal/lock"
	"github.com/haneul-lab/storybook-api/internal/models"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context) ([]models.Teacher, error)
	Append(ctx context.Context, t *models.Teacher) error
	WriteApproval(ctx context.Context, t *models.Teacher) error
	UpdateRole(ctx context.Context, rowIndex int, role models.TeacherRole) error
	UpdateStatus(ctx context.Context, rowIndex int, status models.TeacherStatus) error
	Delete(ctx context.Context, rowIndex int) error
}

// TeacherService implements the staff roster and the approval workflow.
type TeacherService struct {
	teachers  teacherRepository
	settings  settingsStore
	locker    lock.Locker
	lockWait  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService instance.
func NewTeacherService(teachers teacherRepository, settings settingsStore, locker lock.Locker, lockWait time.Duration, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockWait <= 0 {
		lockWait = 10 * time.Second
	}
	return &TeacherService{teachers: teachers, settings: settings, locker: locker, lockWait: lockWait, validator: validate, logger: logger}
}

// List returns every teacher record.
func (s *TeacherService) List(ctx context.Context) ([]models.Teacher, error) {
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	return teachers, nil
}

// Register self-registers a teacher. The first-ever record becomes the
// approved admin; every later registration starts pending with the teacher
// role. The shared-row mutation runs under the write lock.
func (s *TeacherService) Register(ctx context.Context, req models.RegisterTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "email, name, and a password of 8+ characters are required")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	for i := range teachers {
		if strings.EqualFold(teachers[i].Email, email) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a teacher with this email already exists")
		}
	}

	salt, err := s.salt(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	teacher := models.Teacher{
		Email:        email,
		Name:         req.Name,
		PasswordHash: crypto.Hash(req.Password, crypto.TagTeacherPassword, salt),
		Role:         models.RoleTeacher,
		Status:       models.TeacherPending,
		RegisteredAt: now,
	}
	if len(teachers) == 0 {
		teacher.Role = models.RoleAdmin
		teacher.Status = models.TeacherApproved
		teacher.ApprovedAt = &now
	}

	if err := s.teachers.Append(ctx, &teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register teacher")
	}
	return &teacher, nil
}

// Approve moves a pending teacher to approved. Rejects when the record is
// not currently pending, making re-approval a no-op error instead of a
// silent overwrite.
func (s *TeacherService) Approve(ctx context.Context, actor models.AuthContext, email string) (*models.Teacher, error) {
	return s.resolve(ctx, actor, email, models.TeacherApproved)
}

// Reject moves a pending teacher to rejected.
func (s *TeacherService) Reject(ctx context.Context, actor models.AuthContext, email string) (*models.Teacher, error) {
	return s.resolve(ctx, actor, email, models.TeacherRejected)
}

func (s *TeacherService) resolve(ctx context.Context, actor models.AuthContext, email string, outcome models.TeacherStatus) (*models.Teacher, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	teacher, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no teacher with this email")
	}
	if teacher.Status != models.TeacherPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only a pending teacher can be resolved")
	}

	now := time.Now().UTC()
	teacher.Status = outcome
	if outcome == models.TeacherApproved {
		teacher.ApprovedAt = &now
	}
	if err := s.teachers.WriteApproval(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// UpdateRole changes a teacher's role. An admin cannot demote their own
// account through this operation.
func (s *TeacherService) UpdateRole(ctx context.Context, actor models.AuthContext, email string, role models.TeacherRole) (*models.Teacher, error) {
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if strings.EqualFold(actor.Email, email) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot change your own role")
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	teacher, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no teacher with this email")
	}

	if err := s.teachers.UpdateRole(ctx, teacher.RowIndex, role); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update role")
	}
	teacher.Role = role
	return teacher, nil
}

// Suspend marks an approved teacher suspended.
func (s *TeacherService) Suspend(ctx context.Context, actor models.AuthContext, email string) error {
	if actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	if strings.EqualFold(actor.Email, email) {
		return appErrors.Clone(appErrors.ErrForbidden, "you cannot suspend your own account")
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	teacher, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if teacher == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "no teacher with this email")
	}
	if err := s.teachers.UpdateStatus(ctx, teacher.RowIndex, models.TeacherSuspended); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to suspend teacher")
	}
	return nil
}

// Delete removes a teacher record. An admin cannot delete their own account.
func (s *TeacherService) Delete(ctx context.Context, actor models.AuthContext, email string) error {
	if actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}
	if strings.EqualFold(actor.Email, email) {
		return appErrors.Clone(appErrors.ErrForbidden, "you cannot delete your own account")
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	teacher, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if teacher == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "no teacher with this email")
	}
	if err := s.teachers.Delete(ctx, teacher.RowIndex); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete teacher")
	}
	return nil
}

func (s *TeacherService) acquire(ctx context.Context) (lock.ReleaseFunc, error) {
	release, err := s.locker.Acquire(ctx, s.lockWait)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, appErrors.ErrContention
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire write lock")
	}
	return release, nil
}

func (s *TeacherService) findByEmail(ctx context.Context, email string) (*models.Teacher, error) {
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	for i := range teachers {
		if strings.EqualFold(teachers[i].Email, email) {
			return &teachers[i], nil
		}
	}
	return nil, nil
}

func (s *TeacherService) salt(ctx context.Context) (string, error) {
	salt, found, err := s.settings.Get(ctx, models.SettingSalt)
	if err != nil || !found || salt == "" {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "credential salt is not available")
	}
	return salt, nil
}
