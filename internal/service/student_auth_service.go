package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/haneul-lab/storybook-api/internal/crypto"
	"github.com/haneul-lab/storybook-api/internal/lock"
	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/ratelimit"
	"github.com/haneul-lab/storybook-api/internal/requestcache"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
)

const actionStudentLogin = "student-login"

type studentWriter interface {
	WriteActivation(ctx context.Context, s *models.Student) error
	UpdateLastAccess(ctx context.Context, rowIndex int, ts time.Time) error
}

type saltSource interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// StudentAuthService implements student PIN and token login plus the
// first-time PIN setup.
type StudentAuthService struct {
	students  studentWriter
	settings  saltSource
	limiter   *ratelimit.Limiter
	locker    lock.Locker
	lockWait  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentAuthService constructs a StudentAuthService instance.
func NewStudentAuthService(students studentWriter, settings saltSource, limiter *ratelimit.Limiter, locker lock.Locker, lockWait time.Duration, validate *validator.Validate, logger *zap.Logger) *StudentAuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockWait <= 0 {
		lockWait = 10 * time.Second
	}
	return &StudentAuthService{
		students:  students,
		settings:  settings,
		limiter:   limiter,
		locker:    locker,
		lockWait:  lockWait,
		validator: validate,
		logger:    logger,
	}
}

func studentIdentifier(name string, number int) string {
	return fmt.Sprintf("student:%s:%d", name, number)
}

// Login authenticates a student by PIN. The rate limit is consulted before
// the credential is touched at all; a failed digest compare records one
// attempt, a success resets the counter.
func (s *StudentAuthService) Login(ctx context.Context, rc *requestcache.Cache, req models.StudentLoginRequest) (*models.StudentIdentity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name, number, and a 6-digit PIN are required")
	}

	identifier := studentIdentifier(req.Name, req.Number)
	decision := s.limiter.Check(ctx, actionStudentLogin, identifier)
	if !decision.Allowed {
		return nil, lockedOutError(decision)
	}

	student, err := rc.FindStudent(ctx, req.Name, req.Number)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "this student is not registered")
	}

	switch student.Status {
	case models.StudentPending:
		return nil, appErrors.ErrNeedPINSetup
	case models.StudentInactive:
		return nil, appErrors.ErrInactiveAccount
	}

	salt, err := s.salt(ctx)
	if err != nil {
		return nil, err
	}

	if !crypto.Verify(req.PIN, crypto.TagStudentPIN, salt, student.PINHash) {
		s.limiter.RecordFailure(ctx, actionStudentLogin, identifier)
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "the PIN does not match")
	}

	s.limiter.Reset(ctx, actionStudentLogin, identifier)

	if err := s.students.UpdateLastAccess(ctx, student.RowIndex, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update student last access", zap.Error(err))
	}

	return &models.StudentIdentity{Name: student.Name, Number: student.Number, Token: student.Token}, nil
}

// TokenLogin authenticates by the QR token. The token itself is the
// high-entropy secret, so there is no PIN check and no rate limiting.
func (s *StudentAuthService) TokenLogin(ctx context.Context, rc *requestcache.Cache, token string) (*models.StudentIdentity, error) {
	if token == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "token is required")
	}

	student, err := rc.FindStudentByToken(ctx, token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if student == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if student.Status != models.StudentActive {
		return nil, appErrors.ErrInactiveAccount
	}

	if err := s.students.UpdateLastAccess(ctx, student.RowIndex, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update student last access", zap.Error(err))
	}

	return &models.StudentIdentity{Name: student.Name, Number: student.Number, Token: student.Token}, nil
}

// SetPIN performs the first-time PIN setup for a pending student. The whole
// mutation runs under the write lock; the student row is re-read after
// acquisition so the row index and state are current.
func (s *StudentAuthService) SetPIN(ctx context.Context, rc *requestcache.Cache, req models.SetPINRequest) (*models.StudentIdentity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name, number, and a 6-digit PIN are required")
	}

	release, err := s.locker.Acquire(ctx, s.lockWait)
	if err != nil {
		if err == lock.ErrNotAcquired {
			return nil, appErrors.ErrContention
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire write lock")
	}
	defer release()

	rc.InvalidateStudents()
	student, err := rc.FindStudent(ctx, req.Name, req.Number)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if student == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "this student is not registered")
	}
	if student.Status != models.StudentPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a PIN has already been set for this student")
	}

	salt, err := s.salt(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	student.PINHash = crypto.Hash(req.PIN, crypto.TagStudentPIN, salt)
	student.LastAccessAt = &now
	student.Status = models.StudentActive

	if err := s.students.WriteActivation(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save PIN")
	}
	rc.InvalidateStudents()

	return &models.StudentIdentity{Name: student.Name, Number: student.Number, Token: student.Token}, nil
}

func (s *StudentAuthService) salt(ctx context.Context) (string, error) {
	salt, found, err := s.settings.Get(ctx, models.SettingSalt)
	if err != nil || !found || salt == "" {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "credential salt is not available")
	}
	return salt, nil
}

func lockedOutError(decision ratelimit.Decision) *appErrors.Error {
	return appErrors.Clone(appErrors.ErrRateLimited,
		fmt.Sprintf("too many failed attempts, try again in about %d minutes", decision.RetryAfterMinutes))
}
