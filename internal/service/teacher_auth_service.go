package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haneul-lab/storybook-api/internal/crypto"
	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/ratelimit"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
)

const (
	actionTeacherLogin = "teacher-login"

	// Identifier used for the shared single-PIN mode, which has no
	// per-account key to rate limit on.
	teacherPINIdentifier = "teacher"
)

type teacherAuthRepository interface {
	List(ctx context.Context) ([]models.Teacher, error)
	UpdateLastAccess(ctx context.Context, rowIndex int, ts time.Time) error
}

type settingsStore interface {
	All(ctx context.Context) (map[string]string, error)
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// TeacherAuthConfig defines session lifetimes and the federated token check.
type TeacherAuthConfig struct {
	PINSessionTTL      time.Duration
	EmailSessionTTL    time.Duration
	FederatedJWTSecret string
	FederatedJWTIssuer string
}

// TeacherAuthService implements the three teacher login flows and the
// authorization check used by protected routes.
type TeacherAuthService struct {
	teachers  teacherAuthRepository
	settings  settingsStore
	limiter   *ratelimit.Limiter
	validator *validator.Validate
	logger    *zap.Logger
	config    TeacherAuthConfig
}

// NewTeacherAuthService constructs a TeacherAuthService instance.
func NewTeacherAuthService(teachers teacherAuthRepository, settings settingsStore, limiter *ratelimit.Limiter, validate *validator.Validate, logger *zap.Logger, config TeacherAuthConfig) *TeacherAuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.PINSessionTTL <= 0 {
		config.PINSessionTTL = time.Hour
	}
	if config.EmailSessionTTL <= 0 {
		config.EmailSessionTTL = 8 * time.Hour
	}
	return &TeacherAuthService{teachers: teachers, settings: settings, limiter: limiter, validator: validate, logger: logger, config: config}
}

// PINLogin authenticates against the shared classroom PIN held in settings.
func (s *TeacherAuthService) PINLogin(ctx context.Context, req models.TeacherPINLoginRequest) (*models.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "a 6-digit PIN is required")
	}

	decision := s.limiter.Check(ctx, actionTeacherLogin, teacherPINIdentifier)
	if !decision.Allowed {
		return nil, lockedOutError(decision)
	}

	stored, found, err := s.settings.Get(ctx, models.SettingTeacherPINHash)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	if !found || stored == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "the teacher PIN has not been configured")
	}

	salt, err := s.salt(ctx)
	if err != nil {
		return nil, err
	}

	if !crypto.Verify(req.PIN, crypto.TagTeacherPIN, salt, stored) {
		s.limiter.RecordFailure(ctx, actionTeacherLogin, teacherPINIdentifier)
		return nil, appErrors.ErrInvalidCredentials
	}
	s.limiter.Reset(ctx, actionTeacherLogin, teacherPINIdentifier)

	return s.issueSession(ctx, "", s.config.PINSessionTTL)
}

// CredentialsLogin authenticates one teacher by email and password.
func (s *TeacherAuthService) CredentialsLogin(ctx context.Context, req models.TeacherCredentialsLoginRequest) (*models.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "email and password are required")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	decision := s.limiter.Check(ctx, actionTeacherLogin, email)
	if !decision.Allowed {
		return nil, lockedOutError(decision)
	}

	teacher, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		// Same denial as a bad password: the flow never reveals which
		// factor was wrong.
		s.limiter.RecordFailure(ctx, actionTeacherLogin, email)
		return nil, appErrors.ErrInvalidCredentials
	}

	salt, err := s.salt(ctx)
	if err != nil {
		return nil, err
	}

	if !crypto.Verify(req.Password, crypto.TagTeacherPassword, salt, teacher.PasswordHash) {
		s.limiter.RecordFailure(ctx, actionTeacherLogin, email)
		return nil, appErrors.ErrInvalidCredentials
	}
	s.limiter.Reset(ctx, actionTeacherLogin, email)

	switch teacher.Status {
	case models.TeacherPending:
		return nil, appErrors.ErrPendingApproval
	case models.TeacherRejected, models.TeacherSuspended:
		return nil, appErrors.ErrForbidden
	}

	if err := s.teachers.UpdateLastAccess(ctx, teacher.RowIndex, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update teacher last access", zap.Error(err))
	}

	return s.issueSession(ctx, teacher.Email, s.config.EmailSessionTTL)
}

// FederatedLogin trusts an identity asserted by the hosting platform's
// account system, carried as a signed token. No password, no rate limiting;
// only an approved teacher record authorizes.
func (s *TeacherAuthService) FederatedLogin(ctx context.Context, req models.FederatedLoginRequest) (*models.SessionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "identity token is required")
	}

	email, err := s.verifyIdentityToken(req.IdentityToken)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "identity token is invalid")
	}

	teacher, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "this account is not registered as a teacher")
	}
	if teacher.Status != models.TeacherApproved {
		return nil, appErrors.ErrPendingApproval
	}

	if err := s.teachers.UpdateLastAccess(ctx, teacher.RowIndex, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update teacher last access", zap.Error(err))
	}

	return s.issueSession(ctx, teacher.Email, s.config.EmailSessionTTL)
}

// Authorize accepts either a valid non-expired bearer session token or a
// valid federated identity whose teacher record is approved. First match
// wins; no further checks.
func (s *TeacherAuthService) Authorize(ctx context.Context, bearerToken, identityToken string) (*models.AuthContext, error) {
	if bearerToken != "" {
		if authCtx, err := s.verifySession(ctx, bearerToken); err == nil {
			return authCtx, nil
		}
	}

	if identityToken != "" && s.config.FederatedJWTSecret != "" {
		email, err := s.verifyIdentityToken(identityToken)
		if err == nil {
			teacher, ferr := s.findByEmail(ctx, email)
			if ferr == nil && teacher != nil && teacher.Status == models.TeacherApproved {
				return &models.AuthContext{Email: teacher.Email, Role: teacher.Role, Via: models.AuthViaFederated}, nil
			}
		}
	}

	return nil, appErrors.ErrUnauthorized
}

// Logout discards the single active session.
func (s *TeacherAuthService) Logout(ctx context.Context) error {
	if err := s.settings.Delete(ctx, models.SettingTeacherSession); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear session")
	}
	return nil
}

func (s *TeacherAuthService) issueSession(ctx context.Context, email string, ttl time.Duration) (*models.SessionResponse, error) {
	now := time.Now().UTC()
	session := models.TeacherSession{
		Token:     uuid.NewString(),
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode session")
	}
	// Single active session: a new login overwrites any prior session blob.
	if err := s.settings.Set(ctx, models.SettingTeacherSession, string(raw)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}
	return &models.SessionResponse{Token: session.Token, Email: email, ExpiresAt: session.ExpiresAt}, nil
}

func (s *TeacherAuthService) verifySession(ctx context.Context, token string) (*models.AuthContext, error) {
	raw, found, err := s.settings.Get(ctx, models.SettingTeacherSession)
	if err != nil || !found || raw == "" {
		return nil, appErrors.ErrUnauthorized
	}

	var session models.TeacherSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, appErrors.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(session.Token), []byte(token)) != 1 {
		return nil, appErrors.ErrUnauthorized
	}
	if session.Expired(time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session has expired")
	}

	if session.Email == "" {
		// Shared-PIN session: the classroom owner.
		return &models.AuthContext{Role: models.RoleAdmin, Via: models.AuthViaPIN}, nil
	}

	teacher, err := s.findByEmail(ctx, session.Email)
	if err != nil {
		return nil, err
	}
	if teacher == nil || teacher.Status != models.TeacherApproved {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.AuthContext{Email: teacher.Email, Role: teacher.Role, Via: models.AuthViaEmail}, nil
}

func (s *TeacherAuthService) verifyIdentityToken(raw string) (string, error) {
	if s.config.FederatedJWTSecret == "" {
		return "", fmt.Errorf("federated login is not configured")
	}

	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.config.FederatedJWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("parse identity token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims shape")
	}
	if s.config.FederatedJWTIssuer != "" {
		if iss, _ := claims.GetIssuer(); iss != s.config.FederatedJWTIssuer {
			return "", fmt.Errorf("unexpected issuer")
		}
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return "", fmt.Errorf("identity token carries no email")
	}
	return strings.ToLower(strings.TrimSpace(email)), nil
}

func (s *TeacherAuthService) findByEmail(ctx context.Context, email string) (*models.Teacher, error) {
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

func (s *TeacherAuthService) salt(ctx context.Context) (string, error) {
	salt, found, err := s.settings.Get(ctx, models.SettingSalt)
	if err != nil || !found || salt == "" {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "credential salt is not available")
	}
	return salt, nil
}
