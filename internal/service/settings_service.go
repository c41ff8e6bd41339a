package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/haneul-lab/storybook-api/internal/crypto"
	"github.com/haneul-lab/storybook-api/internal/lock"
	"github.com/haneul-lab/storybook-api/internal/models"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
)

// Keys a teacher may write through the settings API. Credential and session
// material never travels through the generic update path.
var writableSettings = map[string]struct{}{
	models.SettingAppVersion:       {},
	models.SettingSiteTitle:        {},
	models.SettingAssistantEnabled: {},
}

// Keys whose values are never echoed back to clients.
var maskedSettings = map[string]struct{}{
	models.SettingSalt:           {},
	models.SettingTeacherPINHash: {},
	models.SettingTeacherSession: {},
}

// SettingsService exposes the key/value configuration collection to teachers
// and owns the one-time salt bootstrap.
type SettingsService struct {
	settings  settingsStore
	locker    lock.Locker
	lockWait  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingsService constructs a SettingsService instance.
func NewSettingsService(settings settingsStore, locker lock.Locker, lockWait time.Duration, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockWait <= 0 {
		lockWait = 10 * time.Second
	}
	return &SettingsService{settings: settings, locker: locker, lockWait: lockWait, validator: validate, logger: logger}
}

// List returns every setting with secret-bearing values masked.
func (s *SettingsService) List(ctx context.Context) (map[string]string, error) {
	all, err := s.settings.All(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	out := make(map[string]string, len(all))
	for key, value := range all {
		if _, masked := maskedSettings[key]; masked {
			if value != "" {
				out[key] = "(set)"
			} else {
				out[key] = ""
			}
			continue
		}
		out[key] = value
	}
	return out, nil
}

// Update writes one of the recognized writable settings.
func (s *SettingsService) Update(ctx context.Context, req models.UpdateSettingRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "a settings key is required")
	}
	if _, ok := writableSettings[req.Key]; !ok {
		return appErrors.Clone(appErrors.ErrValidation, "this settings key cannot be changed here")
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := s.settings.Set(ctx, req.Key, req.Value); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save setting")
	}
	return nil
}

// SetTeacherPIN hashes and stores the shared teacher PIN.
func (s *SettingsService) SetTeacherPIN(ctx context.Context, pin string) error {
	if len(pin) != 6 || !isDigits(pin) {
		return appErrors.Clone(appErrors.ErrValidation, "the PIN must be exactly 6 digits")
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	salt, found, err := s.settings.Get(ctx, models.SettingSalt)
	if err != nil || !found || salt == "" {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "credential salt is not available")
	}
	hash := crypto.Hash(pin, crypto.TagTeacherPIN, salt)
	if err := s.settings.Set(ctx, models.SettingTeacherPINHash, hash); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save teacher PIN")
	}
	return nil
}

// EnsureSalt creates the credential salt on first boot. An existing salt is
// never touched; regenerating it would orphan every stored hash.
func (s *SettingsService) EnsureSalt(ctx context.Context) error {
	existing, found, err := s.settings.Get(ctx, models.SettingSalt)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read settings")
	}
	if found && existing != "" {
		return nil
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	// Re-check under the lock; another instance may have won the race.
	existing, found, err = s.settings.Get(ctx, models.SettingSalt)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read settings")
	}
	if found && existing != "" {
		return nil
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate salt")
	}
	if err := s.settings.Set(ctx, models.SettingSalt, salt); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store salt")
	}
	s.logger.Info("credential salt initialized")
	return nil
}

func (s *SettingsService) acquire(ctx context.Context) (lock.ReleaseFunc, error) {
	release, err := s.locker.Acquire(ctx, s.lockWait)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, appErrors.ErrContention
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire write lock")
	}
	return release, nil
}
