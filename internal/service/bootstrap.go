package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/rowstore"
)

// BootstrapService prepares the row store on startup: collections, the
// credential salt and the optional owner admin account.
type BootstrapService struct {
	store    rowstore.Store
	settings *SettingsService
	teachers teacherRepository
	logger   *zap.Logger
}

// NewBootstrapService constructs a BootstrapService instance.
func NewBootstrapService(store rowstore.Store, settings *SettingsService, teachers teacherRepository, logger *zap.Logger) *BootstrapService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BootstrapService{store: store, settings: settings, teachers: teachers, logger: logger}
}

// Run performs the startup sequence. It is idempotent; every step re-checks
// before writing.
func (s *BootstrapService) Run(ctx context.Context, ownerEmail, ownerName string) error {
	for collection := range rowstore.Headers {
		if err := s.store.EnsureCollection(ctx, collection); err != nil {
			return err
		}
	}

	if err := s.settings.EnsureSalt(ctx); err != nil {
		return err
	}

	if ownerEmail != "" {
		if err := s.ensureOwner(ctx, ownerEmail, ownerName); err != nil {
			return err
		}
	}
	return nil
}

// ensureOwner provisions the configured owner as an approved admin. The
// account has no password; the owner signs in through the federated flow
// until one is set.
func (s *BootstrapService) ensureOwner(ctx context.Context, email, name string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return err
	}
	for _, t := range teachers {
		if strings.EqualFold(t.Email, email) {
			return nil
		}
	}

	now := time.Now().UTC()
	owner := &models.Teacher{
		Email:        email,
		Name:         name,
		Role:         models.RoleAdmin,
		Status:       models.TeacherApproved,
		RegisteredAt: now,
		ApprovedAt:   &now,
	}
	if err := s.teachers.Append(ctx, owner); err != nil {
		return err
	}
	s.logger.Info("owner admin provisioned", zap.String("email", email))
	return nil
}
