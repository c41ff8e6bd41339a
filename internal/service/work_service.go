package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haneul-lab/storybook-api/internal/lock"
	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/requestcache"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
)

type workRepository interface {
	List(ctx context.Context, step int) ([]models.Work, error)
	Append(ctx context.Context, w *models.Work) error
	WriteContent(ctx context.Context, w *models.Work) error
	UpdateStatus(ctx context.Context, step, rowIndex int, status models.WorkStatus) error
	Delete(ctx context.Context, step, rowIndex int) error
}

// WorkService implements the story save/submit/publish flows. Every mutation
// holds the write lock and re-reads on a fresh cache so the row it targets is
// the row it observed.
type WorkService struct {
	works     workRepository
	locker    lock.Locker
	lockWait  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewWorkService constructs a WorkService instance.
func NewWorkService(works workRepository, locker lock.Locker, lockWait time.Duration, validate *validator.Validate, logger *zap.Logger) *WorkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockWait <= 0 {
		lockWait = 10 * time.Second
	}
	return &WorkService{works: works, locker: locker, lockWait: lockWait, validator: validate, logger: logger}
}

// Save upserts one story step for a student. The first save creates the row
// with a fresh ID; later saves rewrite content in place and preserve the
// original ID, createdAt and publication status.
func (s *WorkService) Save(ctx context.Context, rc *requestcache.Cache, req models.SaveWorkRequest) (*models.Work, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name, step and data are required")
	}

	raw, err := json.Marshal(req.Data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "work data could not be serialized")
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rc.InvalidateWorks(req.Step)
	existing, err := rc.FindWork(ctx, req.Name, req.Number, req.Step)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load works")
	}

	now := time.Now().UTC()
	if existing != nil {
		existing.RawData = string(raw)
		existing.UpdatedAt = now
		existing.IsComplete = req.IsComplete
		if err := s.works.WriteContent(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save work")
		}
		rc.InvalidateWorks(req.Step)
		return existing, nil
	}

	work := &models.Work{
		StudentName:   req.Name,
		StudentNumber: req.Number,
		ID:            uuid.NewString(),
		RawData:       string(raw),
		CreatedAt:     now,
		UpdatedAt:     now,
		IsComplete:    req.IsComplete,
		Status:        models.WorkDraft,
		Step:          req.Step,
	}
	if err := s.works.Append(ctx, work); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save work")
	}
	rc.InvalidateWorks(req.Step)
	return work, nil
}

// GetOwn returns a student's own work for a step with the payload parsed.
// A missing row is a valid empty state, not an error.
func (s *WorkService) GetOwn(ctx context.Context, rc *requestcache.Cache, name string, number, step int) (map[string]interface{}, *models.Work, error) {
	if step < models.StepFirst || step > models.StepLast {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("step must be between %d and %d", models.StepFirst, models.StepLast))
	}
	work, err := rc.FindWork(ctx, name, number, step)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load works")
	}
	if work == nil {
		return map[string]interface{}{}, nil, nil
	}
	payload, err := work.Payload()
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored work data is corrupted")
	}
	return payload, work, nil
}

// ListByStep returns a teacher-facing summary of every work in a step.
// Payloads stay unparsed.
func (s *WorkService) ListByStep(ctx context.Context, rc *requestcache.Cache, step int) ([]models.WorkSummary, error) {
	if step < models.StepFirst || step > models.StepLast {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("step must be between %d and %d", models.StepFirst, models.StepLast))
	}
	works, err := rc.Works(ctx, step)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load works")
	}
	summaries := make([]models.WorkSummary, 0, len(works))
	for _, w := range works {
		summaries = append(summaries, models.WorkSummary{
			StudentName:   w.StudentName,
			StudentNumber: w.StudentNumber,
			ID:            w.ID,
			Step:          w.Step,
			UpdatedAt:     w.UpdatedAt,
			IsComplete:    w.IsComplete,
			Status:        w.Status,
		})
	}
	return summaries, nil
}

// Submit marks a student's draft as handed in.
func (s *WorkService) Submit(ctx context.Context, rc *requestcache.Cache, name string, number, step int) (*models.Work, error) {
	return s.transition(ctx, rc, name, number, step, models.WorkDraft, models.WorkSubmitted)
}

// Publish releases a submitted work to the class gallery. Only submitted
// works can be published.
func (s *WorkService) Publish(ctx context.Context, rc *requestcache.Cache, name string, number, step int) (*models.Work, error) {
	return s.transition(ctx, rc, name, number, step, models.WorkSubmitted, models.WorkPublished)
}

// SavePersonal upserts a personal-mode story addressed by its stable ID. An
// empty ID creates a new row under the personal sentinel identity.
func (s *WorkService) SavePersonal(ctx context.Context, rc *requestcache.Cache, id string, step int, data map[string]interface{}, isComplete bool) (*models.Work, error) {
	if step < models.StepFirst || step > models.StepLast {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("step must be between %d and %d", models.StepFirst, models.StepLast))
	}
	if data == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "work data is required")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "work data could not be serialized")
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rc.InvalidateWorks(step)
	now := time.Now().UTC()

	if id != "" {
		existing, err := rc.FindWorkByID(ctx, step, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load works")
		}
		if existing == nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "this story does not exist")
		}
		existing.RawData = string(raw)
		existing.UpdatedAt = now
		existing.IsComplete = isComplete
		if err := s.works.WriteContent(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save work")
		}
		rc.InvalidateWorks(step)
		return existing, nil
	}

	work := &models.Work{
		StudentName:   models.PersonalName,
		StudentNumber: models.PersonalNumber,
		ID:            uuid.NewString(),
		RawData:       string(raw),
		CreatedAt:     now,
		UpdatedAt:     now,
		IsComplete:    isComplete,
		Status:        models.WorkDraft,
		Step:          step,
	}
	if err := s.works.Append(ctx, work); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save work")
	}
	rc.InvalidateWorks(step)
	return work, nil
}

// GetByID returns a work addressed by its stable ID with the payload parsed.
func (s *WorkService) GetByID(ctx context.Context, rc *requestcache.Cache, step int, id string) (map[string]interface{}, *models.Work, error) {
	if step < models.StepFirst || step > models.StepLast {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("step must be between %d and %d", models.StepFirst, models.StepLast))
	}
	work, err := rc.FindWorkByID(ctx, step, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load works")
	}
	if work == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "this story does not exist")
	}
	payload, err := work.Payload()
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored work data is corrupted")
	}
	return payload, work, nil
}

// Delete removes a work row.
func (s *WorkService) Delete(ctx context.Context, rc *requestcache.Cache, name string, number, step int) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	rc.InvalidateWorks(step)
	work, err := rc.FindWork(ctx, name, number, step)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load works")
	}
	if work == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "this work does not exist")
	}
	if err := s.works.Delete(ctx, step, work.RowIndex); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete work")
	}
	rc.InvalidateWorks(step)
	return nil
}

func (s *WorkService) transition(ctx context.Context, rc *requestcache.Cache, name string, number, step int, from, to models.WorkStatus) (*models.Work, error) {
	if step < models.StepFirst || step > models.StepLast {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("step must be between %d and %d", models.StepFirst, models.StepLast))
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rc.InvalidateWorks(step)
	work, err := rc.FindWork(ctx, name, number, step)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load works")
	}
	if work == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "this work does not exist")
	}
	if work.Status != from {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("work is %s; only %s works can become %s", work.Status, from, to))
	}
	if err := s.works.UpdateStatus(ctx, step, work.RowIndex, to); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update work status")
	}
	work.Status = to
	rc.InvalidateWorks(step)
	return work, nil
}

func (s *WorkService) acquire(ctx context.Context) (lock.ReleaseFunc, error) {
	release, err := s.locker.Acquire(ctx, s.lockWait)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, appErrors.ErrContention
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire write lock")
	}
	return release, nil
}
