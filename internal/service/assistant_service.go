package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haneul-lab/storybook-api/internal/llm"
	"github.com/haneul-lab/storybook-api/internal/lock"
	"github.com/haneul-lab/storybook-api/internal/models"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
)

// systemPrompt guides the model toward coaching rather than ghost-writing.
const systemPrompt = `You are a friendly writing coach for elementary school students building a four-panel storybook (beginning, development, twist, ending). Ask short guiding questions, suggest ideas in simple words, and encourage the student. Never write the whole story for them. Answer in the language the student writes in.`

type assistantRepository interface {
	ListSessions(ctx context.Context) ([]models.AssistantSession, error)
	AppendSession(ctx context.Context, s *models.AssistantSession) error
	WriteMessages(ctx context.Context, s *models.AssistantSession) error
	DeleteSession(ctx context.Context, rowIndex int) error
	ListUsage(ctx context.Context) ([]models.UsageCounter, error)
	AppendUsage(ctx context.Context, c *models.UsageCounter) error
	WriteUsageCount(ctx context.Context, rowIndex, count int) error
}

// AssistantConfig bounds the assistant per student.
type AssistantConfig struct {
	Enabled     bool
	MaxSessions int
	MaxMessages int
	DailyQuota  int
}

// AssistantService runs the bounded story-coach conversations. Sessions and
// usage counters live in the row store; the model call goes through llm.Client
// so tests can stub it. Mutations hold the write lock, but the model call
// itself runs outside it, so the session row is re-resolved by ID before any
// write lands.
type AssistantService struct {
	sessions  assistantRepository
	client    llm.Client
	config    AssistantConfig
	locker    lock.Locker
	lockWait  time.Duration
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger

	now func() time.Time
}

// NewAssistantService constructs an AssistantService instance.
func NewAssistantService(sessions assistantRepository, client llm.Client, config AssistantConfig, locker lock.Locker, lockWait time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AssistantService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxSessions <= 0 {
		config.MaxSessions = 5
	}
	if config.MaxMessages <= 0 {
		config.MaxMessages = 50
	}
	if config.DailyQuota <= 0 {
		config.DailyQuota = 20
	}
	if lockWait <= 0 {
		lockWait = 10 * time.Second
	}
	return &AssistantService{
		sessions:  sessions,
		client:    client,
		config:    config,
		locker:    locker,
		lockWait:  lockWait,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// StartSession opens a new conversation for a student and step. When the
// per-student-per-step cap is reached, the oldest session is evicted.
func (s *AssistantService) StartSession(ctx context.Context, student models.StudentIdentity, step int, title string) (*models.AssistantSession, error) {
	if err := s.ensureEnabled(); err != nil {
		return nil, err
	}
	if step < models.StepFirst || step > models.StepLast {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("step must be between %d and %d", models.StepFirst, models.StepLast))
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	all, err := s.sessions.ListSessions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assistant sessions")
	}

	mine := filterSessions(all, student, step)
	if len(mine) >= s.config.MaxSessions {
		oldest := mine[0]
		for _, sess := range mine[1:] {
			if sess.CreatedAt.Before(oldest.CreatedAt) {
				oldest = sess
			}
		}
		if err := s.sessions.DeleteSession(ctx, oldest.RowIndex); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to evict assistant session")
		}
		s.logger.Info("evicted oldest assistant session",
			zap.String("student", student.Name),
			zap.Int("step", step),
			zap.String("sessionId", oldest.ID))
	}

	now := s.now().UTC()
	if title == "" {
		title = fmt.Sprintf("Step %d story chat", step)
	}
	session := &models.AssistantSession{
		ID:            uuid.NewString(),
		StudentName:   student.Name,
		StudentNumber: student.Number,
		Step:          step,
		Title:         title,
		Messages:      []models.ChatMessage{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.sessions.AppendSession(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assistant session")
	}
	return session, nil
}

// ListSessions returns a student's sessions for a step, message logs included.
func (s *AssistantService) ListSessions(ctx context.Context, student models.StudentIdentity, step int) ([]models.AssistantSession, error) {
	if err := s.ensureEnabled(); err != nil {
		return nil, err
	}
	all, err := s.sessions.ListSessions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assistant sessions")
	}
	return filterSessions(all, student, step), nil
}

// Chat sends one student message and appends both sides of the exchange to
// the session log. One exchange consumes one unit of the student's daily
// quota; the quota is charged only after the model call succeeds.
func (s *AssistantService) Chat(ctx context.Context, student models.StudentIdentity, req models.ChatRequest) (*models.ChatResponse, error) {
	if err := s.ensureEnabled(); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "a message and a step between 1 and 3 are required")
	}

	used, _, err := s.usageToday(ctx, student)
	if err != nil {
		return nil, err
	}
	if used >= s.config.DailyQuota {
		return nil, appErrors.Clone(appErrors.ErrQuotaExceeded, "the assistant is resting; try again tomorrow")
	}

	session, err := s.resolveSession(ctx, student, req)
	if err != nil {
		return nil, err
	}
	if session.MessageCount+2 > s.config.MaxMessages {
		return nil, appErrors.Clone(appErrors.ErrSessionFull, "this chat is full; start a new one")
	}

	// The model call is slow and runs without the lock, on a snapshot of
	// the conversation.
	reply, err := s.client.Complete(ctx, systemPrompt, session.Messages, req.Message)
	if err != nil {
		s.logger.Error("assistant completion failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "the assistant is not answering right now")
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	// Sessions may have been evicted and shifted while the model was
	// answering; resolve the row again by ID before writing to it.
	session, err = s.lookupSession(ctx, student, session.ID)
	if err != nil {
		return nil, err
	}
	if session.MessageCount+2 > s.config.MaxMessages {
		return nil, appErrors.Clone(appErrors.ErrSessionFull, "this chat is full; start a new one")
	}

	now := s.now().UTC()
	session.Messages = append(session.Messages,
		models.ChatMessage{Role: models.MessageRoleUser, Content: req.Message, Timestamp: now},
		models.ChatMessage{Role: models.MessageRoleAssistant, Content: reply, Timestamp: now},
	)
	session.MessageCount = len(session.Messages)
	session.UpdatedAt = now
	if err := s.sessions.WriteMessages(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save the conversation")
	}

	s.metrics.ChatExchange()

	// Re-read the counter under the lock so concurrent exchanges are not
	// lost. The exchange already happened, so a failed counter write must
	// not surface as a chat failure.
	if fresh, usageRow, usageErr := s.usageToday(ctx, student); usageErr != nil {
		s.logger.Warn("failed to record assistant usage", zap.Error(usageErr))
	} else {
		used = fresh
		if chargeErr := s.chargeUsage(ctx, student, used, usageRow); chargeErr != nil {
			s.logger.Warn("failed to record assistant usage", zap.Error(chargeErr))
		}
	}

	remaining := s.config.DailyQuota - used - 1
	if remaining < 0 {
		remaining = 0
	}
	return &models.ChatResponse{
		SessionID:      session.ID,
		Reply:          reply,
		RemainingToday: remaining,
	}, nil
}

// RemainingToday reports how many exchanges the student has left today.
func (s *AssistantService) RemainingToday(ctx context.Context, student models.StudentIdentity) (int, error) {
	if err := s.ensureEnabled(); err != nil {
		return 0, err
	}
	used, _, err := s.usageToday(ctx, student)
	if err != nil {
		return 0, err
	}
	remaining := s.config.DailyQuota - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *AssistantService) resolveSession(ctx context.Context, student models.StudentIdentity, req models.ChatRequest) (*models.AssistantSession, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		created, err := s.StartSession(ctx, student, req.Step, "")
		if err != nil {
			return nil, err
		}
		sessionID = created.ID
	}
	return s.lookupSession(ctx, student, sessionID)
}

// lookupSession re-reads the session list and finds the row by ID, so the
// caller always writes to the row's current position.
func (s *AssistantService) lookupSession(ctx context.Context, student models.StudentIdentity, sessionID string) (*models.AssistantSession, error) {
	all, err := s.sessions.ListSessions(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assistant sessions")
	}
	for i := range all {
		sess := &all[i]
		if sess.ID == sessionID {
			if sess.StudentName != student.Name || sess.StudentNumber != student.Number {
				return nil, appErrors.Clone(appErrors.ErrForbidden, "this chat belongs to someone else")
			}
			return sess, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "this chat does not exist")
}

func (s *AssistantService) acquire(ctx context.Context) (lock.ReleaseFunc, error) {
	release, err := s.locker.Acquire(ctx, s.lockWait)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, appErrors.ErrContention
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to acquire write lock")
	}
	return release, nil
}

func (s *AssistantService) usageToday(ctx context.Context, student models.StudentIdentity) (int, *models.UsageCounter, error) {
	counters, err := s.sessions.ListUsage(ctx)
	if err != nil {
		return 0, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assistant usage")
	}
	today := s.today()
	for i := range counters {
		c := &counters[i]
		if c.Date == today && c.StudentName == student.Name && c.StudentNumber == student.Number {
			return c.Count, c, nil
		}
	}
	return 0, nil, nil
}

func (s *AssistantService) chargeUsage(ctx context.Context, student models.StudentIdentity, used int, row *models.UsageCounter) error {
	if row != nil {
		return s.sessions.WriteUsageCount(ctx, row.RowIndex, used+1)
	}
	return s.sessions.AppendUsage(ctx, &models.UsageCounter{
		Date:          s.today(),
		StudentName:   student.Name,
		StudentNumber: student.Number,
		Count:         1,
	})
}

func (s *AssistantService) ensureEnabled() error {
	if !s.config.Enabled {
		return appErrors.Clone(appErrors.ErrForbidden, "the assistant is turned off")
	}
	return nil
}

func (s *AssistantService) today() string {
	return s.now().UTC().Format("2006-01-02")
}

func filterSessions(all []models.AssistantSession, student models.StudentIdentity, step int) []models.AssistantSession {
	mine := make([]models.AssistantSession, 0, len(all))
	for _, sess := range all {
		if sess.StudentName == student.Name && sess.StudentNumber == student.Number && sess.Step == step {
			mine = append(mine, sess)
		}
	}
	return mine
}
