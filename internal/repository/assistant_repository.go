package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/rowstore"
)

// AI session column positions, 1-based.
const (
	sessionColID = iota + 1
	sessionColStudentName
	sessionColStudentNumber
	sessionColStep
	sessionColTitle
	sessionColMessages
	sessionColMessageCount
	sessionColCreatedAt
	sessionColUpdatedAt
)

// AI usage column positions, 1-based.
const (
	usageColDate = iota + 1
	usageColStudentName
	usageColStudentNumber
	usageColCount
)

// AssistantRepository maps assistant sessions and daily usage counters.
type AssistantRepository struct {
	store rowstore.Store
}

// NewAssistantRepository creates a new instance of AssistantRepository.
func NewAssistantRepository(store rowstore.Store) *AssistantRepository {
	return &AssistantRepository{store: store}
}

// ListSessions reads every session row.
func (r *AssistantRepository) ListSessions(ctx context.Context) ([]models.AssistantSession, error) {
	rows, err := r.store.ListRows(ctx, rowstore.CollectionAISessions)
	if err != nil {
		return nil, fmt.Errorf("list assistant sessions: %w", err)
	}
	sessions := make([]models.AssistantSession, 0, len(rows))
	for i, row := range rows {
		session, err := parseSessionRow(row)
		if err != nil {
			return nil, fmt.Errorf("ai_sessions row %d: %w", i+1, err)
		}
		session.RowIndex = i + 1
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// AppendSession adds a new session row.
func (r *AssistantRepository) AppendSession(ctx context.Context, s *models.AssistantSession) error {
	row, err := formatSessionRow(s)
	if err != nil {
		return err
	}
	if err := r.store.AppendRow(ctx, rowstore.CollectionAISessions, row); err != nil {
		return fmt.Errorf("append assistant session: %w", err)
	}
	return nil
}

// WriteMessages persists the message log, count and updatedAt as one
// contiguous range (messages through updatedAt); createdAt is rewritten
// unchanged.
func (r *AssistantRepository) WriteMessages(ctx context.Context, s *models.AssistantSession) error {
	raw, err := json.Marshal(s.Messages)
	if err != nil {
		return fmt.Errorf("marshal session messages: %w", err)
	}
	values := []string{
		string(raw),
		strconv.Itoa(s.MessageCount),
		formatTime(s.CreatedAt),
		formatTime(s.UpdatedAt),
	}
	if err := r.store.WriteRange(ctx, rowstore.CollectionAISessions, s.RowIndex, sessionColMessages, values); err != nil {
		return fmt.Errorf("write session messages: %w", err)
	}
	return nil
}

// DeleteSession removes a session row.
func (r *AssistantRepository) DeleteSession(ctx context.Context, rowIndex int) error {
	if err := r.store.DeleteRow(ctx, rowstore.CollectionAISessions, rowIndex); err != nil {
		return fmt.Errorf("delete assistant session: %w", err)
	}
	return nil
}

// ListUsage reads every usage counter row.
func (r *AssistantRepository) ListUsage(ctx context.Context) ([]models.UsageCounter, error) {
	rows, err := r.store.ListRows(ctx, rowstore.CollectionAIUsage)
	if err != nil {
		return nil, fmt.Errorf("list assistant usage: %w", err)
	}
	counters := make([]models.UsageCounter, 0, len(rows))
	for i, row := range rows {
		if len(row) < 4 {
			return nil, fmt.Errorf("ai_usage row %d: short row", i+1)
		}
		number, err := strconv.Atoi(row[usageColStudentNumber-1])
		if err != nil {
			return nil, fmt.Errorf("ai_usage row %d: bad number %q", i+1, row[usageColStudentNumber-1])
		}
		count, err := strconv.Atoi(row[usageColCount-1])
		if err != nil {
			count = 0
		}
		counters = append(counters, models.UsageCounter{
			Date:          row[usageColDate-1],
			StudentName:   row[usageColStudentName-1],
			StudentNumber: number,
			Count:         count,
			RowIndex:      i + 1,
		})
	}
	return counters, nil
}

// AppendUsage adds a counter row for a (date, student) pair.
func (r *AssistantRepository) AppendUsage(ctx context.Context, c *models.UsageCounter) error {
	row := []string{c.Date, c.StudentName, strconv.Itoa(c.StudentNumber), strconv.Itoa(c.Count)}
	if err := r.store.AppendRow(ctx, rowstore.CollectionAIUsage, row); err != nil {
		return fmt.Errorf("append assistant usage: %w", err)
	}
	return nil
}

// WriteUsageCount overwrites a counter value.
func (r *AssistantRepository) WriteUsageCount(ctx context.Context, rowIndex, count int) error {
	if err := r.store.WriteCell(ctx, rowstore.CollectionAIUsage, rowIndex, usageColCount, strconv.Itoa(count)); err != nil {
		return fmt.Errorf("write assistant usage count: %w", err)
	}
	return nil
}

func parseSessionRow(row []string) (models.AssistantSession, error) {
	if len(row) < 9 {
		return models.AssistantSession{}, fmt.Errorf("short row: %d columns", len(row))
	}
	number, err := strconv.Atoi(row[sessionColStudentNumber-1])
	if err != nil {
		return models.AssistantSession{}, fmt.Errorf("bad student number %q", row[sessionColStudentNumber-1])
	}
	step, err := strconv.Atoi(row[sessionColStep-1])
	if err != nil {
		return models.AssistantSession{}, fmt.Errorf("bad step %q", row[sessionColStep-1])
	}
	count, err := strconv.Atoi(row[sessionColMessageCount-1])
	if err != nil {
		count = 0
	}

	var messages []models.ChatMessage
	if raw := row[sessionColMessages-1]; raw != "" {
		// A corrupt message log degrades to an empty history rather than
		// failing the whole listing.
		if err := json.Unmarshal([]byte(raw), &messages); err != nil {
			messages = nil
		}
	}

	return models.AssistantSession{
		ID:            row[sessionColID-1],
		StudentName:   row[sessionColStudentName-1],
		StudentNumber: number,
		Step:          step,
		Title:         row[sessionColTitle-1],
		Messages:      messages,
		MessageCount:  count,
		CreatedAt:     parseTime(row[sessionColCreatedAt-1]),
		UpdatedAt:     parseTime(row[sessionColUpdatedAt-1]),
	}, nil
}

func formatSessionRow(s *models.AssistantSession) ([]string, error) {
	raw, err := json.Marshal(s.Messages)
	if err != nil {
		return nil, fmt.Errorf("marshal session messages: %w", err)
	}
	return []string{
		s.ID,
		s.StudentName,
		strconv.Itoa(s.StudentNumber),
		strconv.Itoa(s.Step),
		s.Title,
		string(raw),
		strconv.Itoa(s.MessageCount),
		formatTime(s.CreatedAt),
		formatTime(s.UpdatedAt),
	}, nil
}
