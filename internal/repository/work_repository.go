package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/rowstore"
)

// Work column positions, 1-based.
const (
	workColStudentName = iota + 1
	workColStudentNumber
	workColID
	workColData
	workColCreatedAt
	workColUpdatedAt
	workColIsComplete
	workColStatus
)

// WorkRepository maps Work records to the per-step works collections. The
// opaque payload stays a raw string here; deserialization is the caller's
// decision (parse-on-demand).
type WorkRepository struct {
	store rowstore.Store
}

// NewWorkRepository creates a new instance of WorkRepository.
func NewWorkRepository(store rowstore.Store) *WorkRepository {
	return &WorkRepository{store: store}
}

// List reads every work row for a step without parsing payloads.
func (r *WorkRepository) List(ctx context.Context, step int) ([]models.Work, error) {
	collection := rowstore.WorkCollection(step)
	if collection == "" {
		return nil, fmt.Errorf("invalid step %d", step)
	}
	rows, err := r.store.ListRows(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list works step %d: %w", step, err)
	}

	works := make([]models.Work, 0, len(rows))
	for i, row := range rows {
		work, err := parseWorkRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", collection, i+1, err)
		}
		work.Step = step
		work.RowIndex = i + 1
		works = append(works, work)
	}
	return works, nil
}

// Append adds a new work row.
func (r *WorkRepository) Append(ctx context.Context, w *models.Work) error {
	collection := rowstore.WorkCollection(w.Step)
	if collection == "" {
		return fmt.Errorf("invalid step %d", w.Step)
	}
	if err := r.store.AppendRow(ctx, collection, formatWorkRow(w)); err != nil {
		return fmt.Errorf("append work step %d: %w", w.Step, err)
	}
	return nil
}

// WriteContent overwrites payload, timestamps, completion and status as one
// contiguous range (workData through status). createdAt is rewritten with its
// existing value; it never changes after the first write.
func (r *WorkRepository) WriteContent(ctx context.Context, w *models.Work) error {
	collection := rowstore.WorkCollection(w.Step)
	if collection == "" {
		return fmt.Errorf("invalid step %d", w.Step)
	}
	values := []string{
		w.RawData,
		formatTime(w.CreatedAt),
		formatTime(w.UpdatedAt),
		formatBool(w.IsComplete),
		string(w.Status),
	}
	if err := r.store.WriteRange(ctx, collection, w.RowIndex, workColData, values); err != nil {
		return fmt.Errorf("write work content step %d: %w", w.Step, err)
	}
	return nil
}

// UpdateStatus writes the publication status column.
func (r *WorkRepository) UpdateStatus(ctx context.Context, step, rowIndex int, status models.WorkStatus) error {
	collection := rowstore.WorkCollection(step)
	if collection == "" {
		return fmt.Errorf("invalid step %d", step)
	}
	if err := r.store.WriteCell(ctx, collection, rowIndex, workColStatus, string(status)); err != nil {
		return fmt.Errorf("update work status step %d: %w", step, err)
	}
	return nil
}

// Delete removes a work row.
func (r *WorkRepository) Delete(ctx context.Context, step, rowIndex int) error {
	collection := rowstore.WorkCollection(step)
	if collection == "" {
		return fmt.Errorf("invalid step %d", step)
	}
	if err := r.store.DeleteRow(ctx, collection, rowIndex); err != nil {
		return fmt.Errorf("delete work step %d: %w", step, err)
	}
	return nil
}

func parseWorkRow(row []string) (models.Work, error) {
	if len(row) < 8 {
		return models.Work{}, fmt.Errorf("short row: %d columns", len(row))
	}
	number, err := strconv.Atoi(row[workColStudentNumber-1])
	if err != nil {
		return models.Work{}, fmt.Errorf("bad student number %q", row[workColStudentNumber-1])
	}
	return models.Work{
		StudentName:   row[workColStudentName-1],
		StudentNumber: number,
		ID:            row[workColID-1],
		RawData:       row[workColData-1],
		CreatedAt:     parseTime(row[workColCreatedAt-1]),
		UpdatedAt:     parseTime(row[workColUpdatedAt-1]),
		IsComplete:    parseBool(row[workColIsComplete-1]),
		Status:        models.WorkStatus(row[workColStatus-1]),
	}, nil
}

func formatWorkRow(w *models.Work) []string {
	return []string{
		w.StudentName,
		strconv.Itoa(w.StudentNumber),
		w.ID,
		w.RawData,
		formatTime(w.CreatedAt),
		formatTime(w.UpdatedAt),
		formatBool(w.IsComplete),
		string(w.Status),
	}
}
