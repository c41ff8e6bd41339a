package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/rowstore"
)

// Student column positions, 1-based.
const (
	studentColName = iota + 1
	studentColNumber
	studentColPINHash
	studentColToken
	studentColCreatedAt
	studentColLastAccessAt
	studentColStatus
)

// StudentRepository maps Student records to rows in the students collection.
type StudentRepository struct {
	store rowstore.Store
}

// NewStudentRepository creates a new instance of StudentRepository.
func NewStudentRepository(store rowstore.Store) *StudentRepository {
	return &StudentRepository{store: store}
}

// List reads every student row, retaining its row index.
func (r *StudentRepository) List(ctx context.Context) ([]models.Student, error) {
	rows, err := r.store.ListRows(ctx, rowstore.CollectionStudents)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	students := make([]models.Student, 0, len(rows))
	for i, row := range rows {
		student, err := parseStudentRow(row)
		if err != nil {
			return nil, fmt.Errorf("students row %d: %w", i+1, err)
		}
		student.RowIndex = i + 1
		students = append(students, student)
	}
	return students, nil
}

// Append adds a new student row.
func (r *StudentRepository) Append(ctx context.Context, s *models.Student) error {
	if err := r.store.AppendRow(ctx, rowstore.CollectionStudents, formatStudentRow(s)); err != nil {
		return fmt.Errorf("append student: %w", err)
	}
	return nil
}

// WriteActivation persists a PIN change together with last access and status
// as one contiguous range (pinHash through status), so no partially-updated
// record is observable. Token and createdAt are rewritten unchanged.
func (r *StudentRepository) WriteActivation(ctx context.Context, s *models.Student) error {
	values := []string{
		s.PINHash,
		s.Token,
		formatTime(s.CreatedAt),
		formatTimePtr(s.LastAccessAt),
		string(s.Status),
	}
	if err := r.store.WriteRange(ctx, rowstore.CollectionStudents, s.RowIndex, studentColPINHash, values); err != nil {
		return fmt.Errorf("write student activation: %w", err)
	}
	return nil
}

// UpdateLastAccess stamps the last access time.
func (r *StudentRepository) UpdateLastAccess(ctx context.Context, rowIndex int, ts time.Time) error {
	if err := r.store.WriteCell(ctx, rowstore.CollectionStudents, rowIndex, studentColLastAccessAt, formatTime(ts)); err != nil {
		return fmt.Errorf("update student last access: %w", err)
	}
	return nil
}

// UpdateStatus writes the status column.
func (r *StudentRepository) UpdateStatus(ctx context.Context, rowIndex int, status models.StudentStatus) error {
	if err := r.store.WriteCell(ctx, rowstore.CollectionStudents, rowIndex, studentColStatus, string(status)); err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	return nil
}

// Delete removes the student row. Subsequent row indices shift down.
func (r *StudentRepository) Delete(ctx context.Context, rowIndex int) error {
	if err := r.store.DeleteRow(ctx, rowstore.CollectionStudents, rowIndex); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return nil
}

func parseStudentRow(row []string) (models.Student, error) {
	if len(row) < 7 {
		return models.Student{}, fmt.Errorf("short row: %d columns", len(row))
	}
	number, err := strconv.Atoi(row[studentColNumber-1])
	if err != nil {
		return models.Student{}, fmt.Errorf("bad number %q", row[studentColNumber-1])
	}
	return models.Student{
		Name:         row[studentColName-1],
		Number:       number,
		PINHash:      row[studentColPINHash-1],
		Token:        row[studentColToken-1],
		CreatedAt:    parseTime(row[studentColCreatedAt-1]),
		LastAccessAt: parseTimePtr(row[studentColLastAccessAt-1]),
		Status:       models.StudentStatus(row[studentColStatus-1]),
	}, nil
}

func formatStudentRow(s *models.Student) []string {
	return []string{
		s.Name,
		strconv.Itoa(s.Number),
		s.PINHash,
		s.Token,
		formatTime(s.CreatedAt),
		formatTimePtr(s.LastAccessAt),
		string(s.Status),
	}
}
