package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/rowstore"
)

// Teacher column positions, 1-based.
const (
	teacherColEmail = iota + 1
	teacherColName
	teacherColPasswordHash
	teacherColRole
	teacherColStatus
	teacherColRegisteredAt
	teacherColApprovedAt
	teacherColLastAccessAt
)

// TeacherRepository maps Teacher records to rows in the teachers collection.
type TeacherRepository struct {
	store rowstore.Store
}

// NewTeacherRepository creates a new instance of TeacherRepository.
func NewTeacherRepository(store rowstore.Store) *TeacherRepository {
	return &TeacherRepository{store: store}
}

// List reads every teacher row, retaining its row index.
func (r *TeacherRepository) List(ctx context.Context) ([]models.Teacher, error) {
	rows, err := r.store.ListRows(ctx, rowstore.CollectionTeachers)
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	teachers := make([]models.Teacher, 0, len(rows))
	for i, row := range rows {
		teacher, err := parseTeacherRow(row)
		if err != nil {
			return nil, fmt.Errorf("teachers row %d: %w", i+1, err)
		}
		teacher.RowIndex = i + 1
		teachers = append(teachers, teacher)
	}
	return teachers, nil
}

// Append adds a new teacher row.
func (r *TeacherRepository) Append(ctx context.Context, t *models.Teacher) error {
	if err := r.store.AppendRow(ctx, rowstore.CollectionTeachers, formatTeacherRow(t)); err != nil {
		return fmt.Errorf("append teacher: %w", err)
	}
	return nil
}

// WriteApproval persists status, registeredAt and approvedAt as a single
// contiguous range; registeredAt is rewritten unchanged.
func (r *TeacherRepository) WriteApproval(ctx context.Context, t *models.Teacher) error {
	values := []string{
		string(t.Status),
		formatTime(t.RegisteredAt),
		formatTimePtr(t.ApprovedAt),
	}
	if err := r.store.WriteRange(ctx, rowstore.CollectionTeachers, t.RowIndex, teacherColStatus, values); err != nil {
		return fmt.Errorf("write teacher approval: %w", err)
	}
	return nil
}

// UpdateRole writes the role column.
func (r *TeacherRepository) UpdateRole(ctx context.Context, rowIndex int, role models.TeacherRole) error {
	if err := r.store.WriteCell(ctx, rowstore.CollectionTeachers, rowIndex, teacherColRole, string(role)); err != nil {
		return fmt.Errorf("update teacher role: %w", err)
	}
	return nil
}

// UpdateStatus writes the status column.
func (r *TeacherRepository) UpdateStatus(ctx context.Context, rowIndex int, status models.TeacherStatus) error {
	if err := r.store.WriteCell(ctx, rowstore.CollectionTeachers, rowIndex, teacherColStatus, string(status)); err != nil {
		return fmt.Errorf("update teacher status: %w", err)
	}
	return nil
}

// UpdateLastAccess stamps the last access time.
func (r *TeacherRepository) UpdateLastAccess(ctx context.Context, rowIndex int, ts time.Time) error {
	if err := r.store.WriteCell(ctx, rowstore.CollectionTeachers, rowIndex, teacherColLastAccessAt, formatTime(ts)); err != nil {
		return fmt.Errorf("update teacher last access: %w", err)
	}
	return nil
}

// Delete removes the teacher row.
func (r *TeacherRepository) Delete(ctx context.Context, rowIndex int) error {
	if err := r.store.DeleteRow(ctx, rowstore.CollectionTeachers, rowIndex); err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return nil
}

func parseTeacherRow(row []string) (models.Teacher, error) {
	if len(row) < 8 {
		return models.Teacher{}, fmt.Errorf("short row: %d columns", len(row))
	}
	return models.Teacher{
		Email:        row[teacherColEmail-1],
		Name:         row[teacherColName-1],
		PasswordHash: row[teacherColPasswordHash-1],
		Role:         models.TeacherRole(row[teacherColRole-1]),
		Status:       models.TeacherStatus(row[teacherColStatus-1]),
		RegisteredAt: parseTime(row[teacherColRegisteredAt-1]),
		ApprovedAt:   parseTimePtr(row[teacherColApprovedAt-1]),
		LastAccessAt: parseTimePtr(row[teacherColLastAccessAt-1]),
	}, nil
}

func formatTeacherRow(t *models.Teacher) []string {
	return []string{
		t.Email,
		t.Name,
		t.PasswordHash,
		string(t.Role),
		string(t.Status),
		formatTime(t.RegisteredAt),
		formatTimePtr(t.ApprovedAt),
		formatTimePtr(t.LastAccessAt),
	}
}
