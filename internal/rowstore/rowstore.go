// Package rowstore defines the named-collection tabular store boundary: each
// collection has a fixed ordered column schema and an implicit header row.
// Row indices are 1-based and stable only until a prior row is deleted.
// The store offers no transactions; multi-cell logical updates are atomic
// with respect to each other only when serialized by the advisory write lock.
package rowstore

import "context"

// Collection names consumed by the application.
const (
	CollectionStudents   = "students"
	CollectionSettings   = "settings"
	CollectionTeachers   = "teachers"
	CollectionAISessions = "ai_sessions"
	CollectionAIUsage    = "ai_usage"
)

// WorkCollection returns the per-step works collection name.
func WorkCollection(step int) string {
	switch step {
	case 1:
		return "works_step1"
	case 2:
		return "works_step2"
	case 3:
		return "works_step3"
	}
	return ""
}

// Headers per collection. EnsureCollection (re)establishes these.
var Headers = map[string][]string{
	CollectionStudents:   {"name", "number", "pinHash", "token", "createdAt", "lastAccessAt", "status"},
	"works_step1":        {"studentName", "studentNumber", "workId", "workData", "createdAt", "updatedAt", "isComplete", "status"},
	"works_step2":        {"studentName", "studentNumber", "workId", "workData", "createdAt", "updatedAt", "isComplete", "status"},
	"works_step3":        {"studentName", "studentNumber", "workId", "workData", "createdAt", "updatedAt", "isComplete", "status"},
	CollectionSettings:   {"key", "value"},
	CollectionTeachers:   {"email", "name", "passwordHash", "role", "status", "registeredAt", "approvedAt", "lastAccessAt"},
	CollectionAISessions: {"sessionId", "studentName", "studentNumber", "step", "title", "messages", "messageCount", "createdAt", "updatedAt"},
	CollectionAIUsage:    {"date", "studentName", "studentNumber", "count"},
}

// Store is the tabular backing store. Implementations treat every call as
// synchronous I/O; callers own serialization of conflicting writes.
type Store interface {
	// EnsureCollection creates the backing collection if absent. Idempotent.
	EnsureCollection(ctx context.Context, collection string) error

	// ListRows returns every data row in order, header excluded.
	ListRows(ctx context.Context, collection string) ([][]string, error)

	// AppendRow adds a row after the last existing row.
	AppendRow(ctx context.Context, collection string, row []string) error

	// WriteCell overwrites a single cell. rowIndex and columnIndex are 1-based.
	WriteCell(ctx context.Context, collection string, rowIndex, columnIndex int, value string) error

	// WriteRange overwrites a contiguous run of columns in one row starting at
	// columnStart. This is the only multi-cell write the store performs as a
	// unit; non-contiguous fields require multiple calls.
	WriteRange(ctx context.Context, collection string, rowIndex, columnStart int, values []string) error

	// DeleteRow removes a row, shifting all subsequent row indices down by one.
	DeleteRow(ctx context.Context, collection string, rowIndex int) error
}
