package rowstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreAppendAndList(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.EnsureCollection(ctx, CollectionSettings))

	require.NoError(t, s.AppendRow(ctx, CollectionSettings, []string{"salt", "abc"}))
	require.NoError(t, s.AppendRow(ctx, CollectionSettings, []string{"siteTitle", "우리 반"}))

	rows, err := s.ListRows(ctx, CollectionSettings)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"salt", "abc"}, rows[0])
	assert.Equal(t, []string{"siteTitle", "우리 반"}, rows[1])
}

func TestMemoryStoreListReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.AppendRow(ctx, CollectionSettings, []string{"salt", "abc"}))

	rows, err := s.ListRows(ctx, CollectionSettings)
	require.NoError(t, err)
	rows[0][1] = "mutated"

	again, err := s.ListRows(ctx, CollectionSettings)
	require.NoError(t, err)
	assert.Equal(t, "abc", again[0][1])
}

func TestMemoryStoreWriteCell(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.AppendRow(ctx, CollectionSettings, []string{"salt", "abc"}))

	require.NoError(t, s.WriteCell(ctx, CollectionSettings, 1, 2, "def"))

	rows, _ := s.ListRows(ctx, CollectionSettings)
	assert.Equal(t, "def", rows[0][1])

	assert.Error(t, s.WriteCell(ctx, CollectionSettings, 2, 1, "x"))
	assert.Error(t, s.WriteCell(ctx, CollectionSettings, 1, 3, "x"))
}

func TestMemoryStoreWriteRange(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.AppendRow(ctx, CollectionStudents, []string{"홍길동", "1", "", "tok", "2026-03-01T00:00:00Z", "", "pending"}))

	require.NoError(t, s.WriteRange(ctx, CollectionStudents, 1, 3, []string{"hash", "tok", "2026-03-01T00:00:00Z", "2026-03-02T00:00:00Z", "active"}))

	rows, _ := s.ListRows(ctx, CollectionStudents)
	assert.Equal(t, "hash", rows[0][2])
	assert.Equal(t, "active", rows[0][6])

	assert.Error(t, s.WriteRange(ctx, CollectionStudents, 1, 4, []string{"a", "b", "c", "d", "e"}))
}

func TestMemoryStoreDeleteShiftsRows(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.AppendRow(ctx, CollectionSettings, []string{"a", "1"}))
	require.NoError(t, s.AppendRow(ctx, CollectionSettings, []string{"b", "2"}))
	require.NoError(t, s.AppendRow(ctx, CollectionSettings, []string{"c", "3"}))

	require.NoError(t, s.DeleteRow(ctx, CollectionSettings, 2))

	rows, _ := s.ListRows(ctx, CollectionSettings)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0][0])
	// The third row moved up into the deleted slot.
	assert.Equal(t, "c", rows[1][0])

	assert.Error(t, s.DeleteRow(ctx, CollectionSettings, 3))
}

func TestMemoryStoreEnsureCollectionRejectsUnknown(t *testing.T) {
	s := NewMemoryStore()
	assert.Error(t, s.EnsureCollection(context.Background(), "bogus"))
}

func TestWorkCollection(t *testing.T) {
	assert.Equal(t, "works_step1", WorkCollection(1))
	assert.Equal(t, "works_step3", WorkCollection(3))
	assert.Equal(t, "", WorkCollection(0))
	assert.Equal(t, "", WorkCollection(4))
}
