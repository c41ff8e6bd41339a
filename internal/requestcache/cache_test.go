package requestcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haneul-lab/storybook-api/internal/models"
)

type countingStudentLister struct {
	students []models.Student
	calls    int
}

func (l *countingStudentLister) List(ctx context.Context) ([]models.Student, error) {
	l.calls++
	out := make([]models.Student, len(l.students))
	copy(out, l.students)
	return out, nil
}

type countingWorkLister struct {
	works map[int][]models.Work
	calls int
}

func (l *countingWorkLister) List(ctx context.Context, step int) ([]models.Work, error) {
	l.calls++
	out := make([]models.Work, len(l.works[step]))
	copy(out, l.works[step])
	return out, nil
}

func testRoster() []models.Student {
	return []models.Student{
		{Name: "홍길동", Number: 1, Token: "tok-1", Status: models.StudentActive, RowIndex: 1},
		{Name: "김철수", Number: 2, Token: "tok-2", Status: models.StudentPending, RowIndex: 2},
	}
}

func TestStudentsLoadedOnce(t *testing.T) {
	students := &countingStudentLister{students: testRoster()}
	c := New(students, &countingWorkLister{})
	ctx := context.Background()

	_, err := c.Students(ctx)
	require.NoError(t, err)
	_, err = c.FindStudent(ctx, "홍길동", 1)
	require.NoError(t, err)
	_, err = c.FindStudentByToken(ctx, "tok-2")
	require.NoError(t, err)

	assert.Equal(t, 1, students.calls)
}

func TestFindStudent(t *testing.T) {
	c := New(&countingStudentLister{students: testRoster()}, &countingWorkLister{})
	ctx := context.Background()

	found, err := c.FindStudent(ctx, "홍길동", 1)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 1, found.RowIndex)

	missing, err := c.FindStudent(ctx, "홍길동", 2)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindStudentByToken(t *testing.T) {
	c := New(&countingStudentLister{students: testRoster()}, &countingWorkLister{})
	ctx := context.Background()

	found, err := c.FindStudentByToken(ctx, "tok-2")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "김철수", found.Name)

	missing, err := c.FindStudentByToken(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestInvalidateStudentsForcesReload(t *testing.T) {
	students := &countingStudentLister{students: testRoster()}
	c := New(students, &countingWorkLister{})
	ctx := context.Background()

	_, err := c.Students(ctx)
	require.NoError(t, err)

	students.students = append(students.students, models.Student{Name: "이영희", Number: 3, RowIndex: 3})
	c.InvalidateStudents()

	list, err := c.Students(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Equal(t, 2, students.calls)
}

func TestWorksLoadedOncePerStep(t *testing.T) {
	works := &countingWorkLister{works: map[int][]models.Work{
		1: {{StudentName: "홍길동", StudentNumber: 1, ID: "w1", Step: 1, RowIndex: 1}},
		2: {{StudentName: "홍길동", StudentNumber: 1, ID: "w2", Step: 2, RowIndex: 1}},
	}}
	c := New(&countingStudentLister{}, works)
	ctx := context.Background()

	_, err := c.Works(ctx, 1)
	require.NoError(t, err)
	_, err = c.FindWork(ctx, "홍길동", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, works.calls)

	_, err = c.Works(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, works.calls)
}

func TestFindWorkByID(t *testing.T) {
	works := &countingWorkLister{works: map[int][]models.Work{
		1: {
			{StudentName: "홍길동", StudentNumber: 1, ID: "w1", Step: 1, RowIndex: 1},
			{StudentName: models.PersonalName, StudentNumber: models.PersonalNumber, ID: "w2", Step: 1, RowIndex: 2},
		},
	}}
	c := New(&countingStudentLister{}, works)
	ctx := context.Background()

	found, err := c.FindWorkByID(ctx, 1, "w2")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, models.PersonalName, found.StudentName)

	missing, err := c.FindWorkByID(ctx, 1, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// A corrupt payload in a row the lookup does not match must not surface: the
// payload parse is deferred until someone asks for it.
func TestCorruptPayloadInOtherRowIgnored(t *testing.T) {
	works := &countingWorkLister{works: map[int][]models.Work{
		1: {
			{StudentName: "김철수", StudentNumber: 2, ID: "bad", RawData: "{corrupt", Step: 1, RowIndex: 1},
			{StudentName: "홍길동", StudentNumber: 1, ID: "good", RawData: `{"title":"숲속 모험"}`, Step: 1, RowIndex: 2},
		},
	}}
	c := New(&countingStudentLister{}, works)
	ctx := context.Background()

	found, err := c.FindWork(ctx, "홍길동", 1, 1)
	require.NoError(t, err)
	require.NotNil(t, found)

	payload, err := found.Payload()
	require.NoError(t, err)
	assert.Equal(t, "숲속 모험", payload["title"])

	bad, err := c.FindWork(ctx, "김철수", 2, 1)
	require.NoError(t, err)
	require.NotNil(t, bad)
	_, err = bad.Payload()
	assert.Error(t, err)
}

func TestInvalidateWorks(t *testing.T) {
	works := &countingWorkLister{works: map[int][]models.Work{
		1: {{ID: "w1", Step: 1, RowIndex: 1}},
		2: {{ID: "w2", Step: 2, RowIndex: 1}},
	}}
	c := New(&countingStudentLister{}, works)
	ctx := context.Background()

	_, _ = c.Works(ctx, 1)
	_, _ = c.Works(ctx, 2)
	require.Equal(t, 2, works.calls)

	c.InvalidateWorks(1)
	_, _ = c.Works(ctx, 1)
	_, _ = c.Works(ctx, 2)
	assert.Equal(t, 3, works.calls)

	// Zero invalidates every step.
	c.InvalidateWorks(0)
	_, _ = c.Works(ctx, 1)
	_, _ = c.Works(ctx, 2)
	assert.Equal(t, 5, works.calls)
}

func TestOnLoadHook(t *testing.T) {
	var loads, hits []string
	c := New(&countingStudentLister{students: testRoster()}, &countingWorkLister{})
	c.OnLoad = func(entity string) { loads = append(loads, entity) }
	c.OnHit = func(entity string) { hits = append(hits, entity) }
	ctx := context.Background()

	_, _ = c.Students(ctx)
	_, _ = c.Students(ctx)
	_, _ = c.Works(ctx, 1)
	_, _ = c.Works(ctx, 1)

	assert.Equal(t, []string{"students", "works"}, loads)
	assert.Equal(t, []string{"students", "works"}, hits)
}

func TestClearDropsEveryPartition(t *testing.T) {
	students := &countingStudentLister{students: testRoster()}
	works := &countingWorkLister{works: map[int][]models.Work{1: {{ID: "w1", Step: 1, RowIndex: 1}}}}
	c := New(students, works)
	ctx := context.Background()

	_, err := c.Students(ctx)
	require.NoError(t, err)
	_, err = c.Works(ctx, 1)
	require.NoError(t, err)

	c.Clear()

	_, err = c.FindStudentByToken(ctx, "tok-1")
	require.NoError(t, err)
	_, err = c.Works(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, students.calls)
	assert.Equal(t, 2, works.calls)
}
