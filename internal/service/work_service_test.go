package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haneul-lab/storybook-api/internal/models"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
)

func (e *testEnv) workService() *WorkService {
	return NewWorkService(e.works, e.locker, time.Second, nil, nil)
}

func saveRequest(step int, title string) models.SaveWorkRequest {
	return models.SaveWorkRequest{
		Name:   "홍길동",
		Number: 1,
		Step:   step,
		Data:   map[string]interface{}{"title": title, "beginning": "옛날 옛적에"},
	}
}

func TestWorkSaveCreatesDraft(t *testing.T) {
	env := newTestEnv(t)
	svc := env.workService()

	work, err := svc.Save(context.Background(), env.cache(), saveRequest(1, "숲속 모험"))
	require.NoError(t, err)
	assert.NotEmpty(t, work.ID)
	assert.Equal(t, models.WorkDraft, work.Status)
	assert.Equal(t, 1, work.Step)

	payload, stored, err := svc.GetOwn(context.Background(), env.cache(), "홍길동", 1, 1)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "숲속 모험", payload["title"])
}

func TestWorkSaveUpsertsInPlace(t *testing.T) {
	env := newTestEnv(t)
	svc := env.workService()
	ctx := context.Background()

	first, err := svc.Save(ctx, env.cache(), saveRequest(1, "첫번째"))
	require.NoError(t, err)

	second, err := svc.Save(ctx, env.cache(), saveRequest(1, "두번째"))
	require.NoError(t, err)

	// Same row, same stable ID, same creation time.
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

	works, err := env.works.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, works, 1)

	payload, _, err := svc.GetOwn(ctx, env.cache(), "홍길동", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "두번째", payload["title"])
}

func TestWorkSavePreservesStatus(t *testing.T) {
	env := newTestEnv(t)
	svc := env.workService()
	ctx := context.Background()

	_, err := svc.Save(ctx, env.cache(), saveRequest(1, "초안"))
	require.NoError(t, err)
	_, err = svc.Submit(ctx, env.cache(), "홍길동", 1, 1)
	require.NoError(t, err)

	// Saving again after submission does not silently revert to draft.
	saved, err := svc.Save(ctx, env.cache(), saveRequest(1, "수정본"))
	require.NoError(t, err)
	assert.Equal(t, models.WorkSubmitted, saved.Status)
}

func TestWorkGetOwnMissingIsEmptyState(t *testing.T) {
	env := newTestEnv(t)
	svc := env.workService()

	payload, work, err := svc.GetOwn(context.Background(), env.cache(), "홍길동", 1, 1)
	require.NoError(t, err)
	assert.Nil(t, work)
	assert.Empty(t, payload)
}

func TestWorkSubmitAndPublish(t *testing.T) {
	env := newTestEnv(t)
	svc := env.workService()
	ctx := context.Background()

	_, err := svc.Save(ctx, env.cache(), saveRequest(2, "이야기"))
	require.NoError(t, err)

	// Drafts cannot be published directly.
	_, err = svc.Publish(ctx, env.cache(), "홍길동", 1, 2)
	assert.Equal(t, appErrors.ErrConflict.Code, errCode(t, err))

	submitted, err := svc.Submit(ctx, env.cache(), "홍길동", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.WorkSubmitted, submitted.Status)

	// Submitting twice conflicts.
	_, err = svc.Submit(ctx, env.cache(), "홍길동", 1, 2)
	assert.Equal(t, appErrors.ErrConflict.Code, errCode(t, err))

	published, err := svc.Publish(ctx, env.cache(), "홍길동", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.WorkPublished, published.Status)
}

func TestWorkStepsAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.workService()
	ctx := context.Background()

	_, err := svc.Save(ctx, env.cache(), saveRequest(1, "1단계"))
	require.NoError(t, err)
	_, err = svc.Save(ctx, env.cache(), saveRequest(2, "2단계"))
	require.NoError(t, err)

	step1, err := env.works.List(ctx, 1)
	require.NoError(t, err)
	step2, err := env.works.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, step1, 1)
	assert.Len(t, step2, 1)
	assert.NotEqual(t, step1[0].ID, step2[0].ID)
}

func TestWorkListByStep(t *testing.T) {
	env := newTestEnv(t)
	svc := env.workService()
	ctx := context.Background()

	_, err := svc.Save(ctx, env.cache(), saveRequest(1, "목록"))
	require.NoError(t, err)

	summaries, err := svc.ListByStep(ctx, env.cache(), 1)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "홍길동", summaries[0].StudentName)
	assert.Equal(t, models.WorkDraft, summaries[0].Status)
}

func TestPersonalWorkLifecycle(t *testing.T) {
	env := newTestEnv(t)
	svc := env.workService()
	ctx := context.Background()

	created, err := svc.SavePersonal(ctx, env.cache(), "", 1, map[string]interface{}{"title": "나의 이야기"}, false)
	require.NoError(t, err)
	assert.Equal(t, models.PersonalName, created.StudentName)
	assert.Equal(t, models.PersonalNumber, created.StudentNumber)
	assert.NotEmpty(t, created.ID)

	updated, err := svc.SavePersonal(ctx, env.cache(), created.ID, 1, map[string]interface{}{"title": "고친 이야기"}, true)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)

	payload, work, err := svc.GetByID(ctx, env.cache(), 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "고친 이야기", payload["title"])
	assert.True(t, work.IsComplete)

	works, err := env.works.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, works, 1)
}

func TestPersonalWorkUnknownID(t *testing.T) {
	env := newTestEnv(t)
	svc := env.workService()

	_, err := svc.SavePersonal(context.Background(), env.cache(), "nonexistent", 1, map[string]interface{}{"a": "b"}, false)
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(t, err))

	_, _, err = svc.GetByID(context.Background(), env.cache(), 1, "nonexistent")
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(t, err))
}

func TestWorkDelete(t *testing.T) {
	env := newTestEnv(t)
	svc := env.workService()
	ctx := context.Background()

	_, err := svc.Save(ctx, env.cache(), saveRequest(1, "삭제 대상"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, env.cache(), "홍길동", 1, 1))

	works, err := env.works.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, works)

	err = svc.Delete(ctx, env.cache(), "홍길동", 1, 1)
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(t, err))
}
