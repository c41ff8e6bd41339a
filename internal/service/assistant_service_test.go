package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/repository"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
)

type stubLLM struct {
	reply      string
	err        error
	calls      int
	onComplete func()
}

func (s *stubLLM) Complete(ctx context.Context, system string, history []models.ChatMessage, userMessage string) (string, error) {
	s.calls++
	if s.onComplete != nil {
		s.onComplete()
	}
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (e *testEnv) assistantService(client *stubLLM, config AssistantConfig) *AssistantService {
	svc := NewAssistantService(repository.NewAssistantRepository(e.store), client, config, e.locker, time.Second, nil, nil, nil)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	return svc
}

func assistantStudent() models.StudentIdentity {
	return models.StudentIdentity{Name: "홍길동", Number: 1, Token: "tok-홍길동"}
}

func TestAssistantChatRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	client := &stubLLM{reply: "주인공 이름부터 정해 볼까?"}
	svc := env.assistantService(client, AssistantConfig{Enabled: true})
	ctx := context.Background()

	resp, err := svc.Chat(ctx, assistantStudent(), models.ChatRequest{Step: 1, Message: "이야기를 어떻게 시작하지?"})
	require.NoError(t, err)
	assert.Equal(t, client.reply, resp.Reply)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, 19, resp.RemainingToday)
	assert.Equal(t, 1, client.calls)

	sessions, err := svc.ListSessions(ctx, assistantStudent(), 1)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Messages, 2)
	assert.Equal(t, models.MessageRoleUser, sessions[0].Messages[0].Role)
	assert.Equal(t, models.MessageRoleAssistant, sessions[0].Messages[1].Role)
	assert.Equal(t, 2, sessions[0].MessageCount)
}

func TestAssistantChatContinuesSession(t *testing.T) {
	env := newTestEnv(t)
	client := &stubLLM{reply: "좋은 생각이야!"}
	svc := env.assistantService(client, AssistantConfig{Enabled: true})
	ctx := context.Background()

	first, err := svc.Chat(ctx, assistantStudent(), models.ChatRequest{Step: 1, Message: "안녕"})
	require.NoError(t, err)

	second, err := svc.Chat(ctx, assistantStudent(), models.ChatRequest{SessionID: first.SessionID, Step: 1, Message: "주인공은 토끼야"})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	sessions, err := svc.ListSessions(ctx, assistantStudent(), 1)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 4, sessions[0].MessageCount)
}

func TestAssistantDailyQuota(t *testing.T) {
	env := newTestEnv(t)
	client := &stubLLM{reply: "응!"}
	svc := env.assistantService(client, AssistantConfig{Enabled: true, DailyQuota: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Chat(ctx, assistantStudent(), models.ChatRequest{Step: 1, Message: "질문"})
		require.NoError(t, err)
	}

	remaining, err := svc.RemainingToday(ctx, assistantStudent())
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	_, err = svc.Chat(ctx, assistantStudent(), models.ChatRequest{Step: 1, Message: "또 질문"})
	assert.Equal(t, appErrors.ErrQuotaExceeded.Code, errCode(t, err))
	assert.Equal(t, 2, client.calls)

	// Another student has their own counter.
	other := models.StudentIdentity{Name: "김철수", Number: 2, Token: "tok-김철수"}
	_, err = svc.Chat(ctx, other, models.ChatRequest{Step: 1, Message: "나도 질문"})
	require.NoError(t, err)
}

func TestAssistantQuotaResetsNextDay(t *testing.T) {
	env := newTestEnv(t)
	client := &stubLLM{reply: "응!"}
	svc := env.assistantService(client, AssistantConfig{Enabled: true, DailyQuota: 1})
	ctx := context.Background()

	_, err := svc.Chat(ctx, assistantStudent(), models.ChatRequest{Step: 1, Message: "오늘 질문"})
	require.NoError(t, err)
	_, err = svc.Chat(ctx, assistantStudent(), models.ChatRequest{Step: 1, Message: "한 번 더"})
	assert.Equal(t, appErrors.ErrQuotaExceeded.Code, errCode(t, err))

	svc.now = func() time.Time { return time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC) }
	remaining, err := svc.RemainingToday(ctx, assistantStudent())
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	_, err = svc.Chat(ctx, assistantStudent(), models.ChatRequest{Step: 1, Message: "내일 질문"})
	require.NoError(t, err)
}

func TestAssistantSessionFull(t *testing.T) {
	env := newTestEnv(t)
	client := &stubLLM{reply: "응!"}
	svc := env.assistantService(client, AssistantConfig{Enabled: true, MaxMessages: 2})
	ctx := context.Background()

	first, err := svc.Chat(ctx, assistantStudent(), models.ChatRequest{Step: 1, Message: "첫 질문"})
	require.NoError(t, err)

	_, err = svc.Chat(ctx, assistantStudent(), models.ChatRequest{SessionID: first.SessionID, Step: 1, Message: "둘째 질문"})
	assert.Equal(t, appErrors.ErrSessionFull.Code, errCode(t, err))
}

func TestAssistantSessionCapEvictsOldest(t *testing.T) {
	env := newTestEnv(t)
	client := &stubLLM{reply: "응!"}
	svc := env.assistantService(client, AssistantConfig{Enabled: true, MaxSessions: 2})
	ctx := context.Background()

	first, err := svc.StartSession(ctx, assistantStudent(), 1, "첫 수다")
	require.NoError(t, err)
	_, err = svc.StartSession(ctx, assistantStudent(), 1, "둘째 수다")
	require.NoError(t, err)
	third, err := svc.StartSession(ctx, assistantStudent(), 1, "셋째 수다")
	require.NoError(t, err)

	sessions, err := svc.ListSessions(ctx, assistantStudent(), 1)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	for _, sess := range sessions {
		assert.NotEqual(t, first.ID, sess.ID)
	}
	assert.Equal(t, third.ID, sessions[1].ID)
}

func TestAssistantSessionsAreScoped(t *testing.T) {
	env := newTestEnv(t)
	client := &stubLLM{reply: "응!"}
	svc := env.assistantService(client, AssistantConfig{Enabled: true})
	ctx := context.Background()

	mine, err := svc.Chat(ctx, assistantStudent(), models.ChatRequest{Step: 1, Message: "비밀 얘기"})
	require.NoError(t, err)

	// Listing is per student and per step.
	other := models.StudentIdentity{Name: "김철수", Number: 2, Token: "tok-김철수"}
	sessions, err := svc.ListSessions(ctx, other, 1)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	sessions, err = svc.ListSessions(ctx, assistantStudent(), 2)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	// Another student cannot write into someone else's chat.
	_, err = svc.Chat(ctx, other, models.ChatRequest{SessionID: mine.SessionID, Step: 1, Message: "훔쳐보기"})
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(t, err))
}

func TestAssistantDisabled(t *testing.T) {
	env := newTestEnv(t)
	client := &stubLLM{reply: "응!"}
	svc := env.assistantService(client, AssistantConfig{Enabled: false})
	ctx := context.Background()

	_, err := svc.Chat(ctx, assistantStudent(), models.ChatRequest{Step: 1, Message: "질문"})
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(t, err))
	_, err = svc.StartSession(ctx, assistantStudent(), 1, "")
	assert.Equal(t, appErrors.ErrForbidden.Code, errCode(t, err))
	assert.Zero(t, client.calls)
}

func TestAssistantUpstreamFailureDoesNotCharge(t *testing.T) {
	env := newTestEnv(t)
	client := &stubLLM{err: errors.New("model unavailable")}
	svc := env.assistantService(client, AssistantConfig{Enabled: true, DailyQuota: 3})
	ctx := context.Background()

	_, err := svc.Chat(ctx, assistantStudent(), models.ChatRequest{Step: 1, Message: "질문"})
	assert.Equal(t, appErrors.ErrUpstream.Code, errCode(t, err))

	remaining, err := svc.RemainingToday(ctx, assistantStudent())
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestAssistantChatSurvivesEvictionDuringModelCall(t *testing.T) {
	env := newTestEnv(t)
	client := &stubLLM{reply: "멋진 주인공이네!"}
	svc := env.assistantService(client, AssistantConfig{Enabled: true, MaxSessions: 1})
	ctx := context.Background()

	first := models.StudentIdentity{Name: "김철수", Number: 2, Token: "tok-김철수"}
	mine := assistantStudent()
	neighbor := models.StudentIdentity{Name: "박영희", Number: 3, Token: "tok-박영희"}

	_, err := svc.StartSession(ctx, first, 1, "")
	require.NoError(t, err)
	session, err := svc.StartSession(ctx, mine, 1, "")
	require.NoError(t, err)
	_, err = svc.StartSession(ctx, neighbor, 1, "")
	require.NoError(t, err)

	// While the model is answering, the first student opens a new chat.
	// That evicts their old session and shifts every later row up.
	client.onComplete = func() {
		client.onComplete = nil
		_, err := svc.StartSession(ctx, first, 1, "")
		require.NoError(t, err)
	}

	resp, err := svc.Chat(ctx, mine, models.ChatRequest{SessionID: session.ID, Step: 1, Message: "내 주인공은 토끼야"})
	require.NoError(t, err)
	assert.Equal(t, session.ID, resp.SessionID)

	sessions, err := svc.ListSessions(ctx, mine, 1)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 2, sessions[0].MessageCount)
	assert.Equal(t, "내 주인공은 토끼야", sessions[0].Messages[0].Content)

	// The neighbor's untouched session stays empty.
	sessions, err = svc.ListSessions(ctx, neighbor, 1)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Zero(t, sessions[0].MessageCount)
	assert.Empty(t, sessions[0].Messages)
}
