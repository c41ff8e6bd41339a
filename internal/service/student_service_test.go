package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haneul-lab/storybook-api/internal/models"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
)

func (e *testEnv) studentService() *StudentService {
	return NewStudentService(e.students, e.settings, e.locker, time.Second, nil, nil)
}

func TestStudentRegisterWithPIN(t *testing.T) {
	env := newTestEnv(t)
	svc := env.studentService()

	student, err := svc.Register(context.Background(), env.cache(), models.RegisterStudentRequest{
		Name: "홍길동", Number: 1, PIN: "123456",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StudentActive, student.Status)
	assert.NotEmpty(t, student.Token)
	assert.True(t, student.HasPIN())
}

func TestStudentRegisterWithoutPINStartsPending(t *testing.T) {
	env := newTestEnv(t)
	svc := env.studentService()

	student, err := svc.Register(context.Background(), env.cache(), models.RegisterStudentRequest{
		Name: "김철수", Number: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StudentPending, student.Status)
	assert.False(t, student.HasPIN())
}

func TestStudentRegisterDuplicateConflicts(t *testing.T) {
	env := newTestEnv(t)
	svc := env.studentService()
	ctx := context.Background()

	_, err := svc.Register(ctx, env.cache(), models.RegisterStudentRequest{Name: "홍길동", Number: 1})
	require.NoError(t, err)

	_, err = svc.Register(ctx, env.cache(), models.RegisterStudentRequest{Name: "홍길동", Number: 1})
	assert.Equal(t, appErrors.ErrConflict.Code, errCode(t, err))

	// Same name with a different number is a different student.
	_, err = svc.Register(ctx, env.cache(), models.RegisterStudentRequest{Name: "홍길동", Number: 2})
	require.NoError(t, err)
}

func TestStudentBulkRegister(t *testing.T) {
	env := newTestEnv(t)
	svc := env.studentService()
	ctx := context.Background()

	_, err := svc.Register(ctx, env.cache(), models.RegisterStudentRequest{Name: "기존", Number: 9})
	require.NoError(t, err)

	csvData := strings.Join([]string{
		"홍길동,1,123456",
		"김철수,2",
		"기존,9",
		",3",
		"박영희,999",
		"이몽룡,4,12ab56",
		"홍길동,1",
	}, "\n")

	result, err := svc.BulkRegister(ctx, env.cache(), csvData)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Registered)
	require.Len(t, result.Skipped, 5)
	assert.Contains(t, result.Skipped[0], "line 3")
	assert.Contains(t, result.Skipped[0], "already registered")
	assert.Contains(t, result.Skipped[1], "name is empty")
	assert.Contains(t, result.Skipped[2], "number must be between 1 and 100")
	assert.Contains(t, result.Skipped[3], "PIN must be exactly 6 digits")
	// A duplicate within the same import is also skipped.
	assert.Contains(t, result.Skipped[4], "line 7")

	roster, err := svc.List(ctx, env.cache())
	require.NoError(t, err)
	assert.Len(t, roster, 3)
}

func TestStudentBulkRegisterEmptyInput(t *testing.T) {
	env := newTestEnv(t)
	svc := env.studentService()

	_, err := svc.BulkRegister(context.Background(), env.cache(), "")
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(t, err))
}

func TestStudentDeactivateAndReactivate(t *testing.T) {
	env := newTestEnv(t)
	svc := env.studentService()
	ctx := context.Background()

	_, err := svc.Register(ctx, env.cache(), models.RegisterStudentRequest{Name: "홍길동", Number: 1, PIN: "123456"})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, env.cache(), "홍길동", 1))
	roster, err := svc.List(ctx, env.cache())
	require.NoError(t, err)
	assert.Equal(t, models.StudentInactive, roster[0].Status)

	// A student with a PIN comes back active.
	require.NoError(t, svc.Reactivate(ctx, env.cache(), "홍길동", 1))
	roster, err = svc.List(ctx, env.cache())
	require.NoError(t, err)
	assert.Equal(t, models.StudentActive, roster[0].Status)
}

func TestStudentReactivateWithoutPINReturnsToPending(t *testing.T) {
	env := newTestEnv(t)
	svc := env.studentService()
	ctx := context.Background()

	_, err := svc.Register(ctx, env.cache(), models.RegisterStudentRequest{Name: "김철수", Number: 2})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, env.cache(), "김철수", 2))
	require.NoError(t, svc.Reactivate(ctx, env.cache(), "김철수", 2))

	roster, err := svc.List(ctx, env.cache())
	require.NoError(t, err)
	assert.Equal(t, models.StudentPending, roster[0].Status)
}

func TestStudentResetPIN(t *testing.T) {
	env := newTestEnv(t)
	svc := env.studentService()
	ctx := context.Background()

	_, err := svc.Register(ctx, env.cache(), models.RegisterStudentRequest{Name: "김철수", Number: 2})
	require.NoError(t, err)

	assert.Equal(t, appErrors.ErrValidation.Code, errCode(t, svc.ResetPIN(ctx, env.cache(), "김철수", 2, "12345")))
	assert.Equal(t, appErrors.ErrValidation.Code, errCode(t, svc.ResetPIN(ctx, env.cache(), "김철수", 2, "12a456")))

	require.NoError(t, svc.ResetPIN(ctx, env.cache(), "김철수", 2, "654321"))

	// The fresh PIN works for login and the account is active.
	auth := env.studentAuth()
	identity, err := auth.Login(ctx, env.cache(), models.StudentLoginRequest{Name: "김철수", Number: 2, PIN: "654321"})
	require.NoError(t, err)
	assert.Equal(t, "김철수", identity.Name)
	assert.NotEmpty(t, identity.Token)
}

func TestStudentResetPINUnknownStudent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.studentService()

	err := svc.ResetPIN(context.Background(), env.cache(), "없는학생", 50, "123456")
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(t, err))
}

func TestStudentDelete(t *testing.T) {
	env := newTestEnv(t)
	svc := env.studentService()
	ctx := context.Background()

	_, err := svc.Register(ctx, env.cache(), models.RegisterStudentRequest{Name: "홍길동", Number: 1})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, env.cache(), "홍길동", 1))

	roster, err := svc.List(ctx, env.cache())
	require.NoError(t, err)
	assert.Empty(t, roster)

	err = svc.Delete(ctx, env.cache(), "홍길동", 1)
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(t, err))
}
