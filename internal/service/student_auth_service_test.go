package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haneul-lab/storybook-api/internal/crypto"
	"github.com/haneul-lab/storybook-api/internal/lock"
	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/ratelimit"
	"github.com/haneul-lab/storybook-api/internal/repository"
	"github.com/haneul-lab/storybook-api/internal/requestcache"
	"github.com/haneul-lab/storybook-api/internal/rowstore"
	appErrors "github.com/haneul-lab/storybook-api/pkg/errors"
)

// testEnv wires the services over the in-memory row store the way main wires
// them over Postgres.
type testEnv struct {
	store    *rowstore.MemoryStore
	students *repository.StudentRepository
	works    *repository.WorkRepository
	settings *repository.SettingsRepository
	teachers *repository.TeacherRepository
	limiter  *ratelimit.Limiter
	locker   *lock.LocalLocker
	salt     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := rowstore.NewMemoryStore()
	ctx := context.Background()
	for collection := range rowstore.Headers {
		require.NoError(t, store.EnsureCollection(ctx, collection))
	}

	settings := repository.NewSettingsRepository(store)
	salt, err := crypto.NewSalt()
	require.NoError(t, err)
	require.NoError(t, settings.Set(ctx, models.SettingSalt, salt))

	return &testEnv{
		store:    store,
		students: repository.NewStudentRepository(store),
		works:    repository.NewWorkRepository(store),
		settings: settings,
		teachers: repository.NewTeacherRepository(store),
		limiter: ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{
			MaxAttempts: 5,
			Window:      15 * time.Minute,
			Lockout:     30 * time.Minute,
		}, zap.NewNop()),
		locker: lock.NewLocalLocker(),
		salt:   salt,
	}
}

func (e *testEnv) cache() *requestcache.Cache {
	return requestcache.New(e.students, e.works)
}

func (e *testEnv) studentAuth() *StudentAuthService {
	return NewStudentAuthService(e.students, e.settings, e.limiter, e.locker, time.Second, nil, nil)
}

func (e *testEnv) addStudent(t *testing.T, name string, number int, pin string, status models.StudentStatus) {
	t.Helper()
	student := &models.Student{
		Name:      name,
		Number:    number,
		Token:     "tok-" + name,
		CreatedAt: time.Now().UTC(),
		Status:    status,
	}
	if pin != "" {
		student.PINHash = crypto.Hash(pin, crypto.TagStudentPIN, e.salt)
	}
	require.NoError(t, e.students.Append(context.Background(), student))
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return appErrors.FromError(err).Code
}

func TestStudentLoginSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.addStudent(t, "홍길동", 1, "123456", models.StudentActive)
	svc := env.studentAuth()

	identity, err := svc.Login(context.Background(), env.cache(), models.StudentLoginRequest{
		Name: "홍길동", Number: 1, PIN: "123456",
	})
	require.NoError(t, err)
	assert.Equal(t, "홍길동", identity.Name)
	assert.Equal(t, "tok-홍길동", identity.Token)

	// Last access was stamped.
	students, err := env.students.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, students[0].LastAccessAt)
}

func TestStudentLoginWrongPIN(t *testing.T) {
	env := newTestEnv(t)
	env.addStudent(t, "홍길동", 1, "123456", models.StudentActive)
	svc := env.studentAuth()

	_, err := svc.Login(context.Background(), env.cache(), models.StudentLoginRequest{
		Name: "홍길동", Number: 1, PIN: "654321",
	})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errCode(t, err))
}

func TestStudentLoginUnknownStudent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.studentAuth()

	_, err := svc.Login(context.Background(), env.cache(), models.StudentLoginRequest{
		Name: "없는학생", Number: 9, PIN: "123456",
	})
	assert.Equal(t, appErrors.ErrNotFound.Code, errCode(t, err))
}

func TestStudentLoginPendingNeedsSetup(t *testing.T) {
	env := newTestEnv(t)
	env.addStudent(t, "홍길동", 1, "", models.StudentPending)
	svc := env.studentAuth()

	_, err := svc.Login(context.Background(), env.cache(), models.StudentLoginRequest{
		Name: "홍길동", Number: 1, PIN: "123456",
	})
	assert.Equal(t, appErrors.ErrNeedPINSetup.Code, errCode(t, err))
}

func TestStudentLoginInactive(t *testing.T) {
	env := newTestEnv(t)
	env.addStudent(t, "홍길동", 1, "123456", models.StudentInactive)
	svc := env.studentAuth()

	_, err := svc.Login(context.Background(), env.cache(), models.StudentLoginRequest{
		Name: "홍길동", Number: 1, PIN: "123456",
	})
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, errCode(t, err))
}

func TestStudentLoginLockoutAfterRepeatedFailures(t *testing.T) {
	env := newTestEnv(t)
	env.addStudent(t, "홍길동", 1, "123456", models.StudentActive)
	svc := env.studentAuth()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Login(ctx, env.cache(), models.StudentLoginRequest{
			Name: "홍길동", Number: 1, PIN: "000000",
		})
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errCode(t, err))
	}

	// The sixth attempt is denied before the PIN is even checked.
	_, err := svc.Login(ctx, env.cache(), models.StudentLoginRequest{
		Name: "홍길동", Number: 1, PIN: "123456",
	})
	assert.Equal(t, appErrors.ErrRateLimited.Code, errCode(t, err))

	// A different student is unaffected.
	env.addStudent(t, "김철수", 2, "111111", models.StudentActive)
	_, err = svc.Login(ctx, env.cache(), models.StudentLoginRequest{
		Name: "김철수", Number: 2, PIN: "111111",
	})
	assert.NoError(t, err)
}

func TestStudentLoginSuccessResetsCounter(t *testing.T) {
	env := newTestEnv(t)
	env.addStudent(t, "홍길동", 1, "123456", models.StudentActive)
	svc := env.studentAuth()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _ = svc.Login(ctx, env.cache(), models.StudentLoginRequest{
			Name: "홍길동", Number: 1, PIN: "000000",
		})
	}
	_, err := svc.Login(ctx, env.cache(), models.StudentLoginRequest{
		Name: "홍길동", Number: 1, PIN: "123456",
	})
	require.NoError(t, err)

	// The slate is clean: four more failures still leave room.
	for i := 0; i < 4; i++ {
		_, err = svc.Login(ctx, env.cache(), models.StudentLoginRequest{
			Name: "홍길동", Number: 1, PIN: "000000",
		})
		assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errCode(t, err))
	}
}

func TestStudentTokenLogin(t *testing.T) {
	env := newTestEnv(t)
	env.addStudent(t, "홍길동", 1, "123456", models.StudentActive)
	svc := env.studentAuth()
	ctx := context.Background()

	identity, err := svc.TokenLogin(ctx, env.cache(), "tok-홍길동")
	require.NoError(t, err)
	assert.Equal(t, 1, identity.Number)

	_, err = svc.TokenLogin(ctx, env.cache(), "bogus")
	assert.Equal(t, appErrors.ErrUnauthorized.Code, errCode(t, err))
}

func TestStudentTokenLoginRequiresActive(t *testing.T) {
	env := newTestEnv(t)
	env.addStudent(t, "홍길동", 1, "", models.StudentPending)
	svc := env.studentAuth()

	_, err := svc.TokenLogin(context.Background(), env.cache(), "tok-홍길동")
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, errCode(t, err))
}

func TestSetPINActivatesPendingStudent(t *testing.T) {
	env := newTestEnv(t)
	env.addStudent(t, "홍길동", 1, "", models.StudentPending)
	svc := env.studentAuth()
	ctx := context.Background()

	identity, err := svc.SetPIN(ctx, env.cache(), models.SetPINRequest{
		Name: "홍길동", Number: 1, PIN: "123456",
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-홍길동", identity.Token)

	// The student can now log in with the chosen PIN.
	_, err = svc.Login(ctx, env.cache(), models.StudentLoginRequest{
		Name: "홍길동", Number: 1, PIN: "123456",
	})
	assert.NoError(t, err)
}

func TestSetPINRejectsAlreadyActive(t *testing.T) {
	env := newTestEnv(t)
	env.addStudent(t, "홍길동", 1, "123456", models.StudentActive)
	svc := env.studentAuth()

	_, err := svc.SetPIN(context.Background(), env.cache(), models.SetPINRequest{
		Name: "홍길동", Number: 1, PIN: "999999",
	})
	assert.Equal(t, appErrors.ErrConflict.Code, errCode(t, err))
}

func TestSetPINContention(t *testing.T) {
	env := newTestEnv(t)
	env.addStudent(t, "홍길동", 1, "", models.StudentPending)
	svc := env.studentAuth()

	release, err := env.locker.Acquire(context.Background(), time.Second)
	require.NoError(t, err)
	defer release()

	// Shorten the wait so the test does not sit out the full wait.
	svc.lockWait = 20 * time.Millisecond
	_, err = svc.SetPIN(context.Background(), env.cache(), models.SetPINRequest{
		Name: "홍길동", Number: 1, PIN: "123456",
	})
	assert.Equal(t, appErrors.ErrContention.Code, errCode(t, err))
}
