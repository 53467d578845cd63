package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgridhq/tictactoe-backend/internal/apperror"
	"github.com/playgridhq/tictactoe-backend/internal/entity"
)

// fakeSessionRepo keeps sessions in memory so auth tests don't need a
// running redis.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*entity.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*entity.Session)}
}

func (that *fakeSessionRepo) Create(_ context.Context, session *entity.Session, _ time.Duration) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.sessions[session.ID] = session

	return nil
}

func (that *fakeSessionRepo) GetByID(_ context.Context, id string) (*entity.Session, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, ok := that.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", apperror.ErrSessionExpired, id)
	}

	return session, nil
}

func (that *fakeSessionRepo) DeleteByID(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.sessions, id)

	return nil
}

func newAuthEnv(t *testing.T) (*testEnv, AuthService, *fakeSessionRepo) {
	t.Helper()

	env := newTestEnv(t)
	sessions := newFakeSessionRepo()
	auth := NewAuthService("test-secret", time.Hour, env.userRepo, sessions)

	return env, auth, sessions
}

func TestAuthService_Register(t *testing.T) {
	t.Run("Registers a new user with a hashed password", func(t *testing.T) {
		env, auth, _ := newAuthEnv(t)

		// When: alice registers
		user, err := auth.Register(env.ctx, "alice", "alice@example.com", "s3cret")

		// Then: the user is persisted and the password is never stored plain
		require.NoError(t, err)
		assert.NotZero(t, user.ID)
		assert.NotEqual(t, "s3cret", user.PasswordHash)

		saved, err := env.users.GetUserByUsername(env.ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, user.ID, saved.ID)
	})

	t.Run("Rejects a duplicate username", func(t *testing.T) {
		env, auth, _ := newAuthEnv(t)

		_, err := auth.Register(env.ctx, "alice", "alice@example.com", "s3cret")
		require.NoError(t, err)

		// When: a second registration reuses the username
		_, err = auth.Register(env.ctx, "alice", "other@example.com", "other")

		assert.ErrorIs(t, err, apperror.ErrAlreadyRegistered)
	})
}

func TestAuthService_LoginAndAuthenticate(t *testing.T) {
	t.Run("A login token authenticates as the user", func(t *testing.T) {
		env, auth, _ := newAuthEnv(t)

		user, err := auth.Register(env.ctx, "alice", "alice@example.com", "s3cret")
		require.NoError(t, err)

		// When: alice logs in and presents the token
		token, err := auth.Login(env.ctx, "alice", "s3cret")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		userID, err := auth.Authenticate(env.ctx, token)

		// Then: the token resolves to her user id
		require.NoError(t, err)
		assert.Equal(t, user.ID, userID)
	})

	t.Run("Rejects a wrong password", func(t *testing.T) {
		env, auth, _ := newAuthEnv(t)

		_, err := auth.Register(env.ctx, "alice", "alice@example.com", "s3cret")
		require.NoError(t, err)

		_, err = auth.Login(env.ctx, "alice", "wrong")

		assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	})

	t.Run("Rejects an unknown username", func(t *testing.T) {
		env, auth, _ := newAuthEnv(t)

		_, err := auth.Login(env.ctx, "nobody", "whatever")

		assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
	})

	t.Run("Rejects a garbage token", func(t *testing.T) {
		env, auth, _ := newAuthEnv(t)

		_, err := auth.Authenticate(env.ctx, "not-a-token")

		assert.ErrorIs(t, err, apperror.ErrSessionExpired)
	})

	t.Run("Rejects a token signed with another key", func(t *testing.T) {
		env, auth, _ := newAuthEnv(t)

		_, err := auth.Register(env.ctx, "alice", "alice@example.com", "s3cret")
		require.NoError(t, err)

		otherSessions := newFakeSessionRepo()
		other := NewAuthService("other-secret", time.Hour, env.userRepo, otherSessions)

		foreignToken, err := other.Login(env.ctx, "alice", "s3cret")
		require.NoError(t, err)

		_, err = auth.Authenticate(env.ctx, foreignToken)

		assert.ErrorIs(t, err, apperror.ErrSessionExpired)
	})
}

func TestAuthService_Logout(t *testing.T) {
	env, auth, sessions := newAuthEnv(t)

	_, err := auth.Register(env.ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	token, err := auth.Login(env.ctx, "alice", "s3cret")
	require.NoError(t, err)

	// When: alice logs out
	require.NoError(t, auth.Logout(env.ctx, token))

	// Then: her session is gone and the token no longer authenticates
	assert.Empty(t, sessions.sessions)

	_, err = auth.Authenticate(env.ctx, token)
	assert.Error(t, err)
}

func TestAuthService_LoginExternal(t *testing.T) {
	env, auth, _ := newAuthEnv(t)

	user, err := auth.Register(env.ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	// When: an already-verified external identity logs in
	token, err := auth.LoginExternal(env.ctx, user)
	require.NoError(t, err)

	userID, err := auth.Authenticate(env.ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)
}
