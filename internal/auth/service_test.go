// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gridquest/gridquest/internal/auth"
	"github.com/gridquest/gridquest/internal/auth/mocks"
	"github.com/gridquest/gridquest/internal/world"
	worldmocks "github.com/gridquest/gridquest/internal/world/mocks"
	"github.com/gridquest/gridquest/pkg/errutil"
)

// fixture wires a MockStore to per-repository mocks. Repository accessors
// may be called any number of times.
type fixture struct {
	store    *mocks.MockStore
	accounts *mocks.MockAccountRepository
	sessions *mocks.MockSessionRepository
	chars    *worldmocks.MockCharacterRepository
	logs     *worldmocks.MockActionLog
	hasher   *mocks.MockPasswordHasher
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		store:    mocks.NewMockStore(t),
		accounts: mocks.NewMockAccountRepository(t),
		sessions: mocks.NewMockSessionRepository(t),
		chars:    worldmocks.NewMockCharacterRepository(t),
		logs:     worldmocks.NewMockActionLog(t),
		hasher:   mocks.NewMockPasswordHasher(t),
	}
	f.store.On("Accounts").Return(f.accounts).Maybe()
	f.store.On("Sessions").Return(f.sessions).Maybe()
	f.store.On("Characters").Return(f.chars).Maybe()
	f.store.On("Logs").Return(f.logs).Maybe()
	return f
}

func (f *fixture) service(t *testing.T, opts ...auth.Option) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(f.store, f.hasher, opts...)
	require.NoError(t, err)
	return svc
}

func TestNewService_NilDependencies(t *testing.T) {
	_, err := auth.NewService(nil, mocks.NewMockPasswordHasher(t))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_SERVICE")
	assert.Contains(t, err.Error(), "store is required")

	_, err = auth.NewService(mocks.NewMockStore(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password hasher is required")
}

func TestService_Signup(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account, character and signup log then issues a session", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(t)

		var (
			created  *auth.Account
			char     *world.Character
			logEntry *world.LogEntry
		)
		f.hasher.On("Hash", "secret").Return("$argon2id$hash", nil)
		f.store.On("InTransaction", ctx, mock.Anything).Return(nil)
		f.accounts.On("Create", ctx, mock.AnythingOfType("*auth.Account")).
			Run(func(args mock.Arguments) { created = args.Get(1).(*auth.Account) }).
			Return(nil)
		f.chars.On("Create", ctx, mock.AnythingOfType("*world.Character")).
			Run(func(args mock.Arguments) { char = args.Get(1).(*world.Character) }).
			Return(nil)
		f.logs.On("Append", ctx, mock.AnythingOfType("*world.LogEntry")).
			Run(func(args mock.Arguments) { logEntry = args.Get(1).(*world.LogEntry) }).
			Return(nil)
		f.sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(nil)

		session, token, err := svc.Signup(ctx, auth.SignupRequest{
			Username:      " hero ",
			Password:      "secret",
			CharacterName: "Brave Hero",
		})
		require.NoError(t, err)
		assert.Len(t, token, auth.SessionTokenBytes*2)
		assert.Equal(t, auth.HashSessionToken(token), session.TokenHash)

		require.NotNil(t, created)
		assert.Equal(t, "hero", created.Username, "username is trimmed")
		assert.Equal(t, "$argon2id$hash", created.PasswordHash)
		assert.Equal(t, created.ID, session.AccountID)

		require.NotNil(t, char)
		assert.Equal(t, created.ID, char.AccountID)
		assert.Equal(t, world.Position{X: 1, Y: 1}, char.Position())
		assert.Equal(t, world.DefaultHealth, char.Health)
		assert.Equal(t, world.DefaultAP, char.MaxAP)

		require.NotNil(t, logEntry)
		assert.Equal(t, char.ID, logEntry.CharacterID)
		assert.Equal(t, world.ActionTypeSignup, logEntry.ActionType)
		assert.Equal(t, "Created character Brave Hero", logEntry.Message)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(t)

		for _, req := range []auth.SignupRequest{
			{Password: "secret", CharacterName: "Hero"},
			{Username: "hero", CharacterName: "Hero"},
			{Username: "hero", Password: "secret", CharacterName: "   "},
		} {
			_, _, err := svc.Signup(ctx, req)
			require.Error(t, err)
			assert.ErrorIs(t, err, auth.ErrMissingFields)
			errutil.AssertErrorCode(t, err, "AUTH_MISSING_FIELDS")
		}
	})

	t.Run("invalid username", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(t)
		f.hasher.On("Hash", "secret").Return("$argon2id$hash", nil)

		_, _, err := svc.Signup(ctx, auth.SignupRequest{Username: "1bad", Password: "secret", CharacterName: "Hero"})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_USERNAME")
	})

	t.Run("taken username", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(t)
		f.hasher.On("Hash", "secret").Return("$argon2id$hash", nil)
		f.store.On("InTransaction", ctx, mock.Anything).Return(nil)
		f.accounts.On("Create", ctx, mock.Anything).Return(auth.ErrUsernameTaken)

		_, _, err := svc.Signup(ctx, auth.SignupRequest{Username: "hero", Password: "secret", CharacterName: "Hero"})
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrUsernameTaken)
		errutil.AssertErrorCode(t, err, "AUTH_USERNAME_TAKEN")
	})

	t.Run("log append failure aborts the transaction", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(t)
		f.hasher.On("Hash", "secret").Return("$argon2id$hash", nil)
		f.store.On("InTransaction", ctx, mock.Anything).Return(nil)
		f.accounts.On("Create", ctx, mock.Anything).Return(nil)
		f.chars.On("Create", ctx, mock.Anything).Return(nil)
		f.logs.On("Append", ctx, mock.Anything).Return(errors.New("disk full"))

		_, _, err := svc.Signup(ctx, auth.SignupRequest{Username: "hero", Password: "secret", CharacterName: "Hero"})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_SIGNUP_FAILED")
		f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	account := &auth.Account{ID: ulid.Make(), Username: "hero", PasswordHash: "$argon2id$stored"}

	t.Run("valid credentials create a session", func(t *testing.T) {
		f := newFixture(t)
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		svc := f.service(t, auth.WithClock(func() time.Time { return now }), auth.WithSessionTTL(time.Hour))

		f.accounts.On("GetByUsername", ctx, "hero").Return(account, nil)
		f.hasher.On("Verify", "secret", account.PasswordHash).Return(true, nil)
		f.sessions.On("Create", ctx, mock.AnythingOfType("*auth.Session")).Return(nil)

		session, token, err := svc.Login(ctx, "hero", "secret")
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, account.ID, session.AccountID)
		assert.True(t, now.Add(time.Hour).Equal(session.ExpiresAt))
	})

	t.Run("unknown username still verifies against a dummy hash", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(t)

		f.accounts.On("GetByUsername", ctx, "ghost").Return(nil, auth.ErrNotFound)
		f.hasher.On("Verify", "secret", mock.AnythingOfType("string")).Return(false, nil)

		_, _, err := svc.Login(ctx, "ghost", "secret")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(t)

		f.accounts.On("GetByUsername", ctx, "hero").Return(account, nil)
		f.hasher.On("Verify", "wrong", account.PasswordHash).Return(false, nil)

		_, _, err := svc.Login(ctx, "hero", "wrong")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unreadable stored hash is logged and reported as invalid credentials", func(t *testing.T) {
		f := newFixture(t)
		var buf bytes.Buffer
		svc := f.service(t, auth.WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))

		f.accounts.On("GetByUsername", ctx, "hero").Return(account, nil)
		f.hasher.On("Verify", "secret", account.PasswordHash).Return(false, errors.New("bad hash"))

		_, _, err := svc.Login(ctx, "hero", "secret")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.Contains(t, buf.String(), "stored password hash is unreadable")
		assert.Contains(t, buf.String(), account.ID.String())
	})

	t.Run("repository failure", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(t)
		f.accounts.On("GetByUsername", ctx, "hero").Return(nil, errors.New("connection refused"))

		_, _, err := svc.Login(ctx, "hero", "secret")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(t)
		_, _, err := svc.Login(ctx, "", "secret")
		assert.ErrorIs(t, err, auth.ErrMissingFields)
	})
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token, hash, err := auth.GenerateSessionToken()
	require.NoError(t, err)

	live := &auth.Session{ID: ulid.Make(), AccountID: ulid.Make(), TokenHash: hash, ExpiresAt: now.Add(time.Minute)}

	t.Run("live session", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(t, auth.WithClock(func() time.Time { return now }))
		f.sessions.On("GetByTokenHash", ctx, hash).Return(live, nil)

		got, err := svc.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, live.ID, got.ID)
	})

	t.Run("expired session", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(t, auth.WithClock(func() time.Time { return now.Add(time.Minute) }))
		f.sessions.On("GetByTokenHash", ctx, hash).Return(live, nil)

		_, err := svc.Authenticate(ctx, token)
		assert.ErrorIs(t, err, auth.ErrSessionInvalid)
		errutil.AssertErrorCode(t, err, "SESSION_EXPIRED")
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(t)
		f.sessions.On("GetByTokenHash", ctx, hash).Return(nil, auth.ErrNotFound)

		_, err := svc.Authenticate(ctx, token)
		assert.ErrorIs(t, err, auth.ErrSessionInvalid)
		errutil.AssertErrorCode(t, err, "SESSION_INVALID")
	})

	t.Run("malformed token never reaches the repository", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(t)

		_, err := svc.Authenticate(ctx, "short")
		assert.ErrorIs(t, err, auth.ErrSessionInvalid)
	})

	t.Run("repository failure is not reported as an invalid session", func(t *testing.T) {
		f := newFixture(t)
		svc := f.service(t)
		f.sessions.On("GetByTokenHash", ctx, hash).Return(nil, errors.New("connection refused"))

		_, err := svc.Authenticate(ctx, token)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrSessionInvalid)
		errutil.AssertErrorCode(t, err, "SESSION_VALIDATE_FAILED")
	})
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	f := newFixture(t)
	svc := f.service(t)
	f.sessions.On("Delete", ctx, id).Return(auth.ErrNotFound).Once()
	require.NoError(t, svc.Logout(ctx, id), "unknown session is not an error")

	f.sessions.On("Delete", ctx, id).Return(errors.New("connection refused")).Once()
	err := svc.Logout(ctx, id)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "AUTH_LOGOUT_FAILED")
}

func TestService_RunJanitor(t *testing.T) {
	f := newFixture(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := f.service(t, auth.WithClock(func() time.Time { return now }))

	ctx, cancel := context.WithCancel(context.Background())
	purged := make(chan struct{})
	f.sessions.On("DeleteExpired", mock.Anything, now).
		Run(func(mock.Arguments) {
			select {
			case purged <- struct{}{}:
			default:
			}
		}).
		Return(int64(2), nil)

	done := make(chan struct{})
	go func() {
		svc.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()

	select {
	case <-purged:
	case <-time.After(2 * time.Second):
		t.Fatal("janitor never purged")
	}
	cancel()
	<-done
}
