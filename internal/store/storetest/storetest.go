// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

// Package storetest is a conformance suite run against every storage backend.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridquest/gridquest/internal/auth"
	"github.com/gridquest/gridquest/internal/store"
	"github.com/gridquest/gridquest/internal/world"
)

// Factory returns a migrated, empty backend. The factory owns cleanup.
type Factory func(t *testing.T) store.Backend

func intPtr(v int) *int { return &v }

// TB is the subset of testing.TB Seed needs, satisfied by GinkgoT() too.
type TB interface {
	require.TestingT
	Helper()
}

// Seed creates an account and its character.
func Seed(t TB, b store.Backend, username string) (*auth.Account, *world.Character) {
	t.Helper()
	ctx := context.Background()

	account, err := auth.NewAccount(username, "$argon2id$hash")
	require.NoError(t, err)
	char, err := world.NewCharacter(account.ID, "Hero "+username)
	require.NoError(t, err)

	require.NoError(t, b.InTransaction(ctx, func(ctx context.Context) error {
		if err := b.Accounts().Create(ctx, account); err != nil {
			return err
		}
		return b.Characters().Create(ctx, char)
	}))
	return account, char
}

// Run executes the suite.
func Run(t *testing.T, newBackend Factory) {
	t.Run("ping succeeds", func(t *testing.T) {
		require.NoError(t, newBackend(t).Ping(context.Background()))
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Migrate(context.Background()))
	})

	t.Run("accounts", func(t *testing.T) { testAccounts(t, newBackend(t)) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, newBackend(t)) })
	t.Run("characters", func(t *testing.T) { testCharacters(t, newBackend(t)) })
	t.Run("stats clamp to maximum", func(t *testing.T) { testStatsClamp(t, newBackend(t)) })
	t.Run("action log", func(t *testing.T) { testActionLog(t, newBackend(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newBackend(t)) })
}

func testAccounts(t *testing.T, b store.Backend) {
	ctx := context.Background()
	account, _ := Seed(t, b, "alice")

	got, err := b.Accounts().GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
	assert.Equal(t, account.PasswordHash, got.PasswordHash)
	assert.True(t, account.CreatedAt.Equal(got.CreatedAt))

	got, err = b.Accounts().GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = b.Accounts().GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, auth.ErrNotFound)

	_, err = b.Accounts().GetByID(ctx, ulid.Make())
	assert.ErrorIs(t, err, auth.ErrNotFound)

	dup, err := auth.NewAccount("alice", "$argon2id$other")
	require.NoError(t, err)
	err = b.Accounts().Create(ctx, dup)
	assert.ErrorIs(t, err, auth.ErrUsernameTaken)
}

func testSessions(t *testing.T, b store.Backend) {
	ctx := context.Background()
	account, _ := Seed(t, b, "bob")
	now := time.Now().UTC()

	live, err := auth.NewSession(account.ID, auth.HashSessionToken("live"), now.Add(time.Hour))
	require.NoError(t, err)
	stale, err := auth.NewSession(account.ID, auth.HashSessionToken("stale"), now.Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, b.Sessions().Create(ctx, live))
	require.NoError(t, b.Sessions().Create(ctx, stale))

	got, err := b.Sessions().GetByTokenHash(ctx, live.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)
	assert.Equal(t, account.ID, got.AccountID)
	assert.True(t, live.ExpiresAt.Equal(got.ExpiresAt))

	_, err = b.Sessions().GetByTokenHash(ctx, auth.HashSessionToken("unknown"))
	assert.ErrorIs(t, err, auth.ErrNotFound)

	n, err := b.Sessions().DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = b.Sessions().GetByTokenHash(ctx, stale.TokenHash)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	require.NoError(t, b.Sessions().Delete(ctx, live.ID))
	_, err = b.Sessions().GetByTokenHash(ctx, live.TokenHash)
	assert.ErrorIs(t, err, auth.ErrNotFound)
	assert.ErrorIs(t, b.Sessions().Delete(ctx, live.ID), auth.ErrNotFound)
}

func testCharacters(t *testing.T, b store.Backend) {
	ctx := context.Background()
	account, char := Seed(t, b, "carol")
	repo := b.Characters()

	got, err := repo.GetByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, char.ID, got.ID)
	assert.Equal(t, char.Name, got.Name)
	assert.Equal(t, world.Position{X: 1, Y: 1}, got.Position())
	assert.Equal(t, 100, got.Health)
	assert.Equal(t, 10, got.MaxAP)
	assert.True(t, char.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.GetByAccount(ctx, ulid.Make())
	assert.ErrorIs(t, err, world.ErrNotFound)

	require.NoError(t, repo.UpdatePosition(ctx, char.ID, world.Position{X: 1, Y: 0, InsideBuilding: true}))
	got, err = repo.GetByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, world.Position{X: 1, Y: 0, InsideBuilding: true}, got.Position())

	assert.Error(t, repo.UpdatePosition(ctx, char.ID, world.Position{X: 5, Y: 0}))
	assert.ErrorIs(t, repo.UpdatePosition(ctx, ulid.Make(), world.Position{X: 0, Y: 0}), world.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateStats(ctx, ulid.Make(), world.StatsUpdate{AP: intPtr(1)}), world.ErrNotFound)
}

func testStatsClamp(t *testing.T, b store.Backend) {
	ctx := context.Background()
	account, char := Seed(t, b, "dave")
	repo := b.Characters()

	require.NoError(t, repo.UpdateStats(ctx, char.ID, world.StatsUpdate{Health: intPtr(40), AP: intPtr(3)}))
	got, err := repo.GetByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Health)
	assert.Equal(t, 100, got.MP, "omitted pools are unchanged")
	assert.Equal(t, 3, got.AP)

	require.NoError(t, repo.UpdateStats(ctx, char.ID, world.StatsUpdate{
		Health:     intPtr(1000),
		MP:         intPtr(101),
		AP:         intPtr(11),
		Experience: intPtr(5000),
	}))
	got, err = repo.GetByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, got.MaxHealth, got.Health)
	assert.Equal(t, got.MaxMP, got.MP)
	assert.Equal(t, got.MaxAP, got.AP)
	assert.Equal(t, 5000, got.Experience, "experience has no maximum")

	err = repo.UpdateStats(ctx, char.ID, world.StatsUpdate{AP: intPtr(-1)})
	require.ErrorIs(t, err, world.ErrNegativeStat)
	got, err = repo.GetByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, got.MaxAP, got.AP, "rejected update writes nothing")

	require.NoError(t, repo.UpdateStats(ctx, char.ID, world.StatsUpdate{}), "empty update is a no-op")
}

func testActionLog(t *testing.T, b store.Backend) {
	ctx := context.Background()
	_, char := Seed(t, b, "erin")
	_, other := Seed(t, b, "frank")
	logs := b.Logs()

	empty, err := logs.Recent(ctx, char.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	var appended []*world.LogEntry
	for i := 0; i < 12; i++ {
		e := world.NewLogEntry(char.ID, "SEARCH", "entry")
		e.Message = e.Message + " " + string(rune('a'+i))
		require.NoError(t, logs.Append(ctx, e))
		appended = append(appended, e)
	}
	require.NoError(t, logs.Append(ctx, world.NewLogEntry(other.ID, "REST", "other character")))

	recent, err := logs.Recent(ctx, char.ID, 0)
	require.NoError(t, err)
	require.Len(t, recent, world.DefaultLogLimit, "non-positive limit means the default")
	assert.Equal(t, appended[11].ID, recent[0].ID, "newest first")
	assert.Equal(t, appended[2].ID, recent[9].ID)
	for _, e := range recent {
		assert.Equal(t, char.ID, e.CharacterID)
	}

	three, err := logs.Recent(ctx, char.ID, 3)
	require.NoError(t, err)
	require.Len(t, three, 3)
	assert.Equal(t, "entry l", three[0].Message)
	assert.Equal(t, "SEARCH", three[0].ActionType)
	assert.True(t, appended[11].CreatedAt.Equal(three[0].CreatedAt))
}

var errAbort = errors.New("abort")

func testTransactions(t *testing.T, b store.Backend) {
	ctx := context.Background()
	account, char := Seed(t, b, "grace")

	err := b.InTransaction(ctx, func(ctx context.Context) error {
		if err := b.Characters().UpdatePosition(ctx, char.ID, world.Position{X: 2, Y: 2}); err != nil {
			return err
		}
		if err := b.Logs().Append(ctx, world.NewLogEntry(char.ID, "MOVE", "Moved south to (2, 2)")); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	got, err := b.Characters().GetByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, world.Position{X: 1, Y: 1}, got.Position(), "rolled back position")
	logs, err := b.Logs().Recent(ctx, char.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, logs, "rolled back log entry")

	err = b.InTransaction(ctx, func(ctx context.Context) error {
		if err := b.Characters().UpdateStats(ctx, char.ID, world.StatsUpdate{AP: intPtr(8)}); err != nil {
			return err
		}
		// Nested calls join the outer transaction.
		return b.InTransaction(ctx, func(ctx context.Context) error {
			return b.Logs().Append(ctx, world.NewLogEntry(char.ID, "REST", "Rested"))
		})
	})
	require.NoError(t, err)

	got, err = b.Characters().GetByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.AP)
	logs, err = b.Logs().Recent(ctx, char.ID, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
