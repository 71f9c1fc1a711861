// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridquest/gridquest/internal/store"
	"github.com/gridquest/gridquest/internal/store/sqlite"
	"github.com/gridquest/gridquest/internal/store/storetest"
	"github.com/gridquest/gridquest/pkg/errutil"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	ctx := context.Background()
	s, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "gridquest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend { return newStore(t) })
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := sqlite.Open(context.Background(), "  ")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "STORE_CONFIG_INVALID")
}

func TestStore_Migrator(t *testing.T) {
	s := newStore(t)
	assert.Equal(t, "sqlite", s.Name())

	m, err := s.Migrator()
	require.NoError(t, err)
	defer m.Close()

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	pending, err := m.PendingMigrations()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestStore_DataSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "gridquest.db")

	s, err := sqlite.Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	account, _ := storetest.Seed(t, s, "henry")
	require.NoError(t, s.Close())

	s, err = sqlite.Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Characters().GetByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hero henry", got.Name)
}
