// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gridquest/gridquest/internal/store"
	"github.com/gridquest/gridquest/internal/store/postgres"
	"github.com/gridquest/gridquest/internal/store/storetest"
)

// testStore is shared by the integration tests; each test truncates it.
var (
	testStore *postgres.Store
	testPool  *pgxpool.Pool
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("gridquest_test"),
		tcpostgres.WithUsername("gridquest"),
		tcpostgres.WithPassword("gridquest"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		panic("failed to start postgres container: " + err.Error())
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to get connection string: " + err.Error())
	}

	s, err := postgres.Open(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to open store: " + err.Error())
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		_ = container.Terminate(ctx)
		panic("failed to run migrations: " + err.Error())
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = s.Close()
		_ = container.Terminate(ctx)
		panic("failed to create pool: " + err.Error())
	}
	testStore, testPool = s, pool

	code := m.Run()

	pool.Close()
	_ = s.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func emptyStore(t *testing.T) store.Backend {
	t.Helper()
	_, err := testPool.Exec(context.Background(),
		`TRUNCATE accounts, characters, action_logs, sessions`)
	require.NoError(t, err)
	return testStore
}

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, emptyStore)
}

func TestStore_Migrator(t *testing.T) {
	m, err := testStore.Migrator()
	require.NoError(t, err)
	defer m.Close()

	version, dirty, err := m.Version()
	require.NoError(t, err)
	require.Equal(t, uint(2), version)
	require.False(t, dirty)
}
