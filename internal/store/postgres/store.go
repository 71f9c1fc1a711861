// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

// Package postgres implements the storage backend over PostgreSQL using pgx.
package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/gridquest/gridquest/internal/auth"
	"github.com/gridquest/gridquest/internal/store"
	"github.com/gridquest/gridquest/internal/store/postgres/migrations"
	"github.com/gridquest/gridquest/internal/world"
)

// Connection retry defaults used by Open.
const (
	DefaultConnectRetries = 5
	DefaultConnectBackoff = 250 * time.Millisecond
)

// poolIface is the subset of *pgxpool.Pool the store uses.
// pgxmock.PgxPoolIface satisfies it in unit tests.
type poolIface interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// querier is satisfied by both the pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements store.Backend over PostgreSQL.
type Store struct {
	pool poolIface
	dsn  string
}

var _ store.Backend = (*Store)(nil)

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	retries uint64
	backoff time.Duration
}

// WithConnectRetry sets how many times Open retries the initial ping and the
// base delay of its exponential backoff.
func WithConnectRetry(retries uint64, backoff time.Duration) Option {
	return func(c *openConfig) {
		c.retries = retries
		c.backoff = backoff
	}
}

// Open connects to PostgreSQL, retrying the initial ping with exponential
// backoff so the server can start alongside the database.
// Call Migrate before using the repositories.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, oops.Code("STORE_CONFIG_INVALID").Errorf("postgres DSN is required")
	}
	cfg := openConfig{retries: DefaultConnectRetries, backoff: DefaultConnectBackoff}
	for _, opt := range opts {
		opt(&cfg)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("STORE_OPEN_FAILED").Wrap(err)
	}

	backoff := retry.WithMaxRetries(cfg.retries, retry.NewExponential(cfg.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("STORE_OPEN_FAILED").With("retries", cfg.retries).Wrap(err)
	}

	return &Store{pool: pool, dsn: dsn}, nil
}

// New wraps an existing pool. dsn is only needed for migrations.
func New(pool poolIface, dsn string) *Store {
	return &Store{pool: pool, dsn: dsn}
}

// Name returns the driver name.
func (s *Store) Name() string { return store.DriverPostgres }

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(_ context.Context) error {
	m, err := s.Migrator()
	if err != nil {
		return err
	}
	upErr := m.Up()
	closeErr := m.Close()
	if upErr != nil {
		return upErr
	}
	return closeErr
}

// Migrator returns a migrator for this database. Callers must Close it.
func (s *Store) Migrator() (*store.Migrator, error) {
	return store.NewMigrator(migrations.FS, ".", s.dsn)
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return oops.Code("STORE_PING_FAILED").Wrap(err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Accounts returns the account repository.
func (s *Store) Accounts() auth.AccountRepository { return &AccountRepository{s: s} }

// Sessions returns the session repository.
func (s *Store) Sessions() auth.SessionRepository { return &SessionRepository{s: s} }

// Characters returns the character repository.
func (s *Store) Characters() world.CharacterRepository { return &CharacterRepository{s: s} }

// Logs returns the action log.
func (s *Store) Logs() world.ActionLog { return &ActionLogRepository{s: s} }

type txKey struct{}

// conn returns the transaction carried by ctx, or the pool.
func (s *Store) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

// InTransaction begins a transaction, stores it in context, and calls fn.
// If fn returns nil, the transaction is committed. Otherwise it is rolled back.
// Calls nested inside an open transaction join it.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}
