// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

// Package sqlite implements the storage backend over an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/oops"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/gridquest/gridquest/internal/auth"
	"github.com/gridquest/gridquest/internal/store"
	"github.com/gridquest/gridquest/internal/store/sqlite/migrations"
	"github.com/gridquest/gridquest/internal/world"
)

const pragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores a stored timestamp in UTC.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements store.Backend over SQLite.
type Store struct {
	db   *sql.DB
	path string
}

var _ store.Backend = (*Store)(nil)

// Open opens (creating if needed) the SQLite database at path.
// Call Migrate before using the repositories.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, oops.Code("STORE_CONFIG_INVALID").Errorf("sqlite path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := sql.Open("sqlite", "file:"+cleanPath+"?"+pragmas)
	if err != nil {
		return nil, oops.Code("STORE_OPEN_FAILED").With("path", cleanPath).Wrap(err)
	}
	// A single connection serializes writers and keeps transactions simple.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // ping error takes precedence
		return nil, oops.Code("STORE_OPEN_FAILED").With("path", cleanPath).Wrap(err)
	}

	return &Store{db: db, path: cleanPath}, nil
}

// Name returns the driver name.
func (s *Store) Name() string { return store.DriverSQLite }

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
	return store.NewMigrator(migrations.FS, ".", "sqlite://"+s.path)
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return oops.Code("STORE_PING_FAILED").Wrap(err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return oops.Code("STORE_CLOSE_FAILED").Wrap(err)
	}
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

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction carried by ctx, or the database handle.
func (s *Store) conn(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

// InTransaction begins a transaction, stores it in context, and calls fn.
// If fn returns nil, the transaction is committed. Otherwise it is rolled back.
// Calls nested inside an open transaction join it.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return oops.Code("TX_BEGIN_FAILED").Wrap(err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return oops.Code("TX_COMMIT_FAILED").Wrap(err)
	}
	return nil
}
