// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

// Package bolt implements the storage backend over a bbolt key/value file.
//
// Records are JSON documents keyed by ULID. Secondary lookups (username,
// token hash, owning account) are separate index buckets kept in step inside
// the same write transaction. Each character's action log is a nested bucket
// keyed by the 16-byte entry ULID, so a reverse cursor yields newest first.
package bolt

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.etcd.io/bbolt"

	"github.com/gridquest/gridquest/internal/auth"
	"github.com/gridquest/gridquest/internal/store"
	"github.com/gridquest/gridquest/internal/world"
)

// Bucket names.
var (
	bucketMeta              = []byte("meta")
	bucketAccounts          = []byte("accounts")
	bucketAccountUsernames  = []byte("account_usernames")
	bucketCharacters        = []byte("characters")
	bucketCharacterAccounts = []byte("character_accounts")
	bucketSessions          = []byte("sessions")
	bucketSessionTokens     = []byte("session_tokens")
	bucketLogs              = []byte("logs")

	allBuckets = [][]byte{
		bucketMeta, bucketAccounts, bucketAccountUsernames, bucketCharacters,
		bucketCharacterAccounts, bucketSessions, bucketSessionTokens, bucketLogs,
	}

	keySchemaVersion = []byte("schema_version")
)

// SchemaVersion is the bucket layout version written by Migrate.
const SchemaVersion = "1"

// Store implements store.Backend over bbolt.
type Store struct {
	db *bbolt.DB
}

var _ store.Backend = (*Store)(nil)

// Open opens (creating if needed) the bbolt file at path.
// Call Migrate before using the repositories.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, oops.Code("STORE_CONFIG_INVALID").Errorf("bolt path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, oops.Code("STORE_OPEN_FAILED").With("path", cleanPath).Wrap(err)
	}
	return &Store{db: db}, nil
}

// Name returns the driver name.
func (s *Store) Name() string { return store.DriverBolt }

// Migrate creates any missing buckets and records the layout version.
func (s *Store) Migrate(_ context.Context) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return oops.With("bucket", string(name)).Wrap(err)
			}
		}
		return tx.Bucket(bucketMeta).Put(keySchemaVersion, []byte(SchemaVersion))
	})
	if err != nil {
		return oops.Code("MIGRATION_UP_FAILED").Wrap(err)
	}
	return nil
}

// Version returns the recorded layout version, or "" before Migrate.
func (s *Store) Version() (string, error) {
	var version string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketMeta); b != nil {
			version = string(b.Get(keySchemaVersion))
		}
		return nil
	})
	if err != nil {
		return "", oops.Code("MIGRATION_VERSION_FAILED").Wrap(err)
	}
	return version, nil
}

// Ping reports whether the database is usable.
func (s *Store) Ping(_ context.Context) error {
	err := s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketMeta) == nil {
			return oops.Errorf("schema is not initialized")
		}
		return nil
	})
	if err != nil {
		return oops.Code("STORE_PING_FAILED").Wrap(err)
	}
	return nil
}

// Close releases the database file.
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

// InTransaction runs fn inside one read-write bbolt transaction.
// If fn returns an error nothing it wrote is persisted.
// Calls nested inside an open transaction join it.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*bbolt.Tx); ok {
		return fn(ctx)
	}
	//nolint:wrapcheck // fn errors pass through unchanged
	return s.db.Update(func(tx *bbolt.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// update runs fn in the transaction carried by ctx, or in a new one.
func (s *Store) update(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("STORE_CONTEXT_DONE").Wrap(err)
	}
	if tx, ok := ctx.Value(txKey{}).(*bbolt.Tx); ok {
		return fn(tx)
	}
	return s.db.Update(fn) //nolint:wrapcheck // callers code their own errors
}

// view runs fn in the transaction carried by ctx, or in a read-only one.
func (s *Store) view(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("STORE_CONTEXT_DONE").Wrap(err)
	}
	if tx, ok := ctx.Value(txKey{}).(*bbolt.Tx); ok {
		return fn(tx)
	}
	return s.db.View(fn) //nolint:wrapcheck // callers code their own errors
}

func bucket(tx *bbolt.Tx, name []byte) (*bbolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, oops.Code("STORE_SCHEMA_MISSING").With("bucket", string(name)).Errorf("bucket is missing; run migrate")
	}
	return b, nil
}

func putJSON(b *bbolt.Bucket, key []byte, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return oops.Wrap(err)
	}
	return b.Put(key, payload) //nolint:wrapcheck // callers code their own errors
}

func getJSON(b *bbolt.Bucket, key []byte, v any) (bool, error) {
	payload := b.Get(key)
	if payload == nil {
		return false, nil
	}
	return true, decodeJSON(payload, v)
}

func decodeJSON(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return oops.Wrap(err)
	}
	return nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
