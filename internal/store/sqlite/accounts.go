// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gridquest/gridquest/internal/auth"
)

// AccountRepository implements auth.AccountRepository using SQLite.
type AccountRepository struct {
	s *Store
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, a *auth.Account) error {
	_, err := r.s.conn(ctx).ExecContext(ctx, `
		INSERT INTO accounts (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, a.ID.String(), a.Username, a.PasswordHash, toMillis(a.CreatedAt))
	if isConstraintError(err) {
		return oops.Code("ACCOUNT_USERNAME_TAKEN").With("username", a.Username).Wrap(auth.ErrUsernameTaken)
	}
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").With("id", a.ID.String()).Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := r.s.conn(ctx).QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM accounts WHERE id = ?`, id.String())
	return scanAccount(row, "id", id.String())
}

// GetByUsername retrieves an account by its exact username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*auth.Account, error) {
	row := r.s.conn(ctx).QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM accounts WHERE username = ?`, username)
	return scanAccount(row, "username", username)
}

func scanAccount(row *sql.Row, key, value string) (*auth.Account, error) {
	var (
		a         auth.Account
		idStr     string
		createdAt int64
	)
	err := row.Scan(&idStr, &a.Username, &a.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With(key, value).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").With(key, value).Wrap(err)
	}
	if a.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").With("id", idStr).Wrap(err)
	}
	a.CreatedAt = fromMillis(createdAt)
	return &a, nil
}

// SessionRepository implements auth.SessionRepository using SQLite.
type SessionRepository struct {
	s *Store
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, sess *auth.Session) error {
	_, err := r.s.conn(ctx).ExecContext(ctx, `
		INSERT INTO sessions (id, account_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sess.ID.String(), sess.AccountID.String(), sess.TokenHash, toMillis(sess.ExpiresAt), toMillis(sess.CreatedAt))
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").With("account_id", sess.AccountID.String()).Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	var (
		sess                 auth.Session
		idStr, accountStr    string
		expiresAt, createdAt int64
	)
	err := r.s.conn(ctx).QueryRowContext(ctx, `
		SELECT id, account_id, token_hash, expires_at, created_at
		FROM sessions WHERE token_hash = ?
	`, tokenHash).Scan(&idStr, &accountStr, &sess.TokenHash, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").Wrap(err)
	}
	if sess.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("SESSION_SCAN_FAILED").With("id", idStr).Wrap(err)
	}
	if sess.AccountID, err = ulid.Parse(accountStr); err != nil {
		return nil, oops.Code("SESSION_SCAN_FAILED").With("account_id", accountStr).Wrap(err)
	}
	sess.ExpiresAt = fromMillis(expiresAt)
	sess.CreatedAt = fromMillis(createdAt)
	return &sess, nil
}

// Delete removes a session by ID.
func (r *SessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.s.conn(ctx).ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id.String())
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("session_id", id.String()).Wrap(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("session_id", id.String()).Wrap(err)
	}
	if n == 0 {
		return oops.Code("SESSION_NOT_FOUND").With("session_id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes sessions that expired at or before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.s.conn(ctx).ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").Wrap(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}
