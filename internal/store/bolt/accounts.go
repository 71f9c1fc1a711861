// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package bolt

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.etcd.io/bbolt"

	"github.com/gridquest/gridquest/internal/auth"
)

// AccountRepository implements auth.AccountRepository using bbolt.
type AccountRepository struct {
	s *Store
}

// Create stores a new account and claims its username.
func (r *AccountRepository) Create(ctx context.Context, a *auth.Account) error {
	err := r.s.update(ctx, func(tx *bbolt.Tx) error {
		accounts, err := bucket(tx, bucketAccounts)
		if err != nil {
			return err
		}
		usernames, err := bucket(tx, bucketAccountUsernames)
		if err != nil {
			return err
		}
		if usernames.Get([]byte(a.Username)) != nil {
			return oops.Code("ACCOUNT_USERNAME_TAKEN").With("username", a.Username).Wrap(auth.ErrUsernameTaken)
		}
		if err := putJSON(accounts, a.ID.Bytes(), newAccountRecord(a)); err != nil {
			return err
		}
		return usernames.Put([]byte(a.Username), a.ID.Bytes())
	})
	if err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			return err
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").With("id", a.ID.String()).Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	var rec accountRecord
	var found bool
	err := r.s.view(ctx, func(tx *bbolt.Tx) error {
		accounts, err := bucket(tx, bucketAccounts)
		if err != nil {
			return err
		}
		found, err = getJSON(accounts, id.Bytes(), &rec)
		return err
	})
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").With("id", id.String()).Wrap(err)
	}
	if !found {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	return rec.domain(), nil
}

// GetByUsername retrieves an account by its exact username.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*auth.Account, error) {
	var rec accountRecord
	var found bool
	err := r.s.view(ctx, func(tx *bbolt.Tx) error {
		usernames, err := bucket(tx, bucketAccountUsernames)
		if err != nil {
			return err
		}
		id := usernames.Get([]byte(username))
		if id == nil {
			return nil
		}
		accounts, err := bucket(tx, bucketAccounts)
		if err != nil {
			return err
		}
		found, err = getJSON(accounts, id, &rec)
		return err
	})
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").With("username", username).Wrap(err)
	}
	if !found {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("username", username).Wrap(auth.ErrNotFound)
	}
	return rec.domain(), nil
}

// SessionRepository implements auth.SessionRepository using bbolt.
type SessionRepository struct {
	s *Store
}

// Create stores a new session and indexes its token hash.
func (r *SessionRepository) Create(ctx context.Context, sess *auth.Session) error {
	err := r.s.update(ctx, func(tx *bbolt.Tx) error {
		sessions, err := bucket(tx, bucketSessions)
		if err != nil {
			return err
		}
		tokens, err := bucket(tx, bucketSessionTokens)
		if err != nil {
			return err
		}
		if tokens.Get([]byte(sess.TokenHash)) != nil {
			return oops.Errorf("token hash already exists")
		}
		if err := putJSON(sessions, sess.ID.Bytes(), newSessionRecord(sess)); err != nil {
			return err
		}
		return tokens.Put([]byte(sess.TokenHash), sess.ID.Bytes())
	})
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").With("account_id", sess.AccountID.String()).Wrap(err)
	}
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	var rec sessionRecord
	var found bool
	err := r.s.view(ctx, func(tx *bbolt.Tx) error {
		tokens, err := bucket(tx, bucketSessionTokens)
		if err != nil {
			return err
		}
		id := tokens.Get([]byte(tokenHash))
		if id == nil {
			return nil
		}
		sessions, err := bucket(tx, bucketSessions)
		if err != nil {
			return err
		}
		found, err = getJSON(sessions, id, &rec)
		return err
	})
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").Wrap(err)
	}
	if !found {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return rec.domain(), nil
}

// Delete removes a session by ID.
func (r *SessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	var found bool
	err := r.s.update(ctx, func(tx *bbolt.Tx) error {
		sessions, err := bucket(tx, bucketSessions)
		if err != nil {
			return err
		}
		var rec sessionRecord
		if found, err = getJSON(sessions, id.Bytes(), &rec); err != nil || !found {
			return err
		}
		return deleteSession(tx, sessions, rec)
	})
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("session_id", id.String()).Wrap(err)
	}
	if !found {
		return oops.Code("SESSION_NOT_FOUND").With("session_id", id.String()).Wrap(auth.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes sessions that expired at or before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	cutoff := toMillis(now)
	err := r.s.update(ctx, func(tx *bbolt.Tx) error {
		sessions, err := bucket(tx, bucketSessions)
		if err != nil {
			return err
		}
		var expired []sessionRecord
		err = sessions.ForEach(func(_, payload []byte) error {
			var rec sessionRecord
			if err := decodeJSON(payload, &rec); err != nil {
				return err
			}
			if rec.ExpiresAt <= cutoff {
				expired = append(expired, rec)
			}
			return nil
		})
		if err != nil {
			return err
		}
		// Deleting while iterating a bucket skips keys, so collect first.
		for _, rec := range expired {
			if err := deleteSession(tx, sessions, rec); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}

func deleteSession(tx *bbolt.Tx, sessions *bbolt.Bucket, rec sessionRecord) error {
	tokens, err := bucket(tx, bucketSessionTokens)
	if err != nil {
		return err
	}
	if err := tokens.Delete([]byte(rec.TokenHash)); err != nil {
		return oops.Wrap(err)
	}
	return sessions.Delete(rec.ID.Bytes()) //nolint:wrapcheck // wrapped by caller
}
