// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gridquest/gridquest/internal/world"
	"github.com/gridquest/gridquest/pkg/errutil"
)

// Store is the storage the auth service needs. Signup writes to several
// repositories inside one transaction.
type Store interface {
	world.Transactor
	Accounts() AccountRepository
	Sessions() SessionRepository
	Characters() world.CharacterRepository
	Logs() world.ActionLog
}

// SignupRequest holds the fields submitted when creating an account.
type SignupRequest struct {
	Username      string
	Password      string
	CharacterName string
}

// Service provides authentication operations.
type Service struct {
	store  Store
	hasher PasswordHasher
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSessionTTL sets how long issued sessions stay valid.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new Service.
func NewService(store Store, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("password hasher is required")
	}
	s := &Service{
		store:  store,
		hasher: hasher,
		ttl:    DefaultSessionTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// dummyPasswordHash is verified when a user doesn't exist so that response
// time does not reveal whether a username is registered. It never matches.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Signup creates an account, its character with default stats, and the
// SIGNUP log entry, then logs the new account in.
// Returns the session and its plaintext token.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Session, string, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.CharacterName = strings.TrimSpace(req.CharacterName)
	if req.Username == "" || req.Password == "" || req.CharacterName == "" {
		return nil, "", oops.Code("AUTH_MISSING_FIELDS").Wrap(ErrMissingFields)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, "", oops.Code("AUTH_SIGNUP_FAILED").With("operation", "hash password").Wrap(err)
	}
	account, err := NewAccount(req.Username, hash)
	if err != nil {
		return nil, "", err
	}
	char, err := world.NewCharacter(account.ID, req.CharacterName)
	if err != nil {
		return nil, "", oops.Code("AUTH_INVALID_CHARACTER").With("character_name", req.CharacterName).Wrap(err)
	}
	entry := world.NewLogEntry(char.ID, world.ActionTypeSignup, "Created character "+char.Name)

	err = s.store.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Accounts().Create(ctx, account); err != nil {
			return err
		}
		if err := s.store.Characters().Create(ctx, char); err != nil {
			return err
		}
		return s.store.Logs().Append(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, "", oops.Code("AUTH_USERNAME_TAKEN").With("username", req.Username).Wrap(err)
		}
		return nil, "", oops.Code("AUTH_SIGNUP_FAILED").With("username", req.Username).Wrap(err)
	}

	s.logger.InfoContext(ctx, "account created",
		"account_id", account.ID.String(),
		"character_id", char.ID.String())

	return s.issue(ctx, account.ID)
}

// Login verifies credentials and creates a session.
// Returns the session and its plaintext token.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, "", oops.Code("AUTH_MISSING_FIELDS").Wrap(ErrMissingFields)
	}

	account, lookupErr := s.store.Accounts().GetByUsername(ctx, username)
	targetHash := dummyPasswordHash
	switch {
	case lookupErr == nil:
		targetHash = account.PasswordHash
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").With("operation", "get account by username").Wrap(lookupErr)
	}

	// Always verify so that unknown usernames take as long as wrong passwords.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if account == nil || verifyErr != nil || !valid {
		if account != nil && verifyErr != nil {
			errutil.LogError(s.logger, "stored password hash is unreadable", verifyErr,
				"account_id", account.ID.String())
		}
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	return s.issue(ctx, account.ID)
}

func (s *Service) issue(ctx context.Context, accountID ulid.ULID) (*Session, string, error) {
	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").With("operation", "generate session token").Wrap(err)
	}
	session, err := NewSession(accountID, tokenHash, s.now().Add(s.ttl))
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").With("operation", "create session").Wrap(err)
	}
	if err := s.store.Sessions().Create(ctx, session); err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").With("account_id", accountID.String()).Wrap(err)
	}
	return session, token, nil
}

// Authenticate resolves a plaintext token to its live session.
// Unknown, revoked and expired tokens all return ErrSessionInvalid.
func (s *Service) Authenticate(ctx context.Context, token string) (*Session, error) {
	if len(token) != SessionTokenBytes*2 {
		return nil, oops.Code("SESSION_INVALID").Wrap(ErrSessionInvalid)
	}

	session, err := s.store.Sessions().GetByTokenHash(ctx, HashSessionToken(token))
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code("SESSION_INVALID").Wrap(ErrSessionInvalid)
	}
	if err != nil {
		return nil, oops.Code("SESSION_VALIDATE_FAILED").With("operation", "get session by token hash").Wrap(err)
	}
	if session.IsExpiredAt(s.now()) {
		return nil, oops.Code("SESSION_EXPIRED").With("session_id", session.ID.String()).Wrap(ErrSessionInvalid)
	}
	return session, nil
}

// Logout revokes a session. Revoking an unknown session is not an error.
func (s *Service) Logout(ctx context.Context, sessionID ulid.ULID) error {
	err := s.store.Sessions().Delete(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return oops.Code("AUTH_LOGOUT_FAILED").With("session_id", sessionID.String()).Wrap(err)
	}
	return nil
}

// PurgeExpired deletes expired sessions and returns how many were removed.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.Sessions().DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}

// RunJanitor purges expired sessions every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.PurgeExpired(ctx)
			if err != nil {
				errutil.LogError(s.logger, "session purge failed", err)
				continue
			}
			if n > 0 {
				s.logger.DebugContext(ctx, "purged expired sessions", "count", n)
			}
		}
	}
}
