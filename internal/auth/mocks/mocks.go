// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

// Package mocks provides testify mocks for the auth interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/gridquest/gridquest/internal/auth"
	"github.com/gridquest/gridquest/internal/world"
)

// MockAccountRepository is a mock of auth.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

// NewMockAccountRepository creates a mock whose expectations are asserted on cleanup.
func NewMockAccountRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountRepository) Create(ctx context.Context, a *auth.Account) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	ret := m.Called(ctx, id)
	a, _ := ret.Get(0).(*auth.Account)
	return a, ret.Error(1)
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*auth.Account, error) {
	ret := m.Called(ctx, username)
	a, _ := ret.Get(0).(*auth.Account)
	return a, ret.Error(1)
}

// MockSessionRepository is a mock of auth.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// NewMockSessionRepository creates a mock whose expectations are asserted on cleanup.
func NewMockSessionRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSessionRepository {
	m := &MockSessionRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionRepository) Create(ctx context.Context, s *auth.Session) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	ret := m.Called(ctx, tokenHash)
	s, _ := ret.Get(0).(*auth.Session)
	return s, ret.Error(1)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := m.Called(ctx, now)
	n, _ := ret.Get(0).(int64)
	return n, ret.Error(1)
}

// MockPasswordHasher is a mock of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock whose expectations are asserted on cleanup.
func NewMockPasswordHasher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := m.Called(password)
	return ret.String(0), ret.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	ret := m.Called(password, hash)
	return ret.Bool(0), ret.Error(1)
}

// MockStore is a mock of auth.Store. InTransaction returns its configured
// error without calling fn, or calls fn with ctx when the error is nil.
type MockStore struct {
	mock.Mock
}

// NewMockStore creates a mock whose expectations are asserted on cleanup.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	m := &MockStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockStore) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := m.Called(ctx, fn).Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

func (m *MockStore) Accounts() auth.AccountRepository {
	return m.Called().Get(0).(auth.AccountRepository)
}

func (m *MockStore) Sessions() auth.SessionRepository {
	return m.Called().Get(0).(auth.SessionRepository)
}

func (m *MockStore) Characters() world.CharacterRepository {
	return m.Called().Get(0).(world.CharacterRepository)
}

func (m *MockStore) Logs() world.ActionLog {
	return m.Called().Get(0).(world.ActionLog)
}

var (
	_ auth.AccountRepository = (*MockAccountRepository)(nil)
	_ auth.SessionRepository = (*MockSessionRepository)(nil)
	_ auth.PasswordHasher    = (*MockPasswordHasher)(nil)
	_ auth.Store             = (*MockStore)(nil)
)
