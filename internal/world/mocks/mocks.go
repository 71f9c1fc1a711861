// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

// Package mocks provides testify mocks for the world storage interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/gridquest/gridquest/internal/world"
)

// MockCharacterRepository is a mock of world.CharacterRepository.
type MockCharacterRepository struct {
	mock.Mock
}

// NewMockCharacterRepository creates a mock whose expectations are asserted on cleanup.
func NewMockCharacterRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCharacterRepository {
	m := &MockCharacterRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockCharacterRepository) Create(ctx context.Context, c *world.Character) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCharacterRepository) GetByAccount(ctx context.Context, accountID ulid.ULID) (*world.Character, error) {
	ret := m.Called(ctx, accountID)
	c, _ := ret.Get(0).(*world.Character)
	return c, ret.Error(1)
}

func (m *MockCharacterRepository) UpdatePosition(ctx context.Context, characterID ulid.ULID, pos world.Position) error {
	return m.Called(ctx, characterID, pos).Error(0)
}

func (m *MockCharacterRepository) UpdateStats(ctx context.Context, characterID ulid.ULID, update world.StatsUpdate) error {
	return m.Called(ctx, characterID, update).Error(0)
}

// MockActionLog is a mock of world.ActionLog.
type MockActionLog struct {
	mock.Mock
}

// NewMockActionLog creates a mock whose expectations are asserted on cleanup.
func NewMockActionLog(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockActionLog {
	m := &MockActionLog{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockActionLog) Append(ctx context.Context, e *world.LogEntry) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockActionLog) Recent(ctx context.Context, characterID ulid.ULID, limit int) ([]*world.LogEntry, error) {
	ret := m.Called(ctx, characterID, limit)
	entries, _ := ret.Get(0).([]*world.LogEntry)
	return entries, ret.Error(1)
}

var (
	_ world.CharacterRepository = (*MockCharacterRepository)(nil)
	_ world.ActionLog           = (*MockActionLog)(nil)
)
