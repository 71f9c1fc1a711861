// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package world

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultLogLimit is the number of entries returned by a recent-history query
// when the caller does not ask for a specific count.
const DefaultLogLimit = 10

// MaxLogLimit caps a single history query.
const MaxLogLimit = 100

// ActionTypeSignup tags the entry written when a character is created.
const ActionTypeSignup = "SIGNUP"

// LogEntry is one line of a character's append-only action history.
type LogEntry struct {
	ID          ulid.ULID `json:"id"`
	CharacterID ulid.ULID `json:"character_id"`
	ActionType  string    `json:"action_type"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewLogEntry stamps a new entry with a time-ordered ID.
// CreatedAt is truncated to milliseconds so every backend round-trips it exactly.
func NewLogEntry(characterID ulid.ULID, actionType, message string) *LogEntry {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &LogEntry{
		ID:          ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()),
		CharacterID: characterID,
		ActionType:  actionType,
		Message:     message,
		CreatedAt:   now,
	}
}

// NormalizeLogLimit maps a requested limit onto the supported range.
func NormalizeLogLimit(limit int) int {
	if limit <= 0 {
		return DefaultLogLimit
	}
	return min(limit, MaxLogLimit)
}
