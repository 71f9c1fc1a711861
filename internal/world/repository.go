// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package world

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// CharacterRepository manages character persistence.
type CharacterRepository interface {
	// Create persists a new character.
	// Callers must validate the character before calling this method.
	Create(ctx context.Context, char *Character) error

	// GetByAccount retrieves the character owned by an account.
	// Returns ErrNotFound if the account has no character.
	GetByAccount(ctx context.Context, accountID ulid.ULID) (*Character, error)

	// UpdatePosition moves a character.
	UpdatePosition(ctx context.Context, characterID ulid.ULID, pos Position) error

	// UpdateStats writes the provided pools. The repository clamps every
	// pool to its stored maximum and rejects negative values with ErrNegativeStat.
	UpdateStats(ctx context.Context, characterID ulid.ULID, update StatsUpdate) error
}

// ActionLog is the append-only history of character actions.
type ActionLog interface {
	// Append records one entry for the character.
	Append(ctx context.Context, entry *LogEntry) error

	// Recent returns up to limit entries, newest first.
	// A non-positive limit means DefaultLogLimit.
	Recent(ctx context.Context, characterID ulid.ULID, limit int) ([]*LogEntry, error)
}

// Transactor runs fn inside a storage transaction.
// Repository calls made with the ctx passed to fn join the transaction;
// if fn returns an error nothing it wrote is persisted.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
