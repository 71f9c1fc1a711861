// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package bolt

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.etcd.io/bbolt"

	"github.com/gridquest/gridquest/internal/world"
)

// CharacterRepository implements world.CharacterRepository using bbolt.
type CharacterRepository struct {
	s *Store
}

// Create persists a new character. An account owns at most one character.
// Callers must validate the character before calling this method.
func (r *CharacterRepository) Create(ctx context.Context, c *world.Character) error {
	err := r.s.update(ctx, func(tx *bbolt.Tx) error {
		chars, err := bucket(tx, bucketCharacters)
		if err != nil {
			return err
		}
		owners, err := bucket(tx, bucketCharacterAccounts)
		if err != nil {
			return err
		}
		if owners.Get(c.AccountID.Bytes()) != nil {
			return oops.With("account_id", c.AccountID.String()).Errorf("account already has a character")
		}
		if chars.Get(c.ID.Bytes()) != nil {
			return oops.Errorf("character id already exists")
		}
		if err := putJSON(chars, c.ID.Bytes(), newCharacterRecord(c)); err != nil {
			return err
		}
		return owners.Put(c.AccountID.Bytes(), c.ID.Bytes())
	})
	if err != nil {
		return oops.Code("CHARACTER_CREATE_FAILED").With("id", c.ID.String()).Wrap(err)
	}
	return nil
}

// GetByAccount retrieves the character owned by an account.
func (r *CharacterRepository) GetByAccount(ctx context.Context, accountID ulid.ULID) (*world.Character, error) {
	var rec characterRecord
	var found bool
	err := r.s.view(ctx, func(tx *bbolt.Tx) error {
		owners, err := bucket(tx, bucketCharacterAccounts)
		if err != nil {
			return err
		}
		id := owners.Get(accountID.Bytes())
		if id == nil {
			return nil
		}
		chars, err := bucket(tx, bucketCharacters)
		if err != nil {
			return err
		}
		found, err = getJSON(chars, id, &rec)
		return err
	})
	if err != nil {
		return nil, oops.Code("CHARACTER_GET_FAILED").With("account_id", accountID.String()).Wrap(err)
	}
	if !found {
		return nil, oops.Code("CHARACTER_NOT_FOUND").With("account_id", accountID.String()).Wrap(world.ErrNotFound)
	}
	return rec.domain(), nil
}

// UpdatePosition moves a character.
func (r *CharacterRepository) UpdatePosition(ctx context.Context, characterID ulid.ULID, pos world.Position) error {
	if err := pos.Validate(); err != nil {
		return oops.Code("CHARACTER_INVALID_POSITION").With("character_id", characterID.String()).Wrap(err)
	}
	return r.modify(ctx, characterID, "CHARACTER_MOVE_FAILED", func(c *world.Character) {
		c.X, c.Y, c.InsideBuilding = pos.X, pos.Y, pos.InsideBuilding
	})
}

// UpdateStats writes the provided pools, clamping each to its stored maximum.
func (r *CharacterRepository) UpdateStats(ctx context.Context, characterID ulid.ULID, update world.StatsUpdate) error {
	if err := update.Validate(); err != nil {
		return oops.Code("STAT_NEGATIVE").With("character_id", characterID.String()).Wrap(err)
	}
	if update.IsEmpty() {
		return nil
	}
	return r.modify(ctx, characterID, "CHARACTER_STATS_UPDATE_FAILED", update.ApplyTo)
}

// modify reads, mutates and rewrites one character record.
func (r *CharacterRepository) modify(ctx context.Context, characterID ulid.ULID, code string, fn func(*world.Character)) error {
	var found bool
	err := r.s.update(ctx, func(tx *bbolt.Tx) error {
		chars, err := bucket(tx, bucketCharacters)
		if err != nil {
			return err
		}
		var rec characterRecord
		if found, err = getJSON(chars, characterID.Bytes(), &rec); err != nil || !found {
			return err
		}
		c := rec.domain()
		fn(c)
		return putJSON(chars, characterID.Bytes(), newCharacterRecord(c))
	})
	if err != nil {
		return oops.Code(code).With("character_id", characterID.String()).Wrap(err)
	}
	if !found {
		return oops.Code("CHARACTER_NOT_FOUND").With("character_id", characterID.String()).Wrap(world.ErrNotFound)
	}
	return nil
}
