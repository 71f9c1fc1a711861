// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gridquest/gridquest/internal/world"
)

// CharacterRepository implements world.CharacterRepository using SQLite.
type CharacterRepository struct {
	s *Store
}

const characterColumns = `id, account_id, name, x, y, inside_building,
	health, max_health, mp, max_mp, ap, max_ap, experience, created_at`

// Create persists a new character.
// Callers must validate the character before calling this method.
func (r *CharacterRepository) Create(ctx context.Context, c *world.Character) error {
	_, err := r.s.conn(ctx).ExecContext(ctx, `
		INSERT INTO characters (`+characterColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID.String(), c.AccountID.String(), c.Name, c.X, c.Y, c.InsideBuilding,
		c.Health, c.MaxHealth, c.MP, c.MaxMP, c.AP, c.MaxAP, c.Experience, toMillis(c.CreatedAt))
	if err != nil {
		return oops.Code("CHARACTER_CREATE_FAILED").
			With("id", c.ID.String()).
			With("constraint", isConstraintError(err)).
			Wrap(err)
	}
	return nil
}

// GetByAccount retrieves the character owned by an account.
func (r *CharacterRepository) GetByAccount(ctx context.Context, accountID ulid.ULID) (*world.Character, error) {
	row := r.s.conn(ctx).QueryRowContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE account_id = ?`, accountID.String())
	c, err := scanCharacter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("CHARACTER_NOT_FOUND").With("account_id", accountID.String()).Wrap(world.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CHARACTER_GET_FAILED").With("account_id", accountID.String()).Wrap(err)
	}
	return c, nil
}

// UpdatePosition moves a character.
func (r *CharacterRepository) UpdatePosition(ctx context.Context, characterID ulid.ULID, pos world.Position) error {
	if err := pos.Validate(); err != nil {
		return oops.Code("CHARACTER_INVALID_POSITION").With("character_id", characterID.String()).Wrap(err)
	}
	result, err := r.s.conn(ctx).ExecContext(ctx,
		`UPDATE characters SET x = ?, y = ?, inside_building = ? WHERE id = ?`,
		pos.X, pos.Y, pos.InsideBuilding, characterID.String())
	if err != nil {
		return oops.Code("CHARACTER_MOVE_FAILED").With("character_id", characterID.String()).Wrap(err)
	}
	return requireRow(result, characterID)
}

// UpdateStats writes the provided pools, clamping each to its stored maximum.
func (r *CharacterRepository) UpdateStats(ctx context.Context, characterID ulid.ULID, update world.StatsUpdate) error {
	if err := update.Validate(); err != nil {
		return oops.Code("STAT_NEGATIVE").With("character_id", characterID.String()).Wrap(err)
	}
	if update.IsEmpty() {
		return nil
	}
	result, err := r.s.conn(ctx).ExecContext(ctx, `
		UPDATE characters SET
			health     = MIN(COALESCE(?, health), max_health),
			mp         = MIN(COALESCE(?, mp), max_mp),
			ap         = MIN(COALESCE(?, ap), max_ap),
			experience = COALESCE(?, experience)
		WHERE id = ?
	`, update.Health, update.MP, update.AP, update.Experience, characterID.String())
	if err != nil {
		return oops.Code("CHARACTER_STATS_UPDATE_FAILED").With("character_id", characterID.String()).Wrap(err)
	}
	return requireRow(result, characterID)
}

func requireRow(result sql.Result, characterID ulid.ULID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return oops.Code("CHARACTER_UPDATE_FAILED").With("character_id", characterID.String()).Wrap(err)
	}
	if n == 0 {
		return oops.Code("CHARACTER_NOT_FOUND").With("character_id", characterID.String()).Wrap(world.ErrNotFound)
	}
	return nil
}

func scanCharacter(row *sql.Row) (*world.Character, error) {
	var (
		c                 world.Character
		idStr, accountStr string
		createdAt         int64
	)
	err := row.Scan(&idStr, &accountStr, &c.Name, &c.X, &c.Y, &c.InsideBuilding,
		&c.Health, &c.MaxHealth, &c.MP, &c.MaxMP, &c.AP, &c.MaxAP, &c.Experience, &createdAt)
	if err != nil {
		return nil, err
	}
	if c.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("CHARACTER_SCAN_FAILED").With("id", idStr).Wrap(err)
	}
	if c.AccountID, err = ulid.Parse(accountStr); err != nil {
		return nil, oops.Code("CHARACTER_SCAN_FAILED").With("account_id", accountStr).Wrap(err)
	}
	c.CreatedAt = fromMillis(createdAt)
	return &c, nil
}
