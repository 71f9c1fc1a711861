// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gridquest/gridquest/internal/world"
)

// CharacterRepository implements world.CharacterRepository using PostgreSQL.
type CharacterRepository struct {
	s *Store
}

const characterColumns = `id, account_id, name, x, y, inside_building,
	health, max_health, mp, max_mp, ap, max_ap, experience, created_at`

// Create persists a new character.
// Callers must validate the character before calling this method.
func (r *CharacterRepository) Create(ctx context.Context, c *world.Character) error {
	_, err := r.s.conn(ctx).Exec(ctx, `
		INSERT INTO characters (`+characterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, c.ID.String(), c.AccountID.String(), c.Name, c.X, c.Y, c.InsideBuilding,
		c.Health, c.MaxHealth, c.MP, c.MaxMP, c.AP, c.MaxAP, c.Experience, c.CreatedAt)
	if err != nil {
		return oops.Code("CHARACTER_CREATE_FAILED").
			With("id", c.ID.String()).
			With("constraint", isUniqueViolation(err)).
			Wrap(err)
	}
	return nil
}

// GetByAccount retrieves the character owned by an account.
func (r *CharacterRepository) GetByAccount(ctx context.Context, accountID ulid.ULID) (*world.Character, error) {
	row := r.s.conn(ctx).QueryRow(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE account_id = $1`, accountID.String())
	c, err := scanCharacter(row)
	if errors.Is(err, pgx.ErrNoRows) {
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
	tag, err := r.s.conn(ctx).Exec(ctx,
		`UPDATE characters SET x = $2, y = $3, inside_building = $4 WHERE id = $1`,
		characterID.String(), pos.X, pos.Y, pos.InsideBuilding)
	if err != nil {
		return oops.Code("CHARACTER_MOVE_FAILED").With("character_id", characterID.String()).Wrap(err)
	}
	return requireRow(tag, characterID)
}

// UpdateStats writes the provided pools, clamping each to its stored maximum.
func (r *CharacterRepository) UpdateStats(ctx context.Context, characterID ulid.ULID, update world.StatsUpdate) error {
	if err := update.Validate(); err != nil {
		return oops.Code("STAT_NEGATIVE").With("character_id", characterID.String()).Wrap(err)
	}
	if update.IsEmpty() {
		return nil
	}
	tag, err := r.s.conn(ctx).Exec(ctx, `
		UPDATE characters SET
			health     = LEAST(COALESCE($2::integer, health), max_health),
			mp         = LEAST(COALESCE($3::integer, mp), max_mp),
			ap         = LEAST(COALESCE($4::integer, ap), max_ap),
			experience = COALESCE($5::integer, experience)
		WHERE id = $1
	`, characterID.String(), update.Health, update.MP, update.AP, update.Experience)
	if err != nil {
		return oops.Code("CHARACTER_STATS_UPDATE_FAILED").With("character_id", characterID.String()).Wrap(err)
	}
	return requireRow(tag, characterID)
}

func requireRow(tag pgconn.CommandTag, characterID ulid.ULID) error {
	if tag.RowsAffected() == 0 {
		return oops.Code("CHARACTER_NOT_FOUND").With("character_id", characterID.String()).Wrap(world.ErrNotFound)
	}
	return nil
}

func scanCharacter(row pgx.Row) (*world.Character, error) {
	var (
		c                 world.Character
		idStr, accountStr string
	)
	err := row.Scan(&idStr, &accountStr, &c.Name, &c.X, &c.Y, &c.InsideBuilding,
		&c.Health, &c.MaxHealth, &c.MP, &c.MaxMP, &c.AP, &c.MaxAP, &c.Experience, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if c.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("CHARACTER_SCAN_FAILED").With("id", idStr).Wrap(err)
	}
	if c.AccountID, err = ulid.Parse(accountStr); err != nil {
		return nil, oops.Code("CHARACTER_SCAN_FAILED").With("account_id", accountStr).Wrap(err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}
