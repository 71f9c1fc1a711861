// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package postgres

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gridquest/gridquest/internal/world"
)

// ActionLogRepository implements world.ActionLog using PostgreSQL.
type ActionLogRepository struct {
	s *Store
}

// Append records one entry.
func (r *ActionLogRepository) Append(ctx context.Context, e *world.LogEntry) error {
	_, err := r.s.conn(ctx).Exec(ctx, `
		INSERT INTO action_logs (id, character_id, action_type, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, e.ID.String(), e.CharacterID.String(), e.ActionType, e.Message, e.CreatedAt)
	if err != nil {
		return oops.Code("ACTION_LOG_APPEND_FAILED").With("character_id", e.CharacterID.String()).Wrap(err)
	}
	return nil
}

// Recent returns up to limit entries for the character, newest first.
func (r *ActionLogRepository) Recent(ctx context.Context, characterID ulid.ULID, limit int) ([]*world.LogEntry, error) {
	rows, err := r.s.conn(ctx).Query(ctx, `
		SELECT id, action_type, message, created_at
		FROM action_logs
		WHERE character_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, characterID.String(), world.NormalizeLogLimit(limit))
	if err != nil {
		return nil, oops.Code("ACTION_LOG_QUERY_FAILED").With("character_id", characterID.String()).Wrap(err)
	}
	defer rows.Close()

	entries := make([]*world.LogEntry, 0)
	for rows.Next() {
		var idStr string
		e := &world.LogEntry{CharacterID: characterID}
		if err := rows.Scan(&idStr, &e.ActionType, &e.Message, &e.CreatedAt); err != nil {
			return nil, oops.Code("ACTION_LOG_SCAN_FAILED").With("character_id", characterID.String()).Wrap(err)
		}
		if e.ID, err = ulid.Parse(idStr); err != nil {
			return nil, oops.Code("ACTION_LOG_SCAN_FAILED").With("id", idStr).Wrap(err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACTION_LOG_QUERY_FAILED").With("character_id", characterID.String()).Wrap(err)
	}
	return entries, nil
}
