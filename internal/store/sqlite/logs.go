// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package sqlite

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gridquest/gridquest/internal/world"
)

// ActionLogRepository implements world.ActionLog using SQLite.
type ActionLogRepository struct {
	s *Store
}

// Append records one entry.
func (r *ActionLogRepository) Append(ctx context.Context, e *world.LogEntry) error {
	_, err := r.s.conn(ctx).ExecContext(ctx, `
		INSERT INTO action_logs (id, character_id, action_type, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID.String(), e.CharacterID.String(), e.ActionType, e.Message, toMillis(e.CreatedAt))
	if err != nil {
		return oops.Code("ACTION_LOG_APPEND_FAILED").With("character_id", e.CharacterID.String()).Wrap(err)
	}
	return nil
}

// Recent returns up to limit entries for the character, newest first.
func (r *ActionLogRepository) Recent(ctx context.Context, characterID ulid.ULID, limit int) ([]*world.LogEntry, error) {
	rows, err := r.s.conn(ctx).QueryContext(ctx, `
		SELECT id, action_type, message, created_at
		FROM action_logs
		WHERE character_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, characterID.String(), world.NormalizeLogLimit(limit))
	if err != nil {
		return nil, oops.Code("ACTION_LOG_QUERY_FAILED").With("character_id", characterID.String()).Wrap(err)
	}
	defer rows.Close()

	entries := make([]*world.LogEntry, 0)
	for rows.Next() {
		var (
			idStr     string
			createdAt int64
		)
		e := &world.LogEntry{CharacterID: characterID}
		if err := rows.Scan(&idStr, &e.ActionType, &e.Message, &createdAt); err != nil {
			return nil, oops.Code("ACTION_LOG_SCAN_FAILED").With("character_id", characterID.String()).Wrap(err)
		}
		if e.ID, err = ulid.Parse(idStr); err != nil {
			return nil, oops.Code("ACTION_LOG_SCAN_FAILED").With("id", idStr).Wrap(err)
		}
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACTION_LOG_QUERY_FAILED").With("character_id", characterID.String()).Wrap(err)
	}
	return entries, nil
}
