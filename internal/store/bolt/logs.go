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

// ActionLogRepository implements world.ActionLog using bbolt.
type ActionLogRepository struct {
	s *Store
}

// Append records one entry under the character's log bucket.
func (r *ActionLogRepository) Append(ctx context.Context, e *world.LogEntry) error {
	err := r.s.update(ctx, func(tx *bbolt.Tx) error {
		logs, err := bucket(tx, bucketLogs)
		if err != nil {
			return err
		}
		perChar, err := logs.CreateBucketIfNotExists(e.CharacterID.Bytes())
		if err != nil {
			return oops.Wrap(err)
		}
		return putJSON(perChar, e.ID.Bytes(), logRecord{
			ActionType: e.ActionType,
			Message:    e.Message,
			CreatedAt:  toMillis(e.CreatedAt),
		})
	})
	if err != nil {
		return oops.Code("ACTION_LOG_APPEND_FAILED").With("character_id", e.CharacterID.String()).Wrap(err)
	}
	return nil
}

// Recent returns up to limit entries for the character, newest first.
// Entry keys are ULIDs, so key order is creation order.
func (r *ActionLogRepository) Recent(ctx context.Context, characterID ulid.ULID, limit int) ([]*world.LogEntry, error) {
	limit = world.NormalizeLogLimit(limit)
	entries := make([]*world.LogEntry, 0)
	err := r.s.view(ctx, func(tx *bbolt.Tx) error {
		logs, err := bucket(tx, bucketLogs)
		if err != nil {
			return err
		}
		perChar := logs.Bucket(characterID.Bytes())
		if perChar == nil {
			return nil
		}
		c := perChar.Cursor()
		for k, v := c.Last(); k != nil && len(entries) < limit; k, v = c.Prev() {
			var rec logRecord
			if err := decodeJSON(v, &rec); err != nil {
				return err
			}
			var id ulid.ULID
			copy(id[:], k)
			entries = append(entries, &world.LogEntry{
				ID:          id,
				CharacterID: characterID,
				ActionType:  rec.ActionType,
				Message:     rec.Message,
				CreatedAt:   fromMillis(rec.CreatedAt),
			})
		}
		return nil
	})
	if err != nil {
		return nil, oops.Code("ACTION_LOG_QUERY_FAILED").With("character_id", characterID.String()).Wrap(err)
	}
	return entries, nil
}
