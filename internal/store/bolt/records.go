// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package bolt

import (
	"github.com/oklog/ulid/v2"

	"github.com/gridquest/gridquest/internal/auth"
	"github.com/gridquest/gridquest/internal/world"
)

// Stored JSON shapes. Timestamps are unix milliseconds.

type accountRecord struct {
	ID           ulid.ULID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    int64     `json:"created_at"`
}

func newAccountRecord(a *auth.Account) accountRecord {
	return accountRecord{ID: a.ID, Username: a.Username, PasswordHash: a.PasswordHash, CreatedAt: toMillis(a.CreatedAt)}
}

func (r accountRecord) domain() *auth.Account {
	return &auth.Account{ID: r.ID, Username: r.Username, PasswordHash: r.PasswordHash, CreatedAt: fromMillis(r.CreatedAt)}
}

type sessionRecord struct {
	ID        ulid.ULID `json:"id"`
	AccountID ulid.ULID `json:"account_id"`
	TokenHash string    `json:"token_hash"`
	ExpiresAt int64     `json:"expires_at"`
	CreatedAt int64     `json:"created_at"`
}

func newSessionRecord(s *auth.Session) sessionRecord {
	return sessionRecord{
		ID: s.ID, AccountID: s.AccountID, TokenHash: s.TokenHash,
		ExpiresAt: toMillis(s.ExpiresAt), CreatedAt: toMillis(s.CreatedAt),
	}
}

func (r sessionRecord) domain() *auth.Session {
	return &auth.Session{
		ID: r.ID, AccountID: r.AccountID, TokenHash: r.TokenHash,
		ExpiresAt: fromMillis(r.ExpiresAt), CreatedAt: fromMillis(r.CreatedAt),
	}
}

type characterRecord struct {
	ID             ulid.ULID `json:"id"`
	AccountID      ulid.ULID `json:"account_id"`
	Name           string    `json:"name"`
	X              int       `json:"x"`
	Y              int       `json:"y"`
	InsideBuilding bool      `json:"inside_building"`
	Health         int       `json:"health"`
	MaxHealth      int       `json:"max_health"`
	MP             int       `json:"mp"`
	MaxMP          int       `json:"max_mp"`
	AP             int       `json:"ap"`
	MaxAP          int       `json:"max_ap"`
	Experience     int       `json:"experience"`
	CreatedAt      int64     `json:"created_at"`
}

func newCharacterRecord(c *world.Character) characterRecord {
	return characterRecord{
		ID: c.ID, AccountID: c.AccountID, Name: c.Name,
		X: c.X, Y: c.Y, InsideBuilding: c.InsideBuilding,
		Health: c.Health, MaxHealth: c.MaxHealth,
		MP: c.MP, MaxMP: c.MaxMP,
		AP: c.AP, MaxAP: c.MaxAP,
		Experience: c.Experience,
		CreatedAt:  toMillis(c.CreatedAt),
	}
}

func (r characterRecord) domain() *world.Character {
	return &world.Character{
		ID: r.ID, AccountID: r.AccountID, Name: r.Name,
		X: r.X, Y: r.Y, InsideBuilding: r.InsideBuilding,
		Health: r.Health, MaxHealth: r.MaxHealth,
		MP: r.MP, MaxMP: r.MaxMP,
		AP: r.AP, MaxAP: r.MaxAP,
		Experience: r.Experience,
		CreatedAt:  fromMillis(r.CreatedAt),
	}
}

type logRecord struct {
	ActionType string `json:"action_type"`
	Message    string `json:"message"`
	CreatedAt  int64  `json:"created_at"`
}
