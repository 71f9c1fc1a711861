// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package world

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Starting values for a freshly created character.
const (
	DefaultHealth = 100
	DefaultMP     = 100
	DefaultAP     = 10
	StartX        = 1
	StartY        = 1
)

// Character represents a player's avatar on the grid.
type Character struct {
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
	CreatedAt      time.Time `json:"created_at"`
}

// NewCharacter creates a character for the account with the signup defaults.
// The character is validated before being returned.
func NewCharacter(accountID ulid.ULID, name string) (*Character, error) {
	c := &Character{
		ID:        ulid.Make(),
		AccountID: accountID,
		Name:      name,
		X:         StartX,
		Y:         StartY,
		Health:    DefaultHealth,
		MaxHealth: DefaultHealth,
		MP:        DefaultMP,
		MaxMP:     DefaultMP,
		AP:        DefaultAP,
		MaxAP:     DefaultAP,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Position returns the character's current placement.
func (c *Character) Position() Position {
	return Position{X: c.X, Y: c.Y, InsideBuilding: c.InsideBuilding}
}

// SetPosition moves the character. The position must be on the grid.
func (c *Character) SetPosition(p Position) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.X, c.Y, c.InsideBuilding = p.X, p.Y, p.InsideBuilding
	return nil
}

// Validate checks identity, placement and pool invariants.
func (c *Character) Validate() error {
	if c.ID.IsZero() {
		return &ValidationError{Field: "id", Message: "cannot be zero"}
	}
	if c.AccountID.IsZero() {
		return &ValidationError{Field: "account_id", Message: "cannot be zero"}
	}
	if err := ValidateCharacterName(c.Name); err != nil {
		return err
	}
	if err := c.Position().Validate(); err != nil {
		return err
	}
	pools := []struct {
		field    string
		cur, max int
	}{
		{"health", c.Health, c.MaxHealth},
		{"mp", c.MP, c.MaxMP},
		{"ap", c.AP, c.MaxAP},
	}
	for _, p := range pools {
		if p.cur < 0 || p.max < 0 {
			return &ValidationError{Field: p.field, Message: "cannot be negative"}
		}
		if p.cur > p.max {
			return &ValidationError{Field: p.field, Message: "exceeds its maximum"}
		}
	}
	if c.Experience < 0 {
		return &ValidationError{Field: "experience", Message: "cannot be negative"}
	}
	return nil
}

// Position is a grid cell plus whether the character is inside its building.
type Position struct {
	X              int  `json:"x"`
	Y              int  `json:"y"`
	InsideBuilding bool `json:"inside_building"`
}

// Validate checks that the position lies on the grid.
func (p Position) Validate() error {
	if !(Coord{X: p.X, Y: p.Y}).InBounds() {
		return &ValidationError{Field: "position", Message: "outside the grid"}
	}
	return nil
}

// StatsUpdate is a partial write of a character's resource pools.
// Nil fields are left unchanged.
type StatsUpdate struct {
	Health     *int
	MP         *int
	AP         *int
	Experience *int
}

// IsEmpty reports whether the update changes nothing.
func (u StatsUpdate) IsEmpty() bool {
	return u.Health == nil && u.MP == nil && u.AP == nil && u.Experience == nil
}

// Validate rejects negative values. Pools are never clamped up to zero.
func (u StatsUpdate) Validate() error {
	fields := []struct {
		name string
		v    *int
	}{
		{"health", u.Health},
		{"mp", u.MP},
		{"ap", u.AP},
		{"experience", u.Experience},
	}
	for _, f := range fields {
		if f.v != nil && *f.v < 0 {
			return &ValidationError{Field: f.name, Message: "cannot be negative", cause: ErrNegativeStat}
		}
	}
	return nil
}

// ApplyTo writes the provided fields onto c, clamping each pool to its maximum.
// Callers must Validate first.
func (u StatsUpdate) ApplyTo(c *Character) {
	if u.Health != nil {
		c.Health = min(*u.Health, c.MaxHealth)
	}
	if u.MP != nil {
		c.MP = min(*u.MP, c.MaxMP)
	}
	if u.AP != nil {
		c.AP = min(*u.AP, c.MaxAP)
	}
	if u.Experience != nil {
		c.Experience = *u.Experience
	}
}
