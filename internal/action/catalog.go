// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package action

import "github.com/gridquest/gridquest/internal/world"

// Option is one selectable parameter value for an action.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Descriptor describes an action a player may attempt.
type Descriptor struct {
	Type    Type     `json:"type"`
	Name    string   `json:"name"`
	Options []Option `json:"options"`
}

var moveOptions = []Option{
	{Value: DirectionNorth, Label: "North"},
	{Value: DirectionEast, Label: "East"},
	{Value: DirectionSouth, Label: "South"},
	{Value: DirectionWest, Label: "West"},
}

// Catalog lists the actions available at a position. Availability depends on
// position only; AP is checked when the action is processed.
type Catalog struct {
	dir *world.Directory
}

// NewCatalog creates a catalog over the given world.
func NewCatalog(dir *world.Directory) *Catalog {
	return &Catalog{dir: dir}
}

// Available returns the actions offered at (x, y) in display order.
func (c *Catalog) Available(x, y int, insideBuilding bool) []Descriptor {
	out := make([]Descriptor, 0, 4)

	if !insideBuilding {
		opts := make([]Option, len(moveOptions))
		copy(opts, moveOptions)
		out = append(out, Descriptor{Type: TypeMove, Name: "Move", Options: opts})

		if c.dir.HasBuilding(x, y) {
			out = append(out, Descriptor{Type: TypeEnterBuilding, Name: "Enter Building", Options: []Option{}})
		}
	} else {
		out = append(out, Descriptor{Type: TypeExitBuilding, Name: "Exit Building", Options: []Option{}})
	}

	out = append(out,
		Descriptor{Type: TypeRest, Name: "Rest", Options: []Option{}},
		Descriptor{Type: TypeSearch, Name: "Search Area", Options: []Option{}},
	)
	return out
}
