// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package world

import (
	_ "embed"
	"sort"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

//go:embed data/grid.yaml
var defaultGridYAML []byte

// Directory is the read-only index of locations on the grid.
// It is immutable after construction and safe for concurrent use.
type Directory struct {
	locations map[Coord]Location
}

// gridDocument is the on-disk shape of a world definition.
type gridDocument struct {
	Locations []struct {
		X           int    `yaml:"x"`
		Y           int    `yaml:"y"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Building    *struct {
			Name        string `yaml:"name"`
			Description string `yaml:"description"`
		} `yaml:"building"`
	} `yaml:"locations"`
}

// NewDirectory builds a directory from the given locations.
// Every location must be valid and occupy a distinct cell.
func NewDirectory(locations []Location) (*Directory, error) {
	d := &Directory{locations: make(map[Coord]Location, len(locations))}
	for _, loc := range locations {
		if err := loc.Validate(); err != nil {
			return nil, oops.Code("WORLD_INVALID_LOCATION").With("coord", loc.Coord.String()).Wrap(err)
		}
		if _, dup := d.locations[loc.Coord]; dup {
			return nil, oops.Code("WORLD_DUPLICATE_LOCATION").
				With("coord", loc.Coord.String()).
				Errorf("duplicate location at %s", loc.Coord)
		}
		d.locations[loc.Coord] = loc
	}
	return d, nil
}

// LoadDirectory parses a YAML world definition.
func LoadDirectory(data []byte) (*Directory, error) {
	var doc gridDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, oops.Code("WORLD_PARSE_FAILED").Wrap(err)
	}

	locations := make([]Location, 0, len(doc.Locations))
	for _, l := range doc.Locations {
		loc := Location{
			Coord:       Coord{X: l.X, Y: l.Y},
			Name:        l.Name,
			Description: l.Description,
		}
		if l.Building != nil {
			loc.HasBuilding = true
			loc.BuildingName = l.Building.Name
			loc.BuildingDescription = l.Building.Description
		}
		locations = append(locations, loc)
	}
	return NewDirectory(locations)
}

// DefaultDirectory returns the built-in 3x3 world.
// It panics if the embedded definition is invalid, which is a build defect.
func DefaultDirectory() *Directory {
	d, err := LoadDirectory(defaultGridYAML)
	if err != nil {
		panic("world: invalid embedded grid: " + err.Error())
	}
	return d
}

// Location returns the location at (x, y), if any.
func (d *Directory) Location(x, y int) (Location, bool) {
	loc, ok := d.locations[Coord{X: x, Y: y}]
	return loc, ok
}

// LocationInfo returns the view at (x, y). Unknown coordinates degrade to
// the "Unknown Area" view instead of failing.
func (d *Directory) LocationInfo(x, y int, insideBuilding bool) LocationView {
	loc, ok := d.Location(x, y)
	if !ok {
		return UnknownAreaView()
	}
	if insideBuilding {
		return loc.InsideView()
	}
	return loc.OutsideView()
}

// HasBuilding reports whether the location at (x, y) contains a building.
func (d *Directory) HasBuilding(x, y int) bool {
	loc, ok := d.Location(x, y)
	return ok && loc.HasBuilding
}

// All returns every location ordered north to south, then west to east.
func (d *Directory) All() []Location {
	out := make([]Location, 0, len(d.locations))
	for _, loc := range d.locations {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}
