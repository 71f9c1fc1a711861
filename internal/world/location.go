// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

// Package world contains the world model domain types and the contracts
// for persisting characters and their action history.
package world

import "fmt"

// Grid bounds. The world is a fixed square grid; both axes share the same extent.
const (
	GridMin = 0
	GridMax = 2
)

// Fallback view returned for coordinates outside the directory.
const (
	UnknownAreaName        = "Unknown Area"
	UnknownAreaDescription = "You seem to be lost."
)

// Coord identifies a grid cell.
type Coord struct {
	X int
	Y int
}

// String returns the coordinate formatted as "(x, y)".
func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

// InBounds reports whether the coordinate lies on the grid.
func (c Coord) InBounds() bool {
	return c.X >= GridMin && c.X <= GridMax && c.Y >= GridMin && c.Y <= GridMax
}

// Location is a single outdoor grid cell, optionally containing one building.
type Location struct {
	Coord
	Name                string
	Description         string
	HasBuilding         bool
	BuildingName        string
	BuildingDescription string
}

// LocationView is what a character perceives at a coordinate: the outdoor
// cell, or the building interior when inside.
type LocationView struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	InsideBuilding bool   `json:"inside_building"`
	HasBuilding    bool   `json:"has_building,omitempty"`
	BuildingName   string `json:"building_name,omitempty"`
}

// OutsideView returns the outdoor view of the location.
func (l Location) OutsideView() LocationView {
	v := LocationView{
		Name:        l.Name,
		Description: l.Description,
		HasBuilding: l.HasBuilding,
	}
	if l.HasBuilding {
		v.BuildingName = l.BuildingName
	}
	return v
}

// InsideView returns the view from inside the location's building.
func (l Location) InsideView() LocationView {
	return LocationView{
		Name:           l.BuildingName,
		Description:    l.BuildingDescription,
		InsideBuilding: true,
		BuildingName:   l.BuildingName,
	}
}

// UnknownAreaView is the view for coordinates with no location.
func UnknownAreaView() LocationView {
	return LocationView{
		Name:        UnknownAreaName,
		Description: UnknownAreaDescription,
	}
}

// Validate checks that the location is on the grid and fully described.
func (l Location) Validate() error {
	if !l.InBounds() {
		return &ValidationError{Field: "coord", Message: fmt.Sprintf("%s is outside the grid", l.Coord)}
	}
	if err := ValidateName(l.Name); err != nil {
		return err
	}
	if err := ValidateDescription(l.Description); err != nil {
		return err
	}
	if !l.HasBuilding {
		return nil
	}
	if l.BuildingName == "" {
		return &ValidationError{Field: "building_name", Message: "cannot be empty"}
	}
	if err := ValidateName(l.BuildingName); err != nil {
		return err
	}
	return ValidateDescription(l.BuildingDescription)
}
