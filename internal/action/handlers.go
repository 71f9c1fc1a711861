// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package action

import (
	"fmt"

	"github.com/gridquest/gridquest/internal/world"
)

// moveVectors maps each direction to its grid offset. North is y-1.
var moveVectors = map[string]world.Coord{
	DirectionNorth: {X: 0, Y: -1},
	DirectionEast:  {X: 1, Y: 0},
	DirectionSouth: {X: 0, Y: 1},
	DirectionWest:  {X: -1, Y: 0},
}

func clampGrid(v int) int {
	return max(world.GridMin, min(world.GridMax, v))
}

func spend(c world.Character, cost int) *StatsDelta {
	return &StatsDelta{AP: intPtr(c.AP - cost)}
}

func (p *Processor) move(c world.Character, params Params) Outcome {
	if c.AP < CostMove {
		return reject(ReasonInsufficientResource, "Not enough AP to move")
	}

	direction := params.String(ParamDirection)
	vec, ok := moveVectors[direction]
	if !ok {
		return reject(ReasonInvalidDirection, "Invalid direction")
	}

	x := clampGrid(c.X + vec.X)
	y := clampGrid(c.Y + vec.Y)
	if x == c.X && y == c.Y {
		// Walking into the edge of the world costs nothing and is not logged.
		return Outcome{Success: true, Message: "You can't move any further in that direction."}
	}

	to := world.Coord{X: x, Y: y}
	return Outcome{
		Success:    true,
		Message:    fmt.Sprintf("Moved %s", direction),
		Position:   &PositionDelta{X: x, Y: y, InsideBuilding: false},
		Stats:      spend(c, CostMove),
		LogMessage: fmt.Sprintf("Moved %s to %s", direction, to),
	}
}

func (p *Processor) enterBuilding(c world.Character, _ Params) Outcome {
	if c.AP < CostEnterBuilding {
		return reject(ReasonInsufficientResource, "Not enough AP to enter building")
	}
	if c.InsideBuilding {
		return reject(ReasonAlreadyInsideBuilding, "Already inside a building")
	}

	view := p.dir.LocationInfo(c.X, c.Y, false)
	if !view.HasBuilding {
		return reject(ReasonNoBuildingPresent, "No building to enter at this location")
	}

	at := world.Coord{X: c.X, Y: c.Y}
	return Outcome{
		Success:    true,
		Message:    fmt.Sprintf("Entered %s", view.BuildingName),
		Position:   &PositionDelta{X: c.X, Y: c.Y, InsideBuilding: true},
		Stats:      spend(c, CostEnterBuilding),
		LogMessage: fmt.Sprintf("Entered %s at %s", view.BuildingName, at),
	}
}

func (p *Processor) exitBuilding(c world.Character, _ Params) Outcome {
	if c.AP < CostExitBuilding {
		return reject(ReasonInsufficientResource, "Not enough AP to exit building")
	}
	if !c.InsideBuilding {
		return reject(ReasonNotInsideBuilding, "Not inside a building")
	}

	view := p.dir.LocationInfo(c.X, c.Y, true)
	at := world.Coord{X: c.X, Y: c.Y}
	return Outcome{
		Success:    true,
		Message:    fmt.Sprintf("Exited %s", view.Name),
		Position:   &PositionDelta{X: c.X, Y: c.Y, InsideBuilding: false},
		Stats:      spend(c, CostExitBuilding),
		LogMessage: fmt.Sprintf("Exited %s at %s", view.Name, at),
	}
}

func (p *Processor) rest(c world.Character, _ Params) Outcome {
	if c.AP < CostRest {
		return reject(ReasonInsufficientResource, "Not enough AP to rest (need %d AP)", CostRest)
	}

	hp := max(0, min(RestHealthRecovery, c.MaxHealth-c.Health))
	mp := max(0, min(RestMPRecovery, c.MaxMP-c.MP))
	msg := fmt.Sprintf("Rested and recovered %d HP and %d MP", hp, mp)

	return Outcome{
		Success: true,
		Message: msg,
		Stats: &StatsDelta{
			Health: intPtr(c.Health + hp),
			MP:     intPtr(c.MP + mp),
			AP:     intPtr(c.AP - CostRest),
		},
		LogMessage: msg,
	}
}

func (p *Processor) search(c world.Character, _ Params) Outcome {
	if c.AP < CostSearch {
		return reject(ReasonInsufficientResource, "Not enough AP to search")
	}

	place := "area"
	if c.InsideBuilding {
		place = "building"
	}
	at := world.Coord{X: c.X, Y: c.Y}
	return Outcome{
		Success:    true,
		Message:    fmt.Sprintf("Searched the %s but found nothing", place),
		Stats:      spend(c, CostSearch),
		LogMessage: fmt.Sprintf("Searched the %s at %s but found nothing", place, at),
	}
}
