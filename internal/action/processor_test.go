// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package action_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridquest/gridquest/internal/action"
	"github.com/gridquest/gridquest/internal/world"
)

func newCharacter(x, y int, inside bool) world.Character {
	return world.Character{
		Name:           "Aria",
		X:              x,
		Y:              y,
		InsideBuilding: inside,
		Health:         100, MaxHealth: 100,
		MP: 100, MaxMP: 100,
		AP: 10, MaxAP: 10,
	}
}

func newProcessor(t *testing.T) *action.Processor {
	t.Helper()
	return action.NewProcessor(world.DefaultDirectory())
}

// apply mirrors what the game service does with an outcome.
func apply(c world.Character, o action.Outcome) world.Character {
	if o.Position != nil {
		c.X, c.Y, c.InsideBuilding = o.Position.X, o.Position.Y, o.Position.InsideBuilding
	}
	if o.Stats != nil {
		world.StatsUpdate{
			Health:     o.Stats.Health,
			MP:         o.Stats.MP,
			AP:         o.Stats.AP,
			Experience: o.Stats.Experience,
		}.ApplyTo(&c)
	}
	return c
}

func assertRejected(t *testing.T, o action.Outcome, reason action.Reason, msg string) {
	t.Helper()
	assert.False(t, o.Success)
	assert.Equal(t, reason, o.Reason)
	assert.Equal(t, msg, o.Message)
	assert.Nil(t, o.Position, "rejections carry no position delta")
	assert.Nil(t, o.Stats, "rejections carry no stats delta")
	assert.Empty(t, o.LogMessage)
	assert.False(t, o.Mutates())
}

func TestProcess_UnknownType(t *testing.T) {
	p := newProcessor(t)
	for _, typ := range []action.Type{"", "move", "FLY", "DANCE"} {
		o := p.Process(newCharacter(1, 1, false), typ, nil)
		assertRejected(t, o, action.ReasonInvalidActionType, "Invalid action type")
	}
}

func TestProcess_Move(t *testing.T) {
	tests := []struct {
		name      string
		x, y      int
		direction string
		wantX     int
		wantY     int
		wantLog   string
	}{
		{"north decreases y", 1, 1, "north", 1, 0, "Moved north to (1, 0)"},
		{"south increases y", 1, 1, "south", 1, 2, "Moved south to (1, 2)"},
		{"east increases x", 1, 1, "east", 2, 1, "Moved east to (2, 1)"},
		{"west decreases x", 1, 1, "west", 0, 1, "Moved west to (0, 1)"},
	}

	p := newProcessor(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCharacter(tt.x, tt.y, false)
			o := p.Process(c, action.TypeMove, action.Params{"direction": tt.direction})

			require.True(t, o.Success)
			assert.Equal(t, "Moved "+tt.direction, o.Message)
			require.NotNil(t, o.Position)
			assert.Equal(t, action.PositionDelta{X: tt.wantX, Y: tt.wantY}, *o.Position)
			require.NotNil(t, o.Stats)
			require.NotNil(t, o.Stats.AP)
			assert.Equal(t, 9, *o.Stats.AP)
			assert.Nil(t, o.Stats.Health)
			assert.Equal(t, tt.wantLog, o.LogMessage)
			assert.True(t, o.Mutates())
		})
	}
}

func TestProcess_Move_LeavesBuilding(t *testing.T) {
	o := newProcessor(t).Process(newCharacter(1, 1, true), action.TypeMove, action.Params{"direction": "east"})
	require.True(t, o.Success)
	require.NotNil(t, o.Position)
	assert.False(t, o.Position.InsideBuilding)
}

func TestProcess_Move_WallBump(t *testing.T) {
	edges := []struct {
		name      string
		x, y      int
		direction string
	}{
		{"north edge", 1, 0, "north"},
		{"south edge", 1, 2, "south"},
		{"east edge", 2, 1, "east"},
		{"west edge", 0, 1, "west"},
		{"corner", 0, 0, "north"},
	}

	p := newProcessor(t)
	for _, tt := range edges {
		t.Run(tt.name, func(t *testing.T) {
			c := newCharacter(tt.x, tt.y, false)
			o := p.Process(c, action.TypeMove, action.Params{"direction": tt.direction})

			assert.True(t, o.Success)
			assert.Equal(t, "You can't move any further in that direction.", o.Message)
			assert.Nil(t, o.Position)
			assert.Nil(t, o.Stats, "a blocked move costs nothing")
			assert.Empty(t, o.LogMessage, "a blocked move is not logged")
			assert.False(t, o.Mutates())
			assert.Equal(t, c, apply(c, o))
		})
	}
}

func TestProcess_Move_Rejections(t *testing.T) {
	p := newProcessor(t)

	t.Run("invalid direction", func(t *testing.T) {
		for _, params := range []action.Params{nil, {}, {"direction": "up"}, {"direction": "North"}, {"direction": 3}} {
			o := p.Process(newCharacter(1, 1, false), action.TypeMove, params)
			assertRejected(t, o, action.ReasonInvalidDirection, "Invalid direction")
		}
	})

	t.Run("insufficient AP is checked before direction", func(t *testing.T) {
		c := newCharacter(1, 1, false)
		c.AP = 0
		o := p.Process(c, action.TypeMove, action.Params{"direction": "up"})
		assertRejected(t, o, action.ReasonInsufficientResource, "Not enough AP to move")
	})

	t.Run("insufficient AP at the edge still rejects", func(t *testing.T) {
		c := newCharacter(1, 0, false)
		c.AP = 0
		o := p.Process(c, action.TypeMove, action.Params{"direction": "north"})
		assertRejected(t, o, action.ReasonInsufficientResource, "Not enough AP to move")
	})
}

func TestProcess_EnterBuilding(t *testing.T) {
	p := newProcessor(t)

	t.Run("enters the building at the location", func(t *testing.T) {
		o := p.Process(newCharacter(1, 1, false), action.TypeEnterBuilding, nil)
		require.True(t, o.Success)
		assert.Equal(t, "Entered Town Hall", o.Message)
		assert.Equal(t, &action.PositionDelta{X: 1, Y: 1, InsideBuilding: true}, o.Position)
		require.NotNil(t, o.Stats)
		assert.Equal(t, 9, *o.Stats.AP)
		assert.Equal(t, "Entered Town Hall at (1, 1)", o.LogMessage)
	})

	t.Run("insufficient AP", func(t *testing.T) {
		c := newCharacter(1, 1, false)
		c.AP = 0
		o := p.Process(c, action.TypeEnterBuilding, nil)
		assertRejected(t, o, action.ReasonInsufficientResource, "Not enough AP to enter building")
	})

	t.Run("already inside", func(t *testing.T) {
		o := p.Process(newCharacter(1, 1, true), action.TypeEnterBuilding, nil)
		assertRejected(t, o, action.ReasonAlreadyInsideBuilding, "Already inside a building")
	})

	t.Run("no building at location", func(t *testing.T) {
		dir, err := world.NewDirectory([]world.Location{
			{Coord: world.Coord{X: 0, Y: 0}, Name: "Field", Description: "Open grass."},
		})
		require.NoError(t, err)
		o := action.NewProcessor(dir).Process(newCharacter(0, 0, false), action.TypeEnterBuilding, nil)
		assertRejected(t, o, action.ReasonNoBuildingPresent, "No building to enter at this location")
	})

	t.Run("unknown location has no building", func(t *testing.T) {
		dir, err := world.NewDirectory(nil)
		require.NoError(t, err)
		o := action.NewProcessor(dir).Process(newCharacter(1, 1, false), action.TypeEnterBuilding, nil)
		assertRejected(t, o, action.ReasonNoBuildingPresent, "No building to enter at this location")
	})
}

func TestProcess_ExitBuilding(t *testing.T) {
	p := newProcessor(t)

	t.Run("exits the building", func(t *testing.T) {
		o := p.Process(newCharacter(2, 1, true), action.TypeExitBuilding, nil)
		require.True(t, o.Success)
		assert.Equal(t, "Exited General Store", o.Message)
		assert.Equal(t, &action.PositionDelta{X: 2, Y: 1, InsideBuilding: false}, o.Position)
		assert.Equal(t, 9, *o.Stats.AP)
		assert.Equal(t, "Exited General Store at (2, 1)", o.LogMessage)
	})

	t.Run("not inside", func(t *testing.T) {
		o := p.Process(newCharacter(2, 1, false), action.TypeExitBuilding, nil)
		assertRejected(t, o, action.ReasonNotInsideBuilding, "Not inside a building")
	})

	t.Run("insufficient AP wins over not inside", func(t *testing.T) {
		c := newCharacter(2, 1, false)
		c.AP = 0
		o := p.Process(c, action.TypeExitBuilding, nil)
		assertRejected(t, o, action.ReasonInsufficientResource, "Not enough AP to exit building")
	})
}

func TestProcess_Rest(t *testing.T) {
	p := newProcessor(t)

	tests := []struct {
		name       string
		health, mp int
		wantHP     int
		wantMP     int
		wantMsg    string
	}{
		{"recovers up to ten of each", 50, 20, 60, 30, "Rested and recovered 10 HP and 10 MP"},
		{"caps at the maximum", 95, 100, 100, 100, "Rested and recovered 5 HP and 0 MP"},
		{"at full pools recovers nothing", 100, 100, 100, 100, "Rested and recovered 0 HP and 0 MP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCharacter(1, 1, false)
			c.Health, c.MP = tt.health, tt.mp

			o := p.Process(c, action.TypeRest, nil)
			require.True(t, o.Success)
			assert.Equal(t, tt.wantMsg, o.Message)
			assert.Equal(t, tt.wantMsg, o.LogMessage)
			assert.Nil(t, o.Position)
			require.NotNil(t, o.Stats)
			assert.Equal(t, tt.wantHP, *o.Stats.Health)
			assert.Equal(t, tt.wantMP, *o.Stats.MP)
			assert.Equal(t, 8, *o.Stats.AP)
		})
	}

	t.Run("needs two AP", func(t *testing.T) {
		c := newCharacter(1, 1, false)
		c.AP = 1
		o := p.Process(c, action.TypeRest, nil)
		assertRejected(t, o, action.ReasonInsufficientResource, "Not enough AP to rest (need 2 AP)")
	})

	t.Run("exactly two AP is enough", func(t *testing.T) {
		c := newCharacter(1, 1, false)
		c.AP = 2
		o := p.Process(c, action.TypeRest, nil)
		require.True(t, o.Success)
		assert.Equal(t, 0, *o.Stats.AP)
	})
}

func TestProcess_Search(t *testing.T) {
	p := newProcessor(t)

	t.Run("outside searches the area", func(t *testing.T) {
		o := p.Process(newCharacter(0, 2, false), action.TypeSearch, nil)
		require.True(t, o.Success)
		assert.Equal(t, "Searched the area but found nothing", o.Message)
		assert.Equal(t, "Searched the area at (0, 2) but found nothing", o.LogMessage)
		assert.Nil(t, o.Position)
		assert.Equal(t, 9, *o.Stats.AP)
		assert.True(t, o.Mutates())
	})

	t.Run("inside searches the building", func(t *testing.T) {
		o := p.Process(newCharacter(0, 2, true), action.TypeSearch, nil)
		require.True(t, o.Success)
		assert.Equal(t, "Searched the building but found nothing", o.Message)
		assert.Equal(t, "Searched the building at (0, 2) but found nothing", o.LogMessage)
	})

	t.Run("insufficient AP", func(t *testing.T) {
		c := newCharacter(0, 2, false)
		c.AP = 0
		o := p.Process(c, action.TypeSearch, nil)
		assertRejected(t, o, action.ReasonInsufficientResource, "Not enough AP to search")
	})
}

func TestProcess_DoesNotModifySnapshot(t *testing.T) {
	c := newCharacter(1, 1, false)
	before := c
	p := newProcessor(t)
	for _, typ := range []action.Type{action.TypeMove, action.TypeEnterBuilding, action.TypeRest, action.TypeSearch} {
		p.Process(c, typ, action.Params{"direction": "north"})
	}
	assert.Equal(t, before, c)
}

func TestProcess_Scenario_VisitRoadsideInn(t *testing.T) {
	p := newProcessor(t)
	c := newCharacter(1, 1, false)

	o := p.Process(c, action.TypeMove, action.Params{"direction": "north"})
	require.True(t, o.Success)
	c = apply(c, o)
	assert.Equal(t, world.Position{X: 1, Y: 0}, c.Position())
	assert.Equal(t, 9, c.AP)

	o = p.Process(c, action.TypeEnterBuilding, nil)
	require.True(t, o.Success)
	assert.Equal(t, "Entered Roadside Inn", o.Message)
	c = apply(c, o)
	assert.True(t, c.InsideBuilding)
	assert.Equal(t, 8, c.AP)

	o = p.Process(c, action.TypeExitBuilding, nil)
	require.True(t, o.Success)
	assert.Equal(t, "Exited Roadside Inn", o.Message)
	c = apply(c, o)
	assert.False(t, c.InsideBuilding)
	assert.Equal(t, 7, c.AP)
}

func TestProcess_Scenario_RestNearFullHealth(t *testing.T) {
	c := newCharacter(1, 1, false)
	c.Health = 95

	o := newProcessor(t).Process(c, action.TypeRest, nil)
	require.True(t, o.Success)
	c = apply(c, o)

	assert.Equal(t, 100, c.Health)
	assert.Equal(t, 100, c.MP)
	assert.Equal(t, 8, c.AP)
	assert.Equal(t, "Rested and recovered 5 HP and 0 MP", o.Message)
}

func TestKnown(t *testing.T) {
	assert.True(t, action.Known(action.TypeRest))
	assert.False(t, action.Known("JUMP"))
}
