// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package action

import (
	"github.com/gridquest/gridquest/internal/world"
)

// handlerFunc evaluates one action type against a character snapshot.
type handlerFunc func(p *Processor, c world.Character, params Params) Outcome

// handlers is the closed dispatch table.
var handlers = map[Type]handlerFunc{
	TypeMove:          (*Processor).move,
	TypeEnterBuilding: (*Processor).enterBuilding,
	TypeExitBuilding:  (*Processor).exitBuilding,
	TypeRest:          (*Processor).rest,
	TypeSearch:        (*Processor).search,
}

// Processor evaluates actions. It is stateless apart from the read-only
// location directory and is safe for concurrent use.
type Processor struct {
	dir *world.Directory
}

// NewProcessor creates a processor over the given world.
func NewProcessor(dir *world.Directory) *Processor {
	return &Processor{dir: dir}
}

// Process evaluates the action against the character snapshot.
// The snapshot is not modified.
func (p *Processor) Process(c world.Character, t Type, params Params) Outcome {
	h, ok := handlers[t]
	if !ok {
		return reject(ReasonInvalidActionType, "Invalid action type")
	}
	return h(p, c, params)
}

// Known reports whether t is a recognized action type.
func Known(t Type) bool {
	_, ok := handlers[t]
	return ok
}
