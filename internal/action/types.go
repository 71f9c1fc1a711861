// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

// Package action decides what a character's action does to the world.
//
// The Processor is a pure function from a character snapshot and a request to
// an Outcome. It performs no I/O; the caller applies the returned deltas and
// log message to storage in a single transaction.
package action

import "fmt"

// Type identifies an action. The set is closed.
type Type string

// Action types.
const (
	TypeMove          Type = "MOVE"
	TypeEnterBuilding Type = "ENTER_BUILDING"
	TypeExitBuilding  Type = "EXIT_BUILDING"
	TypeRest          Type = "REST"
	TypeSearch        Type = "SEARCH"
)

// String returns the wire name of the action type.
func (t Type) String() string {
	return string(t)
}

// AP costs per action.
const (
	CostMove          = 1
	CostEnterBuilding = 1
	CostExitBuilding  = 1
	CostRest          = 2
	CostSearch        = 1
)

// Maximum pool recovery from a single rest.
const (
	RestHealthRecovery = 10
	RestMPRecovery     = 10
)

// Movement directions accepted by MOVE.
const (
	DirectionNorth = "north"
	DirectionEast  = "east"
	DirectionSouth = "south"
	DirectionWest  = "west"
)

// ParamDirection is the MOVE parameter naming the direction.
const ParamDirection = "direction"

// Params is the opaque parameter bag attached to a request.
type Params map[string]any

// String returns the parameter as a string, or "" when missing or not a string.
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Request is a transient action submission.
type Request struct {
	Type   Type   `json:"action_type"`
	Params Params `json:"action_data,omitempty"`
}

// Reason classifies a rejected action. Rejections are ordinary outcomes, not errors.
type Reason string

// Rejection reasons.
const (
	ReasonNone                  Reason = ""
	ReasonInvalidActionType     Reason = "INVALID_ACTION_TYPE"
	ReasonInsufficientResource  Reason = "INSUFFICIENT_RESOURCE"
	ReasonInvalidDirection      Reason = "INVALID_DIRECTION"
	ReasonNoBuildingPresent     Reason = "NO_BUILDING_PRESENT"
	ReasonNotInsideBuilding     Reason = "NOT_INSIDE_BUILDING"
	ReasonAlreadyInsideBuilding Reason = "ALREADY_INSIDE_BUILDING"
)

// PositionDelta is the position the character should end up at.
type PositionDelta struct {
	X              int  `json:"x"`
	Y              int  `json:"y"`
	InsideBuilding bool `json:"inside_building"`
}

// StatsDelta holds the target value of each pool that changes.
// Values are computed from the input snapshot; nil fields are untouched.
type StatsDelta struct {
	Health     *int `json:"health,omitempty"`
	MP         *int `json:"mp,omitempty"`
	AP         *int `json:"ap,omitempty"`
	Experience *int `json:"experience,omitempty"`
}

// Outcome is the result of processing one request.
type Outcome struct {
	Success    bool           `json:"success"`
	Message    string         `json:"message"`
	Reason     Reason         `json:"reason,omitempty"`
	Position   *PositionDelta `json:"position,omitempty"`
	Stats      *StatsDelta    `json:"stats,omitempty"`
	LogMessage string         `json:"log_message,omitempty"`
}

// Mutates reports whether applying the outcome changes persisted state.
// Every mutating outcome carries exactly one log message.
func (o Outcome) Mutates() bool {
	return o.Success && (o.Position != nil || o.Stats != nil)
}

func reject(reason Reason, format string, args ...any) Outcome {
	return Outcome{Success: false, Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func intPtr(v int) *int { return &v }
