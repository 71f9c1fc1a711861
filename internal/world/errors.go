// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package world

import "errors"

var (
	// ErrNotFound is returned when a character does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNegativeStat is returned when a stats update would drive a pool below zero.
	ErrNegativeStat = errors.New("stat cannot be negative")
)
