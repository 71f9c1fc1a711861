// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridquest/gridquest/pkg/errutil"
)

func TestWorldCommand_PrintsBuiltInGrid(t *testing.T) {
	output, err := runCLI(t, "world")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 10, "header plus nine locations")
	assert.Contains(t, lines[0], "POSITION")
	assert.Contains(t, lines[1], "(0, 0)")
	assert.Contains(t, lines[1], "Forest Edge")
	assert.Contains(t, lines[1], "Ranger Station")
	assert.Contains(t, lines[5], "(1, 1)")
	assert.Contains(t, lines[5], "Town Square")
	assert.Contains(t, lines[9], "Southeastern Meadow")
}

func TestWorldCommand_CustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.yaml")
	grid := `locations:
  - x: 0
    y: 0
    name: Camp
    description: A quiet camp.
  - x: 1
    y: 0
    name: Ford
    description: A shallow ford.
    building:
      name: Ferry House
      description: The ferryman's home.
`
	require.NoError(t, os.WriteFile(path, []byte(grid), 0o600))

	output, err := runCLI(t, "world", "--world-file", path)
	require.NoError(t, err)
	assert.Contains(t, output, "Camp")
	assert.Contains(t, output, "Ferry House")
	assert.NotContains(t, output, "Town Square")
}

func TestWorldCommand_MissingFile(t *testing.T) {
	_, err := runCLI(t, "world", "--world-file", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "WORLD_READ_FAILED")
}

func TestLoadWorld_Default(t *testing.T) {
	dir, err := loadWorld("")
	require.NoError(t, err)
	assert.Len(t, dir.All(), 9)
}
