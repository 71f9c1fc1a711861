// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gridquest/gridquest/internal/world"
)

// NewWorldCmd creates the world subcommand.
func NewWorldCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "world",
		Short: "Print the configured world grid",
		Long: `Load the configured world (the built-in grid, or --world-file) and
print every location. A world file that fails to load is reported as an
error, so this doubles as a validator.`,
		RunE: runWorld,
	}
}

func runWorld(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir, err := loadWorld(cfg.World.File)
	if err != nil {
		return err
	}
	return printWorld(cmd, dir)
}

func printWorld(cmd *cobra.Command, dir *world.Directory) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "POSITION\tLOCATION\tBUILDING"); err != nil {
		return err
	}
	for _, loc := range dir.All() {
		building := "-"
		if loc.HasBuilding {
			building = loc.BuildingName
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", loc.Coord, loc.Name, building); err != nil {
			return err
		}
	}
	return tw.Flush()
}
