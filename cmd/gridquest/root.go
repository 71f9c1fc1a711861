// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gridquest/gridquest/internal/config"
	"github.com/gridquest/gridquest/internal/xdg"
)

// NewRootCmd creates the root command for the GridQuest CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gridquest",
		Short: "GridQuest - a turn-based grid exploration game server",
		Long: `GridQuest serves a small turn-based world over HTTP and websockets.
Players move across a 3x3 grid, enter buildings, rest and search,
spending action points for each step.`,
		SilenceUsage: true,
	}

	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewWorldCmd())

	return cmd
}

// loadConfig builds and validates the configuration from cmd's parsed flags.
// Without --config, the per-user config file is used when it exists.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	if !flags.Changed("config") {
		if path, err := xdg.ConfigFile(); err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				if setErr := flags.Set("config", path); setErr != nil {
					return nil, setErr
				}
			}
		}
	}

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
