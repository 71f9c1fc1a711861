// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/samber/oops"

	"github.com/gridquest/gridquest/internal/config"
	"github.com/gridquest/gridquest/internal/store"
	"github.com/gridquest/gridquest/internal/store/bolt"
	"github.com/gridquest/gridquest/internal/store/postgres"
	"github.com/gridquest/gridquest/internal/store/sqlite"
	"github.com/gridquest/gridquest/internal/world"
	"github.com/gridquest/gridquest/internal/xdg"
)

// openStore opens the backend selected by cfg, creating the parent directory
// of file-based stores. It does not migrate.
func openStore(ctx context.Context, cfg config.StoreConfig) (store.Backend, error) {
	switch cfg.Driver {
	case store.DriverSQLite:
		if err := xdg.EnsureDir(filepath.Dir(cfg.SQLite.Path)); err != nil {
			return nil, err
		}
		s, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case store.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case store.DriverBolt:
		if err := xdg.EnsureDir(filepath.Dir(cfg.Bolt.Path)); err != nil {
			return nil, err
		}
		s, err := bolt.Open(cfg.Bolt.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("driver", cfg.Driver).Errorf("unknown store driver %q", cfg.Driver)
	}
}

// loadWorld reads the grid at path, or returns the built-in grid when path
// is empty.
func loadWorld(path string) (*world.Directory, error) {
	if path == "" {
		return world.DefaultDirectory(), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, oops.Code("WORLD_READ_FAILED").With("path", path).Wrap(err)
	}
	dir, err := world.LoadDirectory(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return dir, nil
}
