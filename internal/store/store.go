// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

// Package store defines the storage backend contract and shared schema
// migration tooling. Implementations live in the sqlite, postgres and bolt
// subpackages.
package store

import (
	"context"

	"github.com/gridquest/gridquest/internal/auth"
)

// Driver names accepted by configuration.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

// Drivers lists every supported driver name.
var Drivers = []string{DriverSQLite, DriverPostgres, DriverBolt}

// Backend is a complete storage implementation. Every repository it hands
// out joins the transaction carried by ctx when called inside InTransaction.
type Backend interface {
	auth.Store

	// Name returns the driver name.
	Name() string

	// Migrate brings the schema up to date. It is safe to call repeatedly.
	Migrate(ctx context.Context) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close() error
}
