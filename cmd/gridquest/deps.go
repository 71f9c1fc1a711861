// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gridquest/gridquest/internal/config"
	"github.com/gridquest/gridquest/internal/observability"
	"github.com/gridquest/gridquest/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// StoreFactory opens the storage backend.
	// Default: openStore
	StoreFactory func(ctx context.Context, cfg config.StoreConfig) (store.Backend, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// Ready is called with the web server's address once it is listening.
	// Default: no-op
	Ready func(webAddr string)
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
	Registry() *prometheus.Registry
}
