// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

// Package migrations embeds the SQLite schema migrations.
package migrations

import "embed"

// FS holds the NNNNNN_name.(up|down).sql files.
//
//go:embed *.sql
var FS embed.FS
