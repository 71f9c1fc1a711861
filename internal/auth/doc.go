// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

// Package auth provides accounts and sessions for GridQuest players.
//
// # Domain Types
//
// Account and Session should be created with NewAccount and NewSession.
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Service
//
// Service coordinates signup, login, logout and session validation. Signup
// creates the account, its character and the first action log entry in one
// storage transaction.
package auth
