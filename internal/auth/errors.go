// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned when signing up with a username that is in use.
var ErrUsernameTaken = errors.New("username already exists")

// ErrInvalidCredentials is returned when a username or password does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrMissingFields is returned when a signup or login request omits a field.
var ErrMissingFields = errors.New("all fields are required")

// ErrSessionInvalid is returned when a token is unknown, revoked or expired.
var ErrSessionInvalid = errors.New("invalid session")
