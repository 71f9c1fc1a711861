// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gridquest/gridquest/internal/auth"
	"github.com/gridquest/gridquest/internal/world"
	"github.com/gridquest/gridquest/pkg/errutil"
)

// Client-facing messages.
const (
	msgAuthRequired       = "Authentication required"
	msgRateLimited        = "Rate limit exceeded"
	msgInternal           = "Internal server error"
	msgInvalidBody        = "Invalid request body"
	msgActionRequired     = "Action type is required"
	msgInvalidCredentials = "Invalid credentials"
	msgMissingFields      = "All fields are required"
	msgUsernameTaken      = "Username already exists"
	msgCharacterNotFound  = "Character not found"
)

// failure is the body of every unsuccessful response.
type failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may have gone away
	json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failure{Success: false, Message: message})
}

// publicError maps a service error to a status and a message safe to show
// players. Unexpected errors are 500 with a generic message.
func publicError(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		return http.StatusBadRequest, msgMissingFields
	case errors.Is(err, auth.ErrUsernameTaken):
		return http.StatusBadRequest, msgUsernameTaken
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, auth.ErrSessionInvalid):
		return http.StatusUnauthorized, msgAuthRequired
	case errors.Is(err, world.ErrNotFound):
		return http.StatusNotFound, msgCharacterNotFound
	}

	var verr *world.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Error()
	}
	switch errutil.Code(err) {
	case "AUTH_INVALID_USERNAME", "AUTH_INVALID_CHARACTER":
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, msgInternal
}

func writeError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	status, message := publicError(err)
	if status == http.StatusInternalServerError {
		errutil.LogError(logger, msg, err)
	}
	writeFailure(w, status, message)
}
