// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gridquest/gridquest/internal/action"
	"github.com/gridquest/gridquest/internal/auth"
	"github.com/gridquest/gridquest/internal/world"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 * 1024

type signupRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	CharacterName string `json:"character_name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type actionResponse struct {
	Success          bool                `json:"success"`
	Message          string              `json:"message"`
	Reason           action.Reason       `json:"reason,omitempty"`
	Character        *world.Character    `json:"character"`
	Location         world.LocationView  `json:"location"`
	AvailableActions []action.Descriptor `json:"available_actions"`
	Logs             []*world.LogEntry   `json:"logs"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session, token, err := s.auth.Signup(r.Context(), auth.SignupRequest{
		Username:      req.Username,
		Password:      req.Password,
		CharacterName: req.CharacterName,
	})
	if err != nil {
		writeError(w, s.logger, "signup failed", err)
		return
	}
	s.setSessionCookie(w, r, token, session.ExpiresAt)
	writeJSON(w, http.StatusOK, tokenResponse{Success: true, Token: token, ExpiresAt: session.ExpiresAt})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	session, token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, s.logger, "login failed", err)
		return
	}
	s.setSessionCookie(w, r, token, session.ExpiresAt)
	writeJSON(w, http.StatusOK, tokenResponse{Success: true, Token: token, ExpiresAt: session.ExpiresAt})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	if err := s.auth.Logout(r.Context(), session.ID); err != nil {
		writeError(w, s.logger, "logout failed", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleCharacter(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	snap, err := s.game.Snapshot(r.Context(), session.AccountID)
	if err != nil {
		writeError(w, s.logger, "character lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Character)
}

func (s *Server) handleLocation(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	snap, err := s.game.Snapshot(r.Context(), session.AccountID)
	if err != nil {
		writeError(w, s.logger, "location lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Location)
}

func (s *Server) handleActions(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	snap, err := s.game.Snapshot(r.Context(), session.AccountID)
	if err != nil {
		writeError(w, s.logger, "actions lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Actions)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	logs, err := s.game.Logs(r.Context(), session.AccountID, limit)
	if err != nil {
		writeError(w, s.logger, "logs lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// handleAction runs an action. Rejected actions are still 200 with
// success false and the unchanged state.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	var req action.Request
	if !decodeBody(w, r, &req) {
		return
	}
	req.Type = action.Type(strings.TrimSpace(string(req.Type)))
	if req.Type == "" {
		writeFailure(w, http.StatusBadRequest, msgActionRequired)
		return
	}

	res, err := s.game.Perform(r.Context(), session.AccountID, req)
	if err != nil {
		writeError(w, s.logger, "action failed", err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{
		Success:          res.Outcome.Success,
		Message:          res.Outcome.Message,
		Reason:           res.Outcome.Reason,
		Character:        res.Snapshot.Character,
		Location:         res.Snapshot.Location,
		AvailableActions: res.Snapshot.Actions,
		Logs:             res.Snapshot.Logs,
	})
}
