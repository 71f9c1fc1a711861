// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gridquest/gridquest/internal/action"
	"github.com/gridquest/gridquest/internal/auth"
	"github.com/gridquest/gridquest/internal/realtime"
	"github.com/gridquest/gridquest/pkg/errutil"
)

// Websocket timings and limits.
const (
	wsWriteWait    = 5 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingPeriod   = wsPongWait * 9 / 10
	wsMaxMessage   = 4 * 1024
	wsDirectBuffer = 8
)

// MessageTypePerformAction is the only message clients send.
const MessageTypePerformAction = "perform_action"

const connTypeWebSocket = "websocket"

// clientMessage is a frame sent by the browser.
type clientMessage struct {
	Type       string        `json:"type"`
	ActionType action.Type   `json:"action_type"`
	ActionData action.Params `json:"action_data"`
}

// wsConn is one open websocket. Events for the account arrive through the
// hub subscription; replies meant for this connection only go through direct.
type wsConn struct {
	conn    *websocket.Conn
	session *auth.Session
	sub     *realtime.Subscription
	direct  chan realtime.Event
	// limitKey shares the HTTP action bucket for this client.
	limitKey string
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the error response.
		s.logger.DebugContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	if s.metrics != nil {
		s.metrics.ConnectionsTotal.WithLabelValues(connTypeWebSocket).Inc()
		s.metrics.ConnectionsOpen.WithLabelValues(connTypeWebSocket).Inc()
		defer s.metrics.ConnectionsOpen.WithLabelValues(connTypeWebSocket).Dec()
	}

	c := &wsConn{
		conn:     conn,
		session:  session,
		sub:      s.hub.Subscribe(session.AccountID),
		direct:   make(chan realtime.Event, wsDirectBuffer),
		limitKey: clientIP(r) + " /api/action",
	}
	defer c.sub.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s.logger.InfoContext(ctx, "websocket connected", "account_id", session.AccountID.String())

	// The subscription is open before the snapshot is read, so no update
	// between the two can be missed.
	if snap, err := s.game.Snapshot(ctx, session.AccountID); err != nil {
		status, message := publicError(err)
		if status == http.StatusInternalServerError {
			errutil.LogError(s.logger, "websocket snapshot failed", err)
		}
		c.direct <- errorEvent(message)
	} else {
		c.direct <- realtime.Event{Name: realtime.EventCharacterUpdate, Data: snap.Character}
		c.direct <- realtime.Event{Name: realtime.EventLogsUpdate, Data: snap.Logs}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writePump(ctx, cancel, c)
	}()

	s.readPump(ctx, c)
	cancel()
	<-done

	s.logger.InfoContext(r.Context(), "websocket disconnected", "account_id", session.AccountID.String())
}

func errorEvent(message string) realtime.Event {
	return realtime.Event{Name: realtime.EventError, Data: realtime.ErrorData{Message: message}}
}

// writePump owns every write to the connection.
func (s *Server) writePump(ctx context.Context, cancel context.CancelFunc, c *wsConn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	write := func(ev realtime.Event) bool {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteJSON(ev); err != nil {
			cancel()
			return false
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(wsWriteWait))
			return
		case ev := <-c.direct:
			if !write(ev) {
				return
			}
		case ev, ok := <-c.sub.Events():
			if !ok {
				cancel()
				return
			}
			if !write(ev) {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				cancel()
				return
			}
		}
	}
}

// readPump handles client frames until the connection fails or closes.
func (s *Server) readPump(ctx context.Context, c *wsConn) {
	c.conn.SetReadLimit(wsMaxMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.DebugContext(ctx, "websocket read failed", "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		if reply, ok := s.handleClientMessage(ctx, c, data); !ok {
			select {
			case c.direct <- reply:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleClientMessage runs one client frame. Successful actions reach the
// client through the hub; it returns the error event to send otherwise.
func (s *Server) handleClientMessage(ctx context.Context, c *wsConn, data []byte) (realtime.Event, bool) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return errorEvent(msgInvalidBody), false
	}
	if msg.Type != MessageTypePerformAction {
		return errorEvent("Unknown message type"), false
	}
	msg.ActionType = action.Type(strings.TrimSpace(string(msg.ActionType)))
	if msg.ActionType == "" {
		return errorEvent(msgActionRequired), false
	}
	if s.limiter != nil {
		if allowed, _ := s.limiter.Allow(c.limitKey); !allowed {
			return errorEvent(msgRateLimited), false
		}
	}

	res, err := s.game.Perform(ctx, c.session.AccountID, action.Request{Type: msg.ActionType, Params: msg.ActionData})
	if err != nil {
		status, message := publicError(err)
		if status == http.StatusInternalServerError {
			errutil.LogError(s.logger, "websocket action failed", err,
				"account_id", c.session.AccountID.String())
		}
		return errorEvent(message), false
	}
	if !res.Outcome.Success {
		return errorEvent(res.Outcome.Message), false
	}
	return realtime.Event{}, true
}
