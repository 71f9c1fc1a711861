// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

// Package realtime fans game events out to each account's live connections.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Event names pushed to clients.
const (
	EventCharacterUpdate = "character_update"
	EventLocationUpdate  = "location_update"
	EventActionsUpdate   = "actions_update"
	EventLogsUpdate      = "logs_update"
	EventMessage         = "message"
	EventError           = "error"
)

// DefaultBuffer is the per-subscription queue length.
const DefaultBuffer = 64

// Event is one message on an account channel. It is serialized as the
// websocket envelope {"event": ..., "data": ...}.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// MessageData is the payload of a message event.
type MessageData struct {
	Text string `json:"text"`
}

// ErrorData is the payload of an error event.
type ErrorData struct {
	Message string `json:"message"`
}

// Hub distributes events to subscribers grouped by account.
// Delivery is best effort: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[ulid.ULID]map[*Subscription]struct{}
	buffer int
	logger *slog.Logger

	dropped prometheus.Counter
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBuffer sets the per-subscription queue length.
func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithLogger sets the logger used for drop warnings.
func WithLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithRegistry registers the dropped-events counter with reg.
func WithRegistry(reg prometheus.Registerer) HubOption {
	return func(h *Hub) {
		if reg != nil {
			reg.MustRegister(h.dropped)
		}
	}
}

// NewHub creates a hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs:   make(map[ulid.ULID]map[*Subscription]struct{}),
		buffer: DefaultBuffer,
		logger: slog.Default(),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gridquest_realtime_dropped_total",
			Help: "Events dropped because a subscriber buffer was full",
		}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscription receives the events published to one account.
type Subscription struct {
	hub       *Hub
	accountID ulid.ULID
	ch        chan Event
	once      sync.Once
}

// Events returns the receive channel. It is closed by Close.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// AccountID returns the subscribed account.
func (s *Subscription) AccountID() ulid.ULID {
	return s.accountID
}

// Close unsubscribes and closes the channel. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Subscribe opens a subscription for the account's channel.
func (h *Hub) Subscribe(accountID ulid.ULID) *Subscription {
	sub := &Subscription{hub: h, accountID: accountID, ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[accountID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[accountID] = set
	}
	set[sub] = struct{}{}
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[sub.accountID]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.accountID)
	}
	close(sub.ch)
}

// Publish sends events, in order, to every subscription of the account.
// It never blocks.
func (h *Hub) Publish(accountID ulid.ULID, events ...Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[accountID] {
		for _, ev := range events {
			select {
			case sub.ch <- ev:
			default:
				h.dropped.Inc()
				h.logger.Warn("event dropped: subscriber buffer full",
					"account_id", accountID.String(),
					"event", ev.Name,
				)
			}
		}
	}
}

// SubscriberCount returns the number of open subscriptions for the account.
func (h *Hub) SubscriberCount(accountID ulid.ULID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[accountID])
}

// Dropped returns the dropped-events counter.
func (h *Hub) Dropped() prometheus.Counter {
	return h.dropped
}
