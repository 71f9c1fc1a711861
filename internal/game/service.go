// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

// Package game applies player actions to persisted characters.
//
// Perform loads the character, asks the action processor for an outcome,
// applies the outcome's position, stats and log entry in one transaction,
// re-reads the character and publishes the fresh view to the account's
// realtime channel. Actions for one account are serialized so a snapshot
// cannot be applied on top of a concurrent change.
package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gridquest/gridquest/internal/action"
	"github.com/gridquest/gridquest/internal/realtime"
	"github.com/gridquest/gridquest/internal/world"
	"github.com/gridquest/gridquest/pkg/errutil"
)

var tracer = otel.Tracer("gridquest/game")

// Store is the storage the game service needs.
type Store interface {
	world.Transactor
	Characters() world.CharacterRepository
	Logs() world.ActionLog
}

// Publisher delivers events to an account's live connections.
type Publisher interface {
	Publish(accountID ulid.ULID, events ...realtime.Event)
}

// Snapshot is everything a client shows for its character.
type Snapshot struct {
	Character *world.Character    `json:"character"`
	Location  world.LocationView  `json:"location"`
	Actions   []action.Descriptor `json:"available_actions"`
	Logs      []*world.LogEntry   `json:"logs"`
}

// Events returns the realtime update events for the snapshot, in push order.
func (s *Snapshot) Events() []realtime.Event {
	return []realtime.Event{
		{Name: realtime.EventCharacterUpdate, Data: s.Character},
		{Name: realtime.EventLocationUpdate, Data: s.Location},
		{Name: realtime.EventActionsUpdate, Data: s.Actions},
		{Name: realtime.EventLogsUpdate, Data: s.Logs},
	}
}

// Result is the outcome of Perform plus the post-action snapshot.
type Result struct {
	Outcome  action.Outcome
	Snapshot *Snapshot
}

// Service runs actions against stored characters.
type Service struct {
	store     Store
	dir       *world.Directory
	processor *action.Processor
	catalog   *action.Catalog
	publisher Publisher
	metrics   *Metrics
	logger    *slog.Logger
	locks     *keyedMutex
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where successful actions are published.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the action metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a game service over the store and world.
func NewService(store Store, dir *world.Directory, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, oops.Code("GAME_INVALID_SERVICE").Errorf("store is required")
	}
	if dir == nil {
		return nil, oops.Code("GAME_INVALID_SERVICE").Errorf("location directory is required")
	}
	s := &Service{
		store:     store,
		dir:       dir,
		processor: action.NewProcessor(dir),
		catalog:   action.NewCatalog(dir),
		logger:    slog.Default(),
		locks:     newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Perform runs one action for the account's character.
//
// Rejected actions are returned as a Result with Outcome.Success false and
// change nothing. An error means storage failed; in that case nothing was
// applied unless the failure happened while re-reading after commit.
func (s *Service) Perform(ctx context.Context, accountID ulid.ULID, req action.Request) (res *Result, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "game.perform",
		trace.WithAttributes(
			attribute.String("action.type", string(req.Type)),
			attribute.String("account.id", accountID.String()),
		),
	)
	defer func() {
		result := ResultError
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case res.Outcome.Success:
			result = ResultSuccess
		default:
			result = ResultRejected
			span.SetAttributes(attribute.String("action.reason", string(res.Outcome.Reason)))
		}
		s.metrics.record(req.Type, result, time.Since(start))
		span.End()
	}()

	unlock := s.locks.Lock(accountID)
	defer unlock()

	char, err := s.store.Characters().GetByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("character.id", char.ID.String()))

	outcome := s.processor.Process(*char, req.Type, req.Params)
	if outcome.Success && outcome.Mutates() {
		if err := s.apply(ctx, char.ID, req.Type, outcome); err != nil {
			return nil, err
		}
	}

	snap, err := s.Snapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if outcome.Success && s.publisher != nil {
		events := append(snap.Events(), realtime.Event{
			Name: realtime.EventMessage,
			Data: realtime.MessageData{Text: outcome.Message},
		})
		s.publisher.Publish(accountID, events...)
	}

	s.logger.DebugContext(ctx, "action processed",
		"account_id", accountID.String(),
		"character_id", char.ID.String(),
		"action", string(req.Type),
		"success", outcome.Success,
		"reason", string(outcome.Reason),
	)
	return &Result{Outcome: outcome, Snapshot: snap}, nil
}

// apply writes the outcome's deltas and its log entry in one transaction.
func (s *Service) apply(ctx context.Context, characterID ulid.ULID, t action.Type, o action.Outcome) error {
	err := s.store.InTransaction(ctx, func(ctx context.Context) error {
		if o.Position != nil {
			pos := world.Position{X: o.Position.X, Y: o.Position.Y, InsideBuilding: o.Position.InsideBuilding}
			if err := s.store.Characters().UpdatePosition(ctx, characterID, pos); err != nil {
				return err
			}
		}
		if o.Stats != nil {
			update := world.StatsUpdate{
				Health:     o.Stats.Health,
				MP:         o.Stats.MP,
				AP:         o.Stats.AP,
				Experience: o.Stats.Experience,
			}
			if err := s.store.Characters().UpdateStats(ctx, characterID, update); err != nil {
				return err
			}
		}
		return s.store.Logs().Append(ctx, world.NewLogEntry(characterID, string(t), o.LogMessage))
	})
	if err != nil {
		errutil.LogError(s.logger, "action apply failed", err,
			"character_id", characterID.String(),
			"action", string(t))
		return oops.Code("ACTION_APPLY_FAILED").
			With("character_id", characterID.String()).
			With("action", string(t)).
			Wrap(err)
	}
	return nil
}

// Snapshot reads the account's character and derives its location view,
// available actions and recent logs.
func (s *Service) Snapshot(ctx context.Context, accountID ulid.ULID) (*Snapshot, error) {
	char, err := s.store.Characters().GetByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	logs, err := s.store.Logs().Recent(ctx, char.ID, world.DefaultLogLimit)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Character: char,
		Location:  s.dir.LocationInfo(char.X, char.Y, char.InsideBuilding),
		Actions:   s.catalog.Available(char.X, char.Y, char.InsideBuilding),
		Logs:      logs,
	}, nil
}

// Logs returns up to limit recent entries for the account's character.
func (s *Service) Logs(ctx context.Context, accountID ulid.ULID, limit int) ([]*world.LogEntry, error) {
	char, err := s.store.Characters().GetByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.store.Logs().Recent(ctx, char.ID, limit)
}

// Directory returns the world the service plays in.
func (s *Service) Directory() *world.Directory {
	return s.dir
}
