// Package scheduler runs commands later through the dispatcher. Scheduled
// work never shares the cancellation scope of the code that scheduled it.
// Command types registered with Persist are written to storage and picked
// up again by Resume after a restart.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"

	"github.com/keshon/server-babel/internal/storage"
	"github.com/keshon/server-babel/pkg/cmd"
	"github.com/keshon/server-babel/pkg/jobmgr"
)

var ErrNegativeDelay = errors.New("scheduler: negative delay")

// Sender executes a command. *cmd.Dispatcher satisfies it.
type Sender interface {
	SendAny(ctx context.Context, command any) (any, error)
}

// Store persists pending entries. *storage.Storage satisfies it.
type Store interface {
	SavePending(entry storage.PendingEntry) error
	DeletePending(id string) error
	ListPending() ([]storage.PendingEntry, error)
}

type Scheduler struct {
	logger zerolog.Logger
	jobs   *jobmgr.Manager
	sender Sender
	store  Store

	mu       sync.RWMutex
	kinds    map[reflect.Type]string
	decoders map[string]func(json.RawMessage) (any, error)
}

// New returns a Scheduler. store may be nil, in which case nothing is persisted.
func New(logger zerolog.Logger, jobs *jobmgr.Manager, sender Sender, store Store) *Scheduler {
	return &Scheduler{
		logger:   logger.With().Str("component", "scheduler").Logger(),
		jobs:     jobs,
		sender:   sender,
		store:    store,
		kinds:    make(map[reflect.Type]string),
		decoders: make(map[string]func(json.RawMessage) (any, error)),
	}
}

// Persist marks command type C as durable under kind. C must round-trip
// through encoding/json.
func Persist[C any](s *Scheduler, kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds[reflect.TypeFor[C]()] = kind
	s.decoders[kind] = func(raw json.RawMessage) (any, error) {
		var c C
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Schedule sends command through the dispatcher after delay. Only ctx's
// values are kept; its cancellation does not reach the scheduled work.
func (s *Scheduler) Schedule(ctx context.Context, command any, delay time.Duration) error {
	if command == nil {
		return cmd.ErrNilCommand
	}
	if delay < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeDelay, delay)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("entry id: %w", err)
	}

	persisted, err := s.persist(id.String(), command, time.Now().Add(delay))
	if err != nil {
		s.logger.Warn().Err(err).Str("command", cmd.TypeName(command)).Msg("failed to persist scheduled command")
	}
	return s.start(ctx, id.String(), persisted, command, delay)
}

func (s *Scheduler) persist(id string, command any, runAt time.Time) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	s.mu.RLock()
	kind, ok := s.kinds[reflect.TypeOf(command)]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}

	payload, err := json.Marshal(command)
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", kind, err)
	}
	entry := storage.PendingEntry{ID: id, Kind: kind, RunAt: runAt, Payload: payload}
	if err := s.store.SavePending(entry); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Scheduler) start(ctx context.Context, id string, persisted bool, command any, delay time.Duration) error {
	name := "scheduled " + cmd.TypeName(command)
	_, err := s.jobs.Go(ctx, name, delay, func(ctx context.Context) error {
		_, err := s.sender.SendAny(ctx, command)
		if persisted && ctx.Err() == nil {
			if derr := s.store.DeletePending(id); derr != nil {
				s.logger.Warn().Err(derr).Str("entry", id).Msg("failed to delete pending entry")
			}
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.logger.Debug().Str("command", cmd.TypeName(command)).Str("entry", id).Dur("delay", delay).Msg("scheduled")
	return nil
}

// Resume restarts the persisted entries. Overdue entries run at once;
// entries of unknown kind or with a broken payload are dropped.
func (s *Scheduler) Resume(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}
	entries, err := s.store.ListPending()
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}

	resumed := 0
	for _, e := range entries {
		l := s.logger.With().Str("entry", e.ID).Str("kind", e.Kind).Logger()

		s.mu.RLock()
		decodeFn, ok := s.decoders[e.Kind]
		s.mu.RUnlock()
		if !ok {
			l.Warn().Msg("dropping pending entry of unknown kind")
			s.drop(e.ID)
			continue
		}

		command, err := decodeFn(e.Payload)
		if err != nil {
			l.Warn().Err(err).Msg("dropping undecodable pending entry")
			s.drop(e.ID)
			continue
		}

		delay := max(time.Until(e.RunAt), 0)
		if err := s.start(ctx, e.ID, true, command, delay); err != nil {
			return resumed, err
		}
		resumed++
	}

	if resumed > 0 {
		s.logger.Info().Int("entries", resumed).Msg("resumed scheduled commands")
	}
	return resumed, nil
}

func (s *Scheduler) drop(id string) {
	if err := s.store.DeletePending(id); err != nil {
		s.logger.Warn().Err(err).Str("entry", id).Msg("failed to delete pending entry")
	}
}
