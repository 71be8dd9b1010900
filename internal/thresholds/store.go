package thresholds

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrPersist wraps failures to write an accepted update to disk. The update itself
// has already been applied in memory, but observers have not been notified.
var ErrPersist = errors.New("persist thresholds")

// Observer is notified after every accepted update.
type Observer interface {
	ThresholdsUpdated(cfg Config) error
}

// ObserverFunc adapts a function to Observer. Function values have no identity,
// so each Subscribe call with one registers a new subscription.
type ObserverFunc func(cfg Config) error

func (f ObserverFunc) ThresholdsUpdated(cfg Config) error { return f(cfg) }

// Subscription identifies one registered observer.
type Subscription struct {
	ID uuid.UUID
}

type subscriber struct {
	id  uuid.UUID
	obs Observer
}

// Store owns the current thresholds. It is safe for concurrent use.
type Store struct {
	path string
	log  zerolog.Logger

	current  atomic.Pointer[Config]
	updateMu sync.Mutex

	mu   sync.Mutex
	subs []subscriber
}

// Open loads the thresholds at path. A missing file is created with the defaults;
// an unreadable or invalid one is replaced by them.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	s := &Store{path: path, log: logger}
	cfg, err := Load(path)
	switch {
	case err == nil:
		s.log.Debug().Str("path", path).Msg("thresholds loaded")
	case errors.Is(err, fs.ErrNotExist):
		cfg = Default()
		s.log.Info().Str("path", path).Msg("no thresholds file, writing defaults")
		s.persistDefaults(cfg)
	default:
		cfg = Default()
		s.log.Warn().Err(err).Str("path", path).Msg("thresholds file unusable, resetting to defaults")
		s.persistDefaults(cfg)
	}
	s.current.Store(&cfg)
	return s, nil
}

func (s *Store) persistDefaults(cfg Config) {
	if err := Save(s.path, cfg); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("could not write default thresholds")
	}
}

// NewStore returns a store that keeps cfg in memory only.
func NewStore(cfg Config, logger zerolog.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Store{log: logger}
	s.current.Store(&cfg)
	return s, nil
}

// Path returns the backing file, or "" for an in-memory store.
func (s *Store) Path() string { return s.path }

// Current returns a snapshot of the thresholds.
func (s *Store) Current() Config { return *s.current.Load() }

// Update validates cfg, makes it current, persists it and then notifies every
// observer in registration order. Invalid configs are rejected and leave the store
// unchanged. A write failure keeps the in-memory value, skips the broadcast and is
// returned wrapped in ErrPersist. Observers may call Update themselves: the broadcast
// runs after the update lock is released.
func (s *Store) Update(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		s.log.Warn().Err(err).Msg("threshold update rejected")
		return err
	}
	if err := s.apply(cfg); err != nil {
		return err
	}
	s.log.Info().Interface("cct", cfg.CCT).Interface("percentage", cfg.Percentage).Msg("thresholds updated")
	s.notify(cfg)
	return nil
}

func (s *Store) apply(cfg Config) error {
	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	next := cfg
	s.current.Store(&next)
	if s.path == "" {
		return nil
	}
	if err := Save(s.path, cfg); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("threshold update applied but not saved")
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// ResetToDefault applies the built-in thresholds through Update.
func (s *Store) ResetToDefault() error {
	return s.Update(Default())
}

// Subscribe registers o. Registering the same observer twice returns the existing subscription.
func (s *Store) Subscribe(o Observer) Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sameObserver(sub.obs, o) {
			return Subscription{ID: sub.id}
		}
	}
	id := uuid.New()
	s.subs = append(s.subs, subscriber{id: id, obs: o})
	s.log.Debug().Str("subscription", id.String()).Int("observers", len(s.subs)).Msg("observer registered")
	return Subscription{ID: id}
}

// Unsubscribe removes a subscription; it reports whether one was removed.
func (s *Store) Unsubscribe(sub Subscription) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.subs {
		if cur.id == sub.ID {
			s.subs = slices.Delete(s.subs, i, i+1)
			return true
		}
	}
	return false
}

// Observers reports how many observers are registered.
func (s *Store) Observers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Store) notify(cfg Config) {
	s.mu.Lock()
	subs := slices.Clone(s.subs)
	s.mu.Unlock()
	for _, sub := range subs {
		s.deliver(sub, cfg)
	}
}

func (s *Store) deliver(sub subscriber, cfg Config) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("subscription", sub.id.String()).Interface("panic", r).Msg("threshold observer panicked")
		}
	}()
	if err := sub.obs.ThresholdsUpdated(cfg); err != nil {
		s.log.Warn().Err(err).Str("subscription", sub.id.String()).Msg("threshold observer failed")
	}
}

func sameObserver(a, b Observer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	return ta == tb && ta != nil && ta.Comparable() && a == b
}
