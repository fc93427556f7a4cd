// Package cartsync propagates cart mutations to the remote cart store with
// debouncing and falls back to the local cache when the remote is
// unreachable.
package cartsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"foodkart/internal/cart"
	"foodkart/internal/model"

	"github.com/rs/zerolog"
)

// RemoteCart is the server-side pending cart.
type RemoteCart interface {
	// Get returns the stored cart, or nil when the user has none.
	Get(ctx context.Context, ownerID string) (*model.CartSnapshot, error)
	// Put replaces the stored cart with snapshot.
	Put(ctx context.Context, snapshot model.CartSnapshot) error
}

// FallbackCache is the device-local copy of the cart.
type FallbackCache interface {
	Load(ctx context.Context, ownerID string) (*model.CartSnapshot, error)
	Save(ctx context.Context, snapshot model.CartSnapshot) error
	Delete(ctx context.Context, ownerID string) error
}

// Config controls sync timing.
type Config struct {
	// Debounce is the quiet period after the last mutation before a sync.
	Debounce time.Duration
	// Timeout bounds each remote and local call.
	Timeout time.Duration
}

// DefaultConfig returns the production timing.
func DefaultConfig() Config {
	return Config{
		Debounce: time.Second,
		Timeout:  10 * time.Second,
	}
}

// SyncState describes the sync progress of the session.
type SyncState struct {
	PendingChange     bool
	LastSyncAttemptAt time.Time
	LastSyncedAt      time.Time
	LastError         error
	UsingFallback     bool
}

// Scheduler debounces cart mutations into remote puts. At most one put is in
// flight at a time and intermediate cart states are never queued: each put
// sends the cart as it is when the put starts.
type Scheduler struct {
	store  *cart.Store
	remote RemoteCart
	cache  FallbackCache
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time

	mu    sync.Mutex
	state SyncState
	timer *time.Timer
	// gen invalidates timers that fired while being replaced.
	gen        uint64
	inFlight   bool
	flightDone chan struct{}
	// deferred is set when the window expired during a put.
	deferred bool
	// wroteFallback is set once this scheduler wrote a local entry that a
	// later successful put should remove.
	wroteFallback bool
	closed        bool
}

// NewScheduler creates a scheduler and subscribes it to store.
func NewScheduler(store *cart.Store, remote RemoteCart, cache FallbackCache, cfg Config, logger zerolog.Logger) *Scheduler {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultConfig().Debounce
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	s := &Scheduler{
		store:  store,
		remote: remote,
		cache:  cache,
		cfg:    cfg,
		logger: logger.With().Str("component", "cart-sync").Str("owner_id", store.OwnerID()).Logger(),
		now:    time.Now,
	}
	store.Subscribe(s.onChange)
	return s
}

// Start restores the cart at session start. The remote cart wins when it is
// reachable; otherwise the local copy is loaded and a sync is scheduled
// right away. If neither source can be read an error is returned and the
// session continues with an empty cart.
func (s *Scheduler) Start(ctx context.Context) error {
	owner := s.store.OwnerID()

	getCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	remote, err := s.remote.Get(getCtx, owner)
	cancel()
	if err == nil {
		if remote != nil && !remote.IsEmpty() {
			remote.OwnerID = owner
			s.store.Load(*remote)
			s.logger.Info().Int("lines", len(remote.Lines)).Msg("cart restored from remote")
		}
		// The remote copy is authoritative; an older local copy must not
		// resurface in a later offline session.
		if derr := s.cache.Delete(ctx, owner); derr != nil {
			s.logger.Warn().Err(derr).Msg("failed to drop local cart copy")
		}
		return nil
	}

	s.logger.Warn().Err(err).Msg("remote cart unreachable, trying local copy")

	local, cerr := s.cache.Load(ctx, owner)
	if cerr != nil {
		s.mu.Lock()
		s.state.LastError = err
		s.mu.Unlock()
		return fmt.Errorf("failed to restore cart: %w", errors.Join(err, cerr))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastError = err
	if local == nil || local.IsEmpty() {
		return nil
	}

	local.OwnerID = owner
	s.store.Load(*local)
	s.state.UsingFallback = true
	s.state.PendingChange = true
	s.wroteFallback = true
	s.armLocked(0)

	s.logger.Info().Int("lines", len(local.Lines)).Msg("cart restored from local copy")
	return nil
}

// Flush cancels the debounce window and syncs now if a change is pending.
// It waits for an in-flight put first.
func (s *Scheduler) Flush(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil
		}
		if s.inFlight {
			done := s.flightDone
			s.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		s.disarmLocked()
		if !s.state.PendingChange {
			s.mu.Unlock()
			return nil
		}
		s.beginFlightLocked()
		s.mu.Unlock()

		return s.sync(ctx)
	}
}

// Close stops the debounce timer and waits for an in-flight put. Pending
// changes are not synced; call Flush first for that.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.disarmLocked()
	var done chan struct{}
	if s.inFlight {
		done = s.flightDone
	}
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

// State returns a copy of the current sync state.
func (s *Scheduler) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) onChange() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.state.PendingChange = true
	s.armLocked(s.cfg.Debounce)
}

func (s *Scheduler) armLocked(d time.Duration) {
	s.disarmLocked()
	gen := s.gen
	s.timer = time.AfterFunc(d, func() { s.fire(gen) })
}

func (s *Scheduler) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	if !s.state.PendingChange {
		s.mu.Unlock()
		return
	}
	if s.inFlight {
		s.deferred = true
		s.mu.Unlock()
		s.logger.Debug().Msg("sync window expired during put, deferring")
		return
	}
	s.beginFlightLocked()
	s.mu.Unlock()

	_ = s.sync(context.Background())
}

func (s *Scheduler) beginFlightLocked() {
	s.inFlight = true
	s.flightDone = make(chan struct{})
	s.state.LastSyncAttemptAt = s.now()
}

// sync sends the current snapshot. The caller must have begun a flight.
func (s *Scheduler) sync(ctx context.Context) error {
	snap := s.store.Snapshot()

	putCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	err := s.remote.Put(putCtx, snap)
	cancel()

	if err != nil {
		s.onFailure(ctx, snap, err)
	} else {
		s.onSuccess(ctx, snap)
	}

	s.mu.Lock()
	s.inFlight = false
	close(s.flightDone)
	if s.deferred {
		s.deferred = false
		if s.state.PendingChange && !s.closed {
			s.armLocked(s.cfg.Debounce)
		}
	}
	s.mu.Unlock()

	return err
}

func (s *Scheduler) onSuccess(ctx context.Context, snap model.CartSnapshot) {
	s.mu.Lock()
	s.state.LastSyncedAt = s.now()
	s.state.LastError = nil
	s.state.UsingFallback = false
	if s.store.Version() == snap.Version {
		s.state.PendingChange = false
	}
	dropLocal := s.wroteFallback
	s.wroteFallback = false
	s.mu.Unlock()

	s.logger.Debug().
		Uint64("version", snap.Version).
		Int("lines", len(snap.Lines)).
		Msg("cart synced")

	if dropLocal {
		delCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		if err := s.cache.Delete(delCtx, snap.OwnerID); err != nil {
			s.logger.Warn().Err(err).Msg("failed to remove stale local cart copy")
		}
	}
}

func (s *Scheduler) onFailure(ctx context.Context, snap model.CartSnapshot, putErr error) {
	s.logger.Warn().
		Err(putErr).
		Uint64("version", snap.Version).
		Msg("cart sync failed, saving local copy")

	saveCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	saveErr := s.cache.Save(saveCtx, snap)
	cancel()
	if saveErr != nil {
		s.logger.Warn().Err(saveErr).Msg("failed to save local cart copy")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastError = putErr
	if saveErr == nil {
		s.state.UsingFallback = true
		s.wroteFallback = true
	}
}
