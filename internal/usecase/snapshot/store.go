package snapshot

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"calendar-assistant/internal/domain/calendar"
	"calendar-assistant/internal/pkg/clock"
	"calendar-assistant/internal/pkg/errs"
	"calendar-assistant/internal/usecase/shared"
)

const (
	DefaultMaxAge      = 5 * time.Minute
	DefaultCallTimeout = 10 * time.Second
)

type Options struct {
	MaxAge                 time.Duration
	CallTimeout            time.Duration
	MaxOccurrencesPerEvent int
}

type Key struct {
	UserID string
	Window calendar.Window
}

func (k Key) String() string {
	return k.UserID + "|" + k.Window.Key()
}

// slot holds the cached snapshot of one key. refreshMu admits one writer
// at a time; readers go through current without locking. Invalidation
// bumps gen before clearing current, and a refresh only keeps what it
// fetched while gen is unchanged.
type slot struct {
	key        Key
	refreshMu  sync.Mutex
	refreshing atomic.Bool
	gen        atomic.Uint64
	current    atomic.Pointer[calendar.Snapshot]
	lastAccess atomic.Int64
}

func (sl *slot) invalidate() bool {
	sl.gen.Add(1)
	return sl.current.Swap(nil) != nil
}

// Store caches calendar snapshots per (user, window). Refreshes of one key
// are serialized; refreshes of different keys never wait on each other.
type Store struct {
	gateway shared.CalendarGateway
	clock   clock.Clock
	logger  *slog.Logger
	opts    Options

	mu    sync.Mutex // guards slots
	slots map[string]*slot
}

func NewStore(gateway shared.CalendarGateway, clk clock.Clock, logger *slog.Logger, opts Options) *Store {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	return &Store{
		gateway: gateway,
		clock:   clk,
		logger:  logger.With(slog.String("component", "snapshot_store")),
		opts:    opts,
		slots:   make(map[string]*slot),
	}
}

func (s *Store) MaxAge() time.Duration {
	return s.opts.MaxAge
}

// Refresh fetches the user's events in window and atomically replaces the
// cached snapshot. On failure the previous snapshot stays in place. When
// the key is invalidated while the fetch is running, the fetched snapshot
// is returned but not cached.
func (s *Store) Refresh(ctx context.Context, userID string, window calendar.Window) (calendar.Snapshot, error) {
	sl := s.slotFor(Key{UserID: userID, Window: window})
	sl.refreshMu.Lock()
	defer sl.refreshMu.Unlock()

	sl.refreshing.Store(true)
	defer sl.refreshing.Store(false)
	gen := sl.gen.Load()

	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	started := s.clock.Now()
	events, err := s.gateway.FetchEvents(callCtx, userID, window)
	if err != nil {
		s.logger.Warn("snapshot refresh failed",
			slog.String("user_id", userID),
			slog.String("window", window.Key()),
			slog.String("error_kind", errs.Kind(err)),
			slog.Any("error", err))
		return calendar.Snapshot{}, errs.Wrap(err, "refresh snapshot")
	}

	expanded, invalid := calendar.ExpandRecurring(events, window, s.opts.MaxOccurrencesPerEvent)
	if len(invalid) > 0 {
		s.logger.Warn("events with unparseable recurrence kept as single occurrences",
			slog.String("user_id", userID),
			slog.Any("event_ids", invalid))
	}

	snap := calendar.NewSnapshot(userID, window, expanded, started)
	if !s.keep(sl, gen, &snap) {
		s.logger.Debug("snapshot invalidated during refresh; not cached",
			slog.String("user_id", userID),
			slog.String("window", window.Key()))
		return snap, nil
	}

	s.logger.Debug("snapshot refreshed",
		slog.String("user_id", userID),
		slog.String("window", window.Key()),
		slog.Int("events", snap.Len()))
	return snap, nil
}

// Get returns the cached snapshot or a *StaleDataError when none exists or
// it is older than the max age.
func (s *Store) Get(userID string, window calendar.Window) (calendar.Snapshot, error) {
	key := Key{UserID: userID, Window: window}
	sl, ok := s.lookup(key)
	if !ok {
		return calendar.Snapshot{}, &StaleDataError{UserID: userID, Window: window, MaxAge: s.opts.MaxAge, Missing: true}
	}
	return s.fresh(sl)
}

// GetOrRefresh serves a fresh cached snapshot and refreshes otherwise. A
// failed refresh surfaces as a *StaleDataError wrapping the cause.
func (s *Store) GetOrRefresh(ctx context.Context, userID string, window calendar.Window) (calendar.Snapshot, error) {
	snap, err := s.Get(userID, window)
	if err == nil {
		return snap, nil
	}

	snap, refreshErr := s.Refresh(ctx, userID, window)
	if refreshErr != nil {
		stale := &StaleDataError{UserID: userID, Window: window, MaxAge: s.opts.MaxAge, Missing: true, Cause: refreshErr}
		if sl, ok := s.lookup(Key{UserID: userID, Window: window}); ok {
			if prev := sl.current.Load(); prev != nil {
				stale.Missing = false
				stale.Age = prev.Age(s.clock.Now())
			}
		}
		return calendar.Snapshot{}, stale
	}
	return snap, nil
}

// keep caches snap unless the slot was invalidated since gen was read.
func (s *Store) keep(sl *slot, gen uint64, snap *calendar.Snapshot) bool {
	if sl.gen.Load() != gen {
		return false
	}
	sl.current.Store(snap)
	if sl.gen.Load() != gen {
		sl.current.CompareAndSwap(snap, nil)
		return false
	}
	return true
}

// InvalidateEvent drops every cached snapshot containing eventID and
// returns how many were dropped. Refreshes running at the time are not
// cached, since they may have read the event before it changed.
func (s *Store) InvalidateEvent(eventID string) int {
	dropped := 0
	for _, sl := range s.allSlots() {
		cur := sl.current.Load()
		switch {
		case cur != nil && cur.Contains(eventID):
			if sl.invalidate() {
				dropped++
			}
		case sl.refreshing.Load():
			sl.gen.Add(1)
		}
	}
	return dropped
}

// ApplyRemoteChange reacts to a change notification from the CRM. Cached
// snapshots holding the event are dropped, and when the event still exists
// so are the snapshots of all its participants, which covers new events.
func (s *Store) ApplyRemoteChange(ctx context.Context, eventID string) (int, error) {
	dropped := s.InvalidateEvent(eventID)

	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	ev, err := s.gateway.GetEvent(callCtx, eventID)
	if err != nil {
		if errs.Is(err, errs.ErrNotFound) {
			return dropped, nil
		}
		return dropped, errs.Wrapf(err, "look up changed event %s", eventID)
	}
	for _, p := range ev.Participants() {
		dropped += s.InvalidateUser(p)
	}
	s.logger.Debug("remote change applied",
		slog.String("event_id", eventID),
		slog.Int("dropped", dropped))
	return dropped, nil
}

// InvalidateUser drops every cached snapshot of userID.
func (s *Store) InvalidateUser(userID string) int {
	dropped := 0
	for _, sl := range s.allSlots() {
		if sl.key.UserID == userID && sl.invalidate() {
			dropped++
		}
	}
	return dropped
}

func (s *Store) Keys() []Key {
	slots := s.allSlots()
	keys := make([]Key, 0, len(slots))
	for _, sl := range slots {
		keys = append(keys, sl.key)
	}
	return keys
}

// RefreshAll refreshes every known key sequentially and reports how many
// refreshes failed.
func (s *Store) RefreshAll(ctx context.Context) (refreshed, failed int) {
	for _, key := range s.Keys() {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.Refresh(ctx, key.UserID, key.Window); err != nil {
			failed++
			continue
		}
		refreshed++
	}
	return refreshed, failed
}

// Prune forgets keys nobody read or refreshed within idle.
func (s *Store) Prune(idle time.Duration) int {
	cutoff := s.clock.Now().Add(-idle).UnixNano()

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, sl := range s.slots {
		if sl.lastAccess.Load() < cutoff {
			delete(s.slots, k)
			removed++
		}
	}
	return removed
}

func (s *Store) fresh(sl *slot) (calendar.Snapshot, error) {
	sl.lastAccess.Store(s.clock.Now().UnixNano())
	cur := sl.current.Load()
	if cur == nil {
		return calendar.Snapshot{}, &StaleDataError{UserID: sl.key.UserID, Window: sl.key.Window, MaxAge: s.opts.MaxAge, Missing: true}
	}
	if age := cur.Age(s.clock.Now()); age > s.opts.MaxAge {
		return calendar.Snapshot{}, &StaleDataError{UserID: sl.key.UserID, Window: sl.key.Window, Age: age, MaxAge: s.opts.MaxAge}
	}
	return *cur, nil
}

func (s *Store) lookup(key Key) (*slot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[key.String()]
	return sl, ok
}

func (s *Store) slotFor(key Key) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[key.String()]
	if !ok {
		sl = &slot{key: key}
		s.slots[key.String()] = sl
	}
	sl.lastAccess.Store(s.clock.Now().UnixNano())
	return sl
}

func (s *Store) allSlots() []*slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*slot, 0, len(s.slots))
	for _, sl := range s.slots {
		out = append(out, sl)
	}
	return out
}
