// Package session holds per-visitor dashboard state.
//
// A Session owns the base table loaded for one visitor, the role assignment
// derived from it, and the visitor's filter state. Sessions never share
// mutable state; each guards its own fields with a mutex because requests
// from one browser may arrive concurrently.
package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/eurometrics/internal/core"
	"github.com/JonMunkholm/eurometrics/internal/logging"
	"github.com/JonMunkholm/eurometrics/internal/source"
)

// Session is the state of one dashboard visitor.
type Session struct {
	ID string

	loader  source.Loader
	limiter *LoadLimiter

	mu       sync.Mutex
	loaded   bool
	base     *core.Table
	loadErr  error
	filter   *core.FilterState
	lastSeen time.Time
}

// State is a consistent snapshot of a session, taken under its lock.
type State struct {
	Base      *core.Table
	View      *core.Table
	Selection core.FilterSelection
	Regions   []string // every known region code
	Domain    core.YearRange
	HasDomain bool
	LoadErr   error // cached load failure, if any
}

// Selected reports whether a region is part of the selection.
func (s State) Selected(code string) bool {
	for _, r := range s.Selection.Regions {
		if r == code {
			return true
		}
	}
	return false
}

// ensureLoaded runs the loader once and caches the outcome, failure included.
// Must be called with s.mu held.
func (s *Session) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return s.loadErr
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		// The query never ran, so nothing is cached.
		return err
	}
	defer s.limiter.Release()

	start := time.Now()
	base, err := s.loader.Load(ctx)
	if base == nil {
		base = &core.Table{}
	}
	if err != nil && !errors.Is(err, core.ErrSourceUnavailable) {
		err = fmt.Errorf("%w: %v", core.ErrSourceUnavailable, err)
	}

	s.loaded = true
	s.base = base
	s.loadErr = err
	s.filter = core.NewFilterState(base)

	logger := logging.FromContext(ctx)
	if err != nil {
		logger.Error("base table load failed", "error", err)
	} else {
		logger.Info("base table loaded",
			"rows", base.Len(),
			"region_column", base.RegionColumn,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return err
}

// State returns the session snapshot, loading the base table on first use.
// A cached load failure is returned both as the error and in State.LoadErr.
func (s *Session) State(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = time.Now()
	if err := s.ensureLoaded(ctx); err != nil {
		if !s.loaded {
			return State{}, err
		}
		return State{Base: s.base, View: s.base, LoadErr: err}, err
	}
	return s.snapshot(), nil
}

func (s *Session) snapshot() State {
	st := State{
		Base:      s.base,
		View:      s.filter.CurrentView(),
		Selection: s.filter.Selection(),
		Regions:   s.filter.KnownRegions(),
	}
	st.Domain, st.HasDomain = s.filter.Domain()
	return st
}

// UpdateFilter applies fn to the filter state under the session lock.
// An error from fn leaves the state as fn left it; FilterState setters
// reject invalid input without mutating.
func (s *Session) UpdateFilter(ctx context.Context, fn func(*core.FilterState) error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = time.Now()
	if err := s.ensureLoaded(ctx); err != nil {
		return State{}, err
	}
	if err := fn(s.filter); err != nil {
		return s.snapshot(), err
	}
	return s.snapshot(), nil
}

// Reload discards the cached base table and filter state and loads again.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = false
	s.base, s.loadErr, s.filter = nil, nil, nil
	return s.ensureLoaded(ctx)
}

// LastSeen returns when the session was last used.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// Store keeps sessions by ID.
type Store struct {
	loader  source.Loader
	limiter *LoadLimiter

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty store whose sessions load through loader.
func NewStore(loader source.Loader, limiter *LoadLimiter) *Store {
	return &Store{
		loader:   loader,
		limiter:  limiter,
		sessions: make(map[string]*Session),
	}
}

// Get returns a live session by ID.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Create registers a new session and eagerly loads its base table.
// The session is returned even when the load fails; the failure is cached
// and reported by State.
func (st *Store) Create(ctx context.Context) *Session {
	s := &Session{
		ID:       uuid.NewString(),
		loader:   st.loader,
		limiter:  st.limiter,
		lastSeen: time.Now(),
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	ctx = logging.ContextWithSession(ctx, s.ID)
	s.mu.Lock()
	_ = s.ensureLoaded(ctx)
	s.mu.Unlock()

	logging.FromContext(ctx).Debug("session created")
	return s
}

// Delete removes a session.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle since before cutoff and returns how many
// were evicted.
func (st *Store) Sweep(cutoff time.Time) int {
	// A session lock can be held for a whole load, so session locks are
	// never taken while st.mu is held.
	st.mu.RLock()
	candidates := maps.Clone(st.sessions)
	st.mu.RUnlock()

	var idle []string
	for id, s := range candidates {
		if s.LastSeen().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	if len(idle) == 0 {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	evicted := 0
	for _, id := range idle {
		if st.sessions[id] == candidates[id] {
			delete(st.sessions, id)
			evicted++
		}
	}
	return evicted
}
