package core

import (
	"fmt"
	"sync"
	"time"
)

// SessionState is where a session is in its lifecycle.
type SessionState string

const (
	StateEmpty  SessionState = "empty"
	StateLoaded SessionState = "loaded"
	StateView   SessionState = "view"
)

// Session holds one user's base table and the filters and derived columns
// applied to it. All methods are safe for concurrent use and each one
// completes before the next starts, so a rendered view always reflects every
// earlier action. A method that fails leaves the session unchanged.
type Session struct {
	ID string

	mu       sync.Mutex
	base     *Table
	state    ViewState
	view     *View
	loadedAt time.Time
	created  time.Time
	lastSeen time.Time
	rec      Recorder
}

func newSession(id string, now time.Time, rec Recorder) *Session {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Session{ID: id, created: now, lastSeen: now, rec: rec}
}

// NewSession creates a standalone session, for callers without a store.
func NewSession(id string) *Session {
	return newSession(id, time.Now(), nil)
}

// Load replaces the base table and clears all filters and derived columns.
func (s *Session) Load(t *Table) (*View, error) {
	if t == nil {
		return nil, ErrNoTable
	}
	view, err := BuildView(t, ViewState{})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = t
	s.state = ViewState{}
	s.view = view
	s.loadedAt = time.Now()
	return view, nil
}

// View returns the current view.
func (s *Session) View() (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return nil, ErrNoTable
	}
	return s.view, nil
}

// State reports the lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() SessionState {
	switch {
	case s.base == nil:
		return StateEmpty
	case s.state.IsZero():
		return StateLoaded
	default:
		return StateView
	}
}

// update applies mutate to a copy of the view state and installs it only if
// the resulting view builds.
func (s *Session) update(action string, mutate func(*ViewState) error) (*View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := s.updateLocked(mutate)
	s.rec.Action(action, err)
	return view, err
}

func (s *Session) updateLocked(mutate func(*ViewState) error) (*View, error) {
	if s.base == nil {
		return nil, ErrNoTable
	}
	next := s.state.Clone()
	if err := mutate(&next); err != nil {
		return nil, err
	}
	view, err := BuildView(s.base, next)
	if err != nil {
		return nil, err
	}
	s.state = next
	s.view = view
	return view, nil
}

// SetEquality keeps rows whose column value is one of values.
// An empty list removes the filter on that column.
func (s *Session) SetEquality(column string, values []string) (*View, error) {
	return s.update("set_equality", func(st *ViewState) error {
		name, err := s.resolveColumn(column)
		if err != nil {
			return err
		}
		st.Filters.SetEquality(name, values)
		return nil
	})
}

// SetSearch keeps rows whose column text contains term.
// An empty term removes the search on that column.
func (s *Session) SetSearch(column, term string, caseInsensitive bool) (*View, error) {
	return s.update("set_search", func(st *ViewState) error {
		name, err := s.resolveColumn(column)
		if err != nil {
			return err
		}
		st.Filters.SetSearch(name, term, caseInsensitive)
		return nil
	})
}

// ClearEquality removes the equality filter on column, if any.
func (s *Session) ClearEquality(column string) (*View, error) {
	return s.update("clear_equality", func(st *ViewState) error {
		st.Filters.ClearEquality(s.canonicalColumn(column))
		return nil
	})
}

// ClearSearch removes the search on column, if any.
func (s *Session) ClearSearch(column string) (*View, error) {
	return s.update("clear_search", func(st *ViewState) error {
		st.Filters.ClearSearch(s.canonicalColumn(column))
		return nil
	})
}

// ClearFilters removes every filter but keeps derived columns.
func (s *Session) ClearFilters() (*View, error) {
	return s.update("clear_filters", func(st *ViewState) error {
		st.Filters.Clear()
		return nil
	})
}

// AddDerivation appends a derived column. Type mismatches and name clashes
// are rejected without touching the session. Operand names are matched the
// way filters match them.
func (s *Session) AddDerivation(d Derivation) (*View, DeriveStats, error) {
	d = d.normalize()
	view, err := s.update("derive", func(st *ViewState) error {
		d.Left = s.canonicalColumn(d.Left)
		d.Right = s.canonicalColumn(d.Right)
		if err := ValidateDerivation(s.view.Full, d); err != nil {
			return err
		}
		st.Derivations = append(st.Derivations, d)
		return nil
	})
	if err != nil {
		return nil, DeriveStats{}, err
	}
	return view, view.Stats[d.Name], nil
}

// RemoveDerivation drops a derived column together with every later
// derivation that depends on it and every filter on a dropped column.
func (s *Session) RemoveDerivation(name string) (*View, error) {
	return s.update("remove_derivation", func(st *ViewState) error {
		found := false
		for _, d := range st.Derivations {
			if d.Name == name {
				found = true
				break
			}
		}
		if !found {
			return unknownColumn(name)
		}

		dropped := map[string]struct{}{name: {}}
		kept := st.Derivations[:0:0]
		for _, d := range st.Derivations {
			_, self := dropped[d.Name]
			_, l := dropped[d.Left]
			_, r := dropped[d.Right]
			if self || l || r {
				dropped[d.Name] = struct{}{}
				continue
			}
			kept = append(kept, d)
		}
		st.Derivations = kept
		st.Filters.DropColumns(dropped)
		return nil
	})
}

// Reset clears filters and derived columns, returning to the uploaded table.
func (s *Session) Reset() (*View, error) {
	return s.update("reset", func(st *ViewState) error {
		*st = ViewState{}
		return nil
	})
}

// resolveColumn maps a user-typed column name onto the view's own spelling:
// exact first, then ignoring case. Called with s.mu held.
func (s *Session) resolveColumn(column string) (string, error) {
	name, ok := s.view.Full.ResolveColumn(column)
	if !ok {
		return "", unknownColumn(column)
	}
	return name, nil
}

// canonicalColumn is resolveColumn for callers that pass unknown names
// through unchanged.
func (s *Session) canonicalColumn(column string) string {
	if name, ok := s.view.Full.ResolveColumn(column); ok {
		return name
	}
	return column
}

// SessionSnapshot is a read-only summary for templates and the JSON API.
type SessionSnapshot struct {
	ID          string       `json:"id"`
	State       SessionState `json:"state"`
	FileName    string       `json:"file_name,omitempty"`
	TotalRows   int          `json:"total_rows"`
	VisibleRows int          `json:"visible_rows"`
	Columns     []Column     `json:"columns,omitempty"`
	ViewState   ViewState    `json:"view_state"`
	LoadedAt    time.Time    `json:"loaded_at,omitempty"`
}

// Snapshot captures the session without holding its lock afterwards.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{ID: s.ID, State: s.stateLocked()}
	if s.view == nil {
		return snap
	}
	snap.FileName = s.base.Name()
	snap.TotalRows = s.view.Total()
	snap.VisibleRows = s.view.Visible()
	snap.Columns = s.view.Table.Columns()
	snap.ViewState = s.state.Clone()
	snap.LoadedAt = s.loadedAt
	return snap
}

// String implements fmt.Stringer for log lines.
func (s SessionSnapshot) String() string {
	return fmt.Sprintf("session %s (%s, %d/%d rows)", s.ID, s.State, s.VisibleRows, s.TotalRows)
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen) > ttl
}
