package core

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordedAction struct {
	name string
	err  error
}

type fakeRecorder struct {
	mu      sync.Mutex
	actions []recordedAction
	uploads int
	active  int
}

func (r *fakeRecorder) UploadFinished(FileFormat, int, time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads++
}

func (r *fakeRecorder) Action(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, recordedAction{name, err})
}

func (r *fakeRecorder) Exported(FileFormat, int) {}

func (r *fakeRecorder) SessionsActive(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = n
}

func loadedSession(t *testing.T, data string) *Session {
	t.Helper()
	s := NewSession("test")
	if _, err := s.Load(mustParseCSV(t, data)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return s
}

func TestSession_EmptyRejectsActions(t *testing.T) {
	s := NewSession("empty")

	if s.State() != StateEmpty {
		t.Errorf("State() = %s, want empty", s.State())
	}
	if _, err := s.View(); !errors.Is(err, ErrNoTable) {
		t.Errorf("View() error = %v, want ErrNoTable", err)
	}
	if _, err := s.SetSearch("a", "x", false); !errors.Is(err, ErrNoTable) {
		t.Errorf("SetSearch() error = %v, want ErrNoTable", err)
	}
	if _, _, err := s.AddDerivation(Derivation{Name: "R", Left: "A", Op: OpAdd, Right: "B"}); !errors.Is(err, ErrNoTable) {
		t.Errorf("AddDerivation() error = %v, want ErrNoTable", err)
	}
}

func TestSession_StateTransitions(t *testing.T) {
	s := loadedSession(t, numbersCSV)
	if s.State() != StateLoaded {
		t.Fatalf("after Load, State() = %s, want loaded", s.State())
	}

	if _, err := s.SetEquality("Label", []string{"x"}); err != nil {
		t.Fatalf("SetEquality failed: %v", err)
	}
	if s.State() != StateView {
		t.Errorf("after filter, State() = %s, want view", s.State())
	}

	view, err := s.Reset()
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if s.State() != StateLoaded {
		t.Errorf("after Reset, State() = %s, want loaded", s.State())
	}
	if view.Visible() != 3 {
		t.Errorf("after Reset, Visible() = %d, want 3", view.Visible())
	}
}

func TestSession_LoadResetsFiltersAndDerivations(t *testing.T) {
	s := loadedSession(t, numbersCSV)
	if _, _, err := s.AddDerivation(Derivation{Name: "Sum", Left: "A", Op: OpAdd, Right: "B"}); err != nil {
		t.Fatalf("AddDerivation failed: %v", err)
	}
	if _, err := s.SetSearch("Label", "x", false); err != nil {
		t.Fatalf("SetSearch failed: %v", err)
	}

	view, err := s.Load(mustParseCSV(t, "A,B\n9,9\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	snap := s.Snapshot()
	if !snap.ViewState.IsZero() {
		t.Errorf("ViewState after new upload = %+v, want empty", snap.ViewState)
	}
	if view.Table.HasColumn("Sum") {
		t.Error("derived column survived a new upload")
	}
	if snap.State != StateLoaded {
		t.Errorf("State = %s, want loaded", snap.State)
	}
}

func TestSession_TypeMismatchLeavesStateUnchanged(t *testing.T) {
	s := loadedSession(t, numbersCSV)
	if _, err := s.SetEquality("Label", []string{"x", "y"}); err != nil {
		t.Fatalf("SetEquality failed: %v", err)
	}

	before := s.Snapshot()
	beforeView, _ := s.View()

	_, _, err := s.AddDerivation(Derivation{Name: "Bad", Left: "A", Op: OpAdd, Right: "Label"})
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("AddDerivation() error = %v, want ErrTypeMismatch", err)
	}

	after := s.Snapshot()
	afterView, _ := s.View()
	if !reflect.DeepEqual(before, after) {
		t.Errorf("snapshot changed:\nbefore %+v\nafter  %+v", before, after)
	}
	if beforeView != afterView {
		t.Error("view was replaced by a failed action")
	}
}

func TestSession_UnknownColumnLeavesStateUnchanged(t *testing.T) {
	s := loadedSession(t, numbersCSV)
	before := s.Snapshot()

	if _, err := s.SetSearch("Nope", "x", false); !errors.Is(err, ErrUnknownColumn) {
		t.Fatalf("SetSearch() error = %v, want ErrUnknownColumn", err)
	}
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Error("failed SetSearch changed the session")
	}
}

func TestSession_FilterOnDerivedColumn(t *testing.T) {
	s := loadedSession(t, numbersCSV)

	view, stats, err := s.AddDerivation(Derivation{Name: "Total", Left: "A", Op: "+", Right: "B"})
	if err != nil {
		t.Fatalf("AddDerivation failed: %v", err)
	}
	if stats != (DeriveStats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}
	if got := column(t, view.Table, "Total"); !reflect.DeepEqual(got, []string{"5", "7", "9"}) {
		t.Errorf("Total = %q", got)
	}

	view, err = s.SetEquality("Total", []string{"7"})
	if err != nil {
		t.Fatalf("SetEquality failed: %v", err)
	}
	if got := column(t, view.Table, "Label"); !reflect.DeepEqual(got, []string{"y"}) {
		t.Errorf("Label = %q, want [y]", got)
	}

	// options still come from every row
	opts, _, _ := view.Full.Distinct("Total", 0)
	if len(opts) != 3 {
		t.Errorf("Distinct(Total) = %q, want 3 options", opts)
	}
}

func TestSession_ColumnNamesIgnoreCase(t *testing.T) {
	s := loadedSession(t, numbersCSV)

	view, err := s.SetEquality("label", []string{"x", "z"})
	if err != nil {
		t.Fatalf("SetEquality(label) failed: %v", err)
	}
	if got := column(t, view.Table, "A"); !reflect.DeepEqual(got, []string{"1", "3"}) {
		t.Errorf("A = %q, want [1 3]", got)
	}
	if _, ok := view.State.Filters.Equality("Label"); !ok {
		t.Errorf("filter stored as %+v, want it under the column's own name", view.State.Filters)
	}

	if _, err := s.SetSearch(" LABEL ", "x", false); err != nil {
		t.Fatalf("SetSearch(LABEL) failed: %v", err)
	}

	view, stats, err := s.AddDerivation(Derivation{Name: "Sum", Left: "a", Op: OpAdd, Right: "b"})
	if err != nil {
		t.Fatalf("AddDerivation(a + b) failed: %v", err)
	}
	if stats != (DeriveStats{}) {
		t.Errorf("stats = %+v, want zero", stats)
	}
	if got := column(t, view.Table, "Sum"); !reflect.DeepEqual(got, []string{"5"}) {
		t.Errorf("Sum = %q, want [5]", got)
	}
	if d := view.State.Derivations[0]; d.Left != "A" || d.Right != "B" {
		t.Errorf("derivation operands = %s, %s, want A, B", d.Left, d.Right)
	}

	view, err = s.ClearSearch("label")
	if err != nil {
		t.Fatalf("ClearSearch(label) failed: %v", err)
	}
	if _, ok := view.State.Filters.Search("Label"); ok {
		t.Error("search on Label still set after ClearSearch(label)")
	}
}

func TestSession_AddDerivationReportsDivByZero(t *testing.T) {
	s := loadedSession(t, numbersCSV)
	view, stats, err := s.AddDerivation(Derivation{Name: "Q", Left: "A", Op: OpDivide, Right: "C"})
	if err != nil {
		t.Fatalf("AddDerivation failed: %v", err)
	}
	if stats.DivByZero != 1 || view.DivByZero() != 1 {
		t.Errorf("DivByZero = %d / %d, want 1", stats.DivByZero, view.DivByZero())
	}
}

func TestSession_RemoveDerivationCascades(t *testing.T) {
	s := loadedSession(t, numbersCSV)

	steps := []Derivation{
		{Name: "X", Left: "A", Op: OpAdd, Right: "B"},
		{Name: "Y", Left: "X", Op: OpMultiply, Right: "C"},
		{Name: "Z", Left: "A", Op: OpSubtract, Right: "B"},
	}
	for _, d := range steps {
		if _, _, err := s.AddDerivation(d); err != nil {
			t.Fatalf("AddDerivation(%s) failed: %v", d.Name, err)
		}
	}
	if _, err := s.SetEquality("Y", []string{"0"}); err != nil {
		t.Fatalf("SetEquality failed: %v", err)
	}
	if _, err := s.SetSearch("Label", "x", false); err != nil {
		t.Fatalf("SetSearch failed: %v", err)
	}

	view, err := s.RemoveDerivation("X")
	if err != nil {
		t.Fatalf("RemoveDerivation failed: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.ViewState.Derivations) != 1 || snap.ViewState.Derivations[0].Name != "Z" {
		t.Errorf("Derivations = %+v, want only Z", snap.ViewState.Derivations)
	}
	if len(snap.ViewState.Filters.Equalities) != 0 {
		t.Errorf("filter on removed column survived: %+v", snap.ViewState.Filters.Equalities)
	}
	if len(snap.ViewState.Filters.Searches) != 1 {
		t.Errorf("unrelated search was dropped: %+v", snap.ViewState.Filters.Searches)
	}
	if view.Table.HasColumn("X") || view.Table.HasColumn("Y") {
		t.Errorf("columns = %q, want X and Y gone", view.Table.ColumnNames())
	}

	if _, err := s.RemoveDerivation("A"); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("RemoveDerivation(base column) error = %v, want ErrUnknownColumn", err)
	}
}

func TestSession_ClearFilters(t *testing.T) {
	s := loadedSession(t, produceCSV)
	_, _ = s.SetEquality("region", []string{"East"})
	_, _ = s.SetSearch("product", "Ch", false)

	view, err := s.ClearSearch("product")
	if err != nil {
		t.Fatalf("ClearSearch failed: %v", err)
	}
	if view.Visible() != 2 {
		t.Errorf("after ClearSearch, Visible() = %d, want 2", view.Visible())
	}

	view, err = s.ClearFilters()
	if err != nil {
		t.Fatalf("ClearFilters failed: %v", err)
	}
	if view.Visible() != 4 || view.IsEmptyResult() {
		t.Errorf("after ClearFilters, Visible() = %d, want 4", view.Visible())
	}
}

func TestSession_EmptyResultIsNotAnError(t *testing.T) {
	s := loadedSession(t, produceCSV)
	view, err := s.SetSearch("product", "kiwi", true)
	if err != nil {
		t.Fatalf("SetSearch failed: %v", err)
	}
	if !view.IsEmptyResult() {
		t.Error("IsEmptyResult() = false, want true")
	}
	if view.Table.Width() != 3 {
		t.Errorf("Width() = %d, want 3", view.Table.Width())
	}
}

func TestSession_RecordsActions(t *testing.T) {
	rec := &fakeRecorder{}
	store := NewSessionStore(time.Hour, 10, rec)
	s, err := store.Create()
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Load(mustParseCSV(t, produceCSV)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	_, _ = s.SetSearch("product", "a", false)
	_, _ = s.SetSearch("missing", "a", false)

	if len(rec.actions) != 2 {
		t.Fatalf("recorded %d actions, want 2", len(rec.actions))
	}
	if rec.actions[0].name != "set_search" || rec.actions[0].err != nil {
		t.Errorf("first action = %+v", rec.actions[0])
	}
	if rec.actions[1].err == nil {
		t.Error("second action should record its error")
	}
}

func TestSession_ConcurrentActionsSerialize(t *testing.T) {
	s := loadedSession(t, produceCSV)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = s.SetSearch("product", "a", true)
			} else {
				_, _ = s.ClearSearch("product")
			}
		}(i)
	}
	wg.Wait()

	view, _ := s.View()
	snap := s.Snapshot()
	_, searching := snap.ViewState.Filters.Search("product")
	want := 4
	if searching {
		want = 3
	}
	if view.Visible() != want {
		t.Errorf("Visible() = %d, want %d for search=%v", view.Visible(), want, searching)
	}
}

func TestSessionSnapshot_String(t *testing.T) {
	s := loadedSession(t, produceCSV)
	if got := s.Snapshot().String(); !strings.Contains(got, "4/4 rows") {
		t.Errorf("String() = %q", got)
	}
}
