package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuildView_NoTable(t *testing.T) {
	if _, err := BuildView(nil, ViewState{}); !errors.Is(err, ErrNoTable) {
		t.Errorf("BuildView(nil) error = %v, want ErrNoTable", err)
	}
}

func TestBuildView_DerivesThenFilters(t *testing.T) {
	base := mustParseCSV(t, numbersCSV)

	var state ViewState
	state.Derivations = []Derivation{
		{Name: "Sum", Left: "A", Op: OpAdd, Right: "B"},
		{Name: "Ratio", Left: "Sum", Op: OpDivide, Right: "C"},
	}
	state.Filters.SetSearch("Label", "x", false)

	view, err := BuildView(base, state)
	if err != nil {
		t.Fatalf("BuildView failed: %v", err)
	}

	if view.Full.Len() != 3 || view.Visible() != 1 || view.Total() != 3 {
		t.Errorf("full/visible/total = %d/%d/%d, want 3/1/3", view.Full.Len(), view.Visible(), view.Total())
	}
	if got := column(t, view.Full, "Ratio"); !reflect.DeepEqual(got, []string{"NaN", "3.5", ""}) {
		t.Errorf("Ratio = %q", got)
	}
	if view.DivByZero() != 1 || view.Stats["Ratio"].Missing != 1 {
		t.Errorf("stats = %+v", view.Stats)
	}
	if base.Width() != 4 {
		t.Errorf("base width = %d, want 4 (base must not change)", base.Width())
	}
}

func TestBuildView_ReplayIsDeterministic(t *testing.T) {
	base := mustParseCSV(t, produceCSV)

	var withFilter ViewState
	withFilter.Filters.SetEquality("region", []string{"East"})
	withFilter.Filters.SetSearch("product", "Apple", false)

	first, err := BuildView(base, withFilter)
	if err != nil {
		t.Fatalf("BuildView failed: %v", err)
	}
	again, _ := BuildView(base, withFilter.Clone())
	if !reflect.DeepEqual(first.Table.Records(), again.Table.Records()) {
		t.Error("same state produced different views")
	}

	// dropping a filter equals building from the remaining state directly
	removed := withFilter.Clone()
	removed.Filters.ClearSearch("product")
	onlyRegion := ViewState{}
	onlyRegion.Filters.SetEquality("region", []string{"East"})

	a, _ := BuildView(base, removed)
	b, _ := BuildView(base, onlyRegion)
	if !reflect.DeepEqual(a.Table.Records(), b.Table.Records()) {
		t.Errorf("after removing search got %q, want %q", a.Table.Records(), b.Table.Records())
	}
}

func TestBuildView_EmptyResult(t *testing.T) {
	base := mustParseCSV(t, produceCSV)
	var state ViewState
	state.Filters.SetEquality("region", []string{"South"})

	view, err := BuildView(base, state)
	if err != nil {
		t.Fatalf("BuildView failed: %v", err)
	}
	if !view.IsEmptyResult() {
		t.Error("IsEmptyResult() = false, want true")
	}
	if !reflect.DeepEqual(view.Table.ColumnNames(), base.ColumnNames()) {
		t.Errorf("columns = %q, want headers kept", view.Table.ColumnNames())
	}

	header := mustParseCSV(t, "a,b\n")
	view, _ = BuildView(header, ViewState{})
	if view.IsEmptyResult() {
		t.Error("a header-only table is not a filtered-out result")
	}
}

func TestBuildView_InvalidStateFails(t *testing.T) {
	base := mustParseCSV(t, numbersCSV)
	state := ViewState{Derivations: []Derivation{{Name: "Bad", Left: "A", Op: OpAdd, Right: "Label"}}}

	if _, err := BuildView(base, state); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("BuildView() error = %v, want ErrTypeMismatch", err)
	}
}
