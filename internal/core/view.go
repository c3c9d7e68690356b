package core

import "fmt"

// View is the result of applying a ViewState to a base table.
type View struct {
	// Base is the table as uploaded.
	Base *Table
	// Full is Base plus derived columns, before filtering. Equality value
	// choices are drawn from it so narrowing one filter never hides options.
	Full *Table
	// Table is what the user sees.
	Table *Table
	// State is the state the view was built from.
	State ViewState
	// Stats holds per-derived-column counts of rows that produced no number.
	Stats map[string]DeriveStats
}

// BuildView derives every column in order, then applies the filters.
// It never modifies base and always starts from it, so removing a filter or
// derivation yields exactly the view the remaining state describes.
func BuildView(base *Table, state ViewState) (*View, error) {
	if base == nil {
		return nil, ErrNoTable
	}

	full := base
	stats := make(map[string]DeriveStats, len(state.Derivations))
	for _, d := range state.Derivations {
		next, st, err := Derive(full, d)
		if err != nil {
			return nil, fmt.Errorf("derive %q: %w", d.Name, err)
		}
		full = next
		stats[d.normalize().Name] = st
	}

	visible, err := state.Filters.Apply(full)
	if err != nil {
		return nil, fmt.Errorf("apply filters: %w", err)
	}

	return &View{
		Base:  base,
		Full:  full,
		Table: visible,
		State: state,
		Stats: stats,
	}, nil
}

// Visible returns the number of rows that pass the filters.
func (v *View) Visible() int { return v.Table.Len() }

// Total returns the number of uploaded rows.
func (v *View) Total() int { return v.Base.Len() }

// IsEmptyResult reports whether filters excluded every row of a non-empty table.
func (v *View) IsEmptyResult() bool {
	return v.Table.Len() == 0 && v.Full.Len() > 0
}

// DivByZero returns the total number of division-by-zero cells across all
// derived columns.
func (v *View) DivByZero() int {
	n := 0
	for _, st := range v.Stats {
		n += st.DivByZero
	}
	return n
}
