package core

import (
	"fmt"
	"strings"
)

// EqualityFilter keeps rows whose cell equals one of Values.
type EqualityFilter struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// SearchFilter keeps rows whose cell text contains Term.
type SearchFilter struct {
	Column          string `json:"column"`
	Term            string `json:"term"`
	CaseInsensitive bool   `json:"case_insensitive"`
}

// FilterSet holds at most one equality filter and one search per column.
// A row is visible when it passes every filter. Missing cells never pass.
type FilterSet struct {
	Equalities []EqualityFilter `json:"equalities"`
	Searches   []SearchFilter   `json:"searches"`
}

// SetEquality installs or replaces the equality filter on column.
// An empty value list removes it.
func (f *FilterSet) SetEquality(column string, values []string) {
	values = dedupe(values)
	if len(values) == 0 {
		f.ClearEquality(column)
		return
	}
	for i := range f.Equalities {
		if f.Equalities[i].Column == column {
			f.Equalities[i].Values = values
			return
		}
	}
	f.Equalities = append(f.Equalities, EqualityFilter{Column: column, Values: values})
}

// SetSearch installs or replaces the search on column. An empty term removes it.
func (f *FilterSet) SetSearch(column, term string, caseInsensitive bool) {
	if term == "" {
		f.ClearSearch(column)
		return
	}
	s := SearchFilter{Column: column, Term: term, CaseInsensitive: caseInsensitive}
	for i := range f.Searches {
		if f.Searches[i].Column == column {
			f.Searches[i] = s
			return
		}
	}
	f.Searches = append(f.Searches, s)
}

// ClearEquality removes the equality filter on column, reporting whether one existed.
func (f *FilterSet) ClearEquality(column string) bool {
	for i, e := range f.Equalities {
		if e.Column == column {
			f.Equalities = append(f.Equalities[:i:i], f.Equalities[i+1:]...)
			return true
		}
	}
	return false
}

// ClearSearch removes the search on column, reporting whether one existed.
func (f *FilterSet) ClearSearch(column string) bool {
	for i, s := range f.Searches {
		if s.Column == column {
			f.Searches = append(f.Searches[:i:i], f.Searches[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every filter.
func (f *FilterSet) Clear() {
	f.Equalities = nil
	f.Searches = nil
}

// DropColumns removes filters on any of the named columns.
func (f *FilterSet) DropColumns(names map[string]struct{}) {
	eq := f.Equalities[:0:0]
	for _, e := range f.Equalities {
		if _, drop := names[e.Column]; !drop {
			eq = append(eq, e)
		}
	}
	s := f.Searches[:0:0]
	for _, sf := range f.Searches {
		if _, drop := names[sf.Column]; !drop {
			s = append(s, sf)
		}
	}
	f.Equalities, f.Searches = eq, s
}

// IsEmpty reports whether no filter is active.
func (f FilterSet) IsEmpty() bool {
	return len(f.Equalities) == 0 && len(f.Searches) == 0
}

// Count returns the number of active filters.
func (f FilterSet) Count() int {
	return len(f.Equalities) + len(f.Searches)
}

// Equality returns the equality filter on column, if any.
func (f FilterSet) Equality(column string) (EqualityFilter, bool) {
	for _, e := range f.Equalities {
		if e.Column == column {
			return e, true
		}
	}
	return EqualityFilter{}, false
}

// Search returns the search on column, if any.
func (f FilterSet) Search(column string) (SearchFilter, bool) {
	for _, s := range f.Searches {
		if s.Column == column {
			return s, true
		}
	}
	return SearchFilter{}, false
}

// Clone returns a deep copy.
func (f FilterSet) Clone() FilterSet {
	out := FilterSet{}
	for _, e := range f.Equalities {
		out.Equalities = append(out.Equalities, EqualityFilter{
			Column: e.Column,
			Values: append([]string(nil), e.Values...),
		})
	}
	out.Searches = append(out.Searches, f.Searches...)
	return out
}

// Validate checks that every filtered column exists in t.
func (f FilterSet) Validate(t *Table) error {
	for _, e := range f.Equalities {
		if !t.HasColumn(e.Column) {
			return unknownColumn(e.Column)
		}
	}
	for _, s := range f.Searches {
		if !t.HasColumn(s.Column) {
			return unknownColumn(s.Column)
		}
	}
	return nil
}

// Apply returns the rows of t that pass every filter. Filter order does not
// affect the result.
func (f FilterSet) Apply(t *Table) (*Table, error) {
	if err := f.Validate(t); err != nil {
		return nil, err
	}
	if f.IsEmpty() {
		return t, nil
	}

	preds := make([]func(Row) bool, 0, f.Count())
	for _, e := range f.Equalities {
		preds = append(preds, equalityPredicate(t, e))
	}
	for _, s := range f.Searches {
		preds = append(preds, searchPredicate(t, s))
	}

	return t.Where(func(r Row) bool {
		for _, p := range preds {
			if !p(r) {
				return false
			}
		}
		return true
	}), nil
}

func equalityPredicate(t *Table, e EqualityFilter) func(Row) bool {
	_, col, _ := t.Column(e.Column)
	allowed := make(map[string]struct{}, len(e.Values))
	for _, v := range e.Values {
		allowed[v] = struct{}{}
	}
	return func(r Row) bool {
		v := r[col]
		if v.IsMissing() {
			return false
		}
		_, ok := allowed[v.Raw]
		return ok
	}
}

func searchPredicate(t *Table, s SearchFilter) func(Row) bool {
	_, col, _ := t.Column(s.Column)
	term := s.Term
	if s.CaseInsensitive {
		term = strings.ToLower(term)
	}
	return func(r Row) bool {
		v := r[col]
		if v.IsMissing() {
			return false
		}
		text := v.Raw
		if s.CaseInsensitive {
			text = strings.ToLower(text)
		}
		return strings.Contains(text, term)
	}
}

// String summarizes the filters for logs, e.g. `Region in [East West]; Name ~ "ann"`.
func (f FilterSet) String() string {
	parts := make([]string, 0, f.Count())
	for _, e := range f.Equalities {
		parts = append(parts, fmt.Sprintf("%s in %v", e.Column, e.Values))
	}
	for _, s := range f.Searches {
		op := "~"
		if s.CaseInsensitive {
			op = "~*"
		}
		parts = append(parts, fmt.Sprintf("%s %s %q", s.Column, op, s.Term))
	}
	return strings.Join(parts, "; ")
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
