package core

import (
	"errors"
	"reflect"
	"testing"
)

const produceCSV = `region,product,units
East,Apple,10
West,Banana,5
East,Cherry,
North,apple pie,7
`

func column(t *testing.T, tbl *Table, name string) []string {
	t.Helper()
	values, err := tbl.Values(name)
	if err != nil {
		t.Fatalf("Values(%q) failed: %v", name, err)
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.Raw
	}
	return out
}

func applyFilters(t *testing.T, tbl *Table, f FilterSet) *Table {
	t.Helper()
	out, err := f.Apply(tbl)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	return out
}

func TestFilterSet_Equality(t *testing.T) {
	tbl := mustParseCSV(t, produceCSV)

	tests := []struct {
		name   string
		column string
		values []string
		want   []string // products
	}{
		{name: "single value", column: "region", values: []string{"East"}, want: []string{"Apple", "Cherry"}},
		{name: "multiple values", column: "region", values: []string{"East", "West"}, want: []string{"Apple", "Banana", "Cherry"}},
		{name: "numeric column matches raw text", column: "units", values: []string{"10"}, want: []string{"Apple"}},
		{name: "match is exact", column: "product", values: []string{"apple"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FilterSet
			f.SetEquality(tt.column, tt.values)
			got := column(t, applyFilters(t, tbl, f), "product")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("products = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilterSet_Search(t *testing.T) {
	tbl := mustParseCSV(t, produceCSV)

	tests := []struct {
		name            string
		term            string
		caseInsensitive bool
		want            []string
	}{
		{name: "case sensitive by default", term: "apple", want: []string{"apple pie"}},
		{name: "case insensitive", term: "apple", caseInsensitive: true, want: []string{"Apple", "apple pie"}},
		{name: "substring", term: "an", want: []string{"Banana"}},
		{name: "no match is empty not error", term: "kiwi", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FilterSet
			f.SetSearch("product", tt.term, tt.caseInsensitive)
			got := column(t, applyFilters(t, tbl, f), "product")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("products = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilterSet_MissingCellsNeverMatch(t *testing.T) {
	tbl := mustParseCSV(t, produceCSV)

	var f FilterSet
	f.SetSearch("units", "", false) // clears
	if !f.IsEmpty() {
		t.Fatal("empty search term should not install a filter")
	}

	f.SetEquality("units", []string{""})
	got := applyFilters(t, tbl, f)
	if got.Len() != 0 {
		t.Errorf("equality on empty string matched %d rows, want 0", got.Len())
	}
}

func TestFilterSet_Commutative(t *testing.T) {
	tbl := mustParseCSV(t, produceCSV)

	var a FilterSet
	a.SetEquality("region", []string{"East", "North"})
	a.SetSearch("product", "e", false)

	var b FilterSet
	b.SetSearch("product", "e", false)
	b.SetEquality("region", []string{"East", "North"})

	ra := applyFilters(t, tbl, a).Records()
	rb := applyFilters(t, tbl, b).Records()
	if !reflect.DeepEqual(ra, rb) {
		t.Errorf("filter order changed the result:\n%v\n%v", ra, rb)
	}
	if len(ra) != 4 { // header + Apple, Cherry, apple pie
		t.Errorf("got %d records, want 4", len(ra))
	}
}

func TestFilterSet_Idempotent(t *testing.T) {
	tbl := mustParseCSV(t, produceCSV)

	var f FilterSet
	f.SetEquality("region", []string{"East"})
	f.SetEquality("region", []string{"East", "East"})

	if len(f.Equalities) != 1 || len(f.Equalities[0].Values) != 1 {
		t.Fatalf("repeated SetEquality = %+v, want one filter with one value", f.Equalities)
	}

	once := applyFilters(t, tbl, f)
	twice := applyFilters(t, once, f)
	if !reflect.DeepEqual(once.Records(), twice.Records()) {
		t.Error("applying the same filter twice changed the result")
	}
}

func TestFilterSet_EmptyResultKeepsColumns(t *testing.T) {
	tbl := mustParseCSV(t, produceCSV)

	var f FilterSet
	f.SetEquality("region", []string{"South"})
	got := applyFilters(t, tbl, f)

	if got.Len() != 0 {
		t.Errorf("Len() = %d, want 0", got.Len())
	}
	if !reflect.DeepEqual(got.ColumnNames(), tbl.ColumnNames()) {
		t.Errorf("columns = %q, want %q", got.ColumnNames(), tbl.ColumnNames())
	}
}

func TestFilterSet_ClearRestoresRemainingFilters(t *testing.T) {
	tbl := mustParseCSV(t, produceCSV)

	var both FilterSet
	both.SetEquality("region", []string{"East"})
	both.SetSearch("product", "Ch", false)
	both.ClearSearch("product")

	var only FilterSet
	only.SetEquality("region", []string{"East"})

	if !reflect.DeepEqual(applyFilters(t, tbl, both).Records(), applyFilters(t, tbl, only).Records()) {
		t.Error("clearing a filter did not restore the view of the remaining filters")
	}

	both.Clear()
	if got := applyFilters(t, tbl, both); got.Len() != tbl.Len() {
		t.Errorf("after Clear, Len() = %d, want %d", got.Len(), tbl.Len())
	}
}

func TestFilterSet_UnknownColumn(t *testing.T) {
	tbl := mustParseCSV(t, produceCSV)

	var f FilterSet
	f.SetSearch("colour", "red", false)
	if _, err := f.Apply(tbl); !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("Apply() error = %v, want ErrUnknownColumn", err)
	}
}

func TestFilterSet_DropColumns(t *testing.T) {
	var f FilterSet
	f.SetEquality("a", []string{"1"})
	f.SetEquality("b", []string{"2"})
	f.SetSearch("a", "x", false)

	f.DropColumns(map[string]struct{}{"a": {}})

	if len(f.Equalities) != 1 || f.Equalities[0].Column != "b" {
		t.Errorf("Equalities = %+v, want only b", f.Equalities)
	}
	if len(f.Searches) != 0 {
		t.Errorf("Searches = %+v, want none", f.Searches)
	}
}

func TestFilterSet_CloneIsDeep(t *testing.T) {
	var f FilterSet
	f.SetEquality("a", []string{"1"})

	c := f.Clone()
	c.Equalities[0].Values[0] = "changed"

	if f.Equalities[0].Values[0] != "1" {
		t.Error("modifying the clone changed the original")
	}
}
