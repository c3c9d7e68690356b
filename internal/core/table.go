package core

import (
	"fmt"
	"strings"
)

// Table is an immutable in-memory grid. Every row has exactly one cell per
// column. Operations that change shape or content return a new Table that
// shares unchanged rows with its source.
type Table struct {
	name    string
	columns []Column
	rows    []Row
	index   map[string]int
	folded  map[string]int
}

// NewTable builds a table from header names and raw cell records, inferring
// each column's type. Records must already match the header width.
func NewTable(name string, header []string, records [][]string) (*Table, error) {
	names := NormalizeHeaders(header)

	rows := make([]Row, len(records))
	for i, rec := range records {
		if len(rec) != len(names) {
			return nil, &ParseError{
				Line: i + 2,
				Err:  fmt.Errorf("expected %d fields, found %d", len(names), len(rec)),
			}
		}
		row := make(Row, len(rec))
		for j, cell := range rec {
			row[j] = ParseValue(cell)
		}
		rows[i] = row
	}

	columns := make([]Column, len(names))
	for j, n := range names {
		columns[j] = Column{Name: n, Type: inferType(rows, j)}
	}

	return newTable(name, columns, rows), nil
}

func newTable(name string, columns []Column, rows []Row) *Table {
	t := &Table{
		name:    name,
		columns: columns,
		rows:    rows,
		index:   make(map[string]int, len(columns)),
	}
	names := make([]string, len(columns))
	for i, c := range columns {
		t.index[c.Name] = i
		names[i] = c.Name
	}
	t.folded = MakeHeaderIndex(names)
	return t
}

// inferType returns numeric when every non-missing cell is a number.
// A column with no values at all counts as numeric.
func inferType(rows []Row, col int) ColumnType {
	for _, r := range rows {
		if r[col].Kind == KindText {
			return ColumnText
		}
	}
	return ColumnNumeric
}

// Name is the source file name the table was loaded from.
func (t *Table) Name() string { return t.name }

// Columns returns a copy of the column descriptors in display order.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// ColumnNames returns column names in display order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (Column, int, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, -1, false
	}
	return t.columns[i], i, true
}

// ResolveColumn finds a column by exact name, falling back to a
// case-insensitive match.
func (t *Table) ResolveColumn(name string) (string, bool) {
	if _, ok := t.index[name]; ok {
		return name, true
	}
	if i, ok := t.folded[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t.columns[i].Name, true
	}
	return "", false
}

// HasColumn reports whether name is an exact column name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Row returns row i. The slice must not be modified.
func (t *Table) Row(i int) Row { return t.rows[i] }

// Rows returns all rows. The slices must not be modified.
func (t *Table) Rows() []Row { return t.rows }

// Cell returns the value at row i in the named column.
func (t *Table) Cell(i int, column string) (Value, bool) {
	j, ok := t.index[column]
	if !ok || i < 0 || i >= len(t.rows) {
		return Value{}, false
	}
	return t.rows[i][j], true
}

// Values returns a column's cells in row order.
func (t *Table) Values(column string) ([]Value, error) {
	j, ok := t.index[column]
	if !ok {
		return nil, unknownColumn(column)
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Distinct returns the non-missing raw values of a column in order of first
// appearance, at most limit of them (limit <= 0 means all). The second result
// reports whether the list was truncated.
func (t *Table) Distinct(column string, limit int) ([]string, bool, error) {
	j, ok := t.index[column]
	if !ok {
		return nil, false, unknownColumn(column)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t.rows {
		v := r[j]
		if v.IsMissing() {
			continue
		}
		if _, dup := seen[v.Raw]; dup {
			continue
		}
		if limit > 0 && len(out) == limit {
			return out, true, nil
		}
		seen[v.Raw] = struct{}{}
		out = append(out, v.Raw)
	}
	return out, false, nil
}

// Where returns a table holding only the rows keep accepts.
// Column metadata is preserved even when no rows remain.
func (t *Table) Where(keep func(Row) bool) *Table {
	var rows []Row
	for _, r := range t.rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return &Table{name: t.name, columns: t.columns, rows: rows, index: t.index, folded: t.folded}
}

// WithColumn returns a new table with col appended. values must have one
// entry per row.
func (t *Table) WithColumn(col Column, values []Value) (*Table, error) {
	if _, exists := t.index[col.Name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, col.Name)
	}
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("column %q has %d values for %d rows", col.Name, len(values), len(t.rows))
	}

	columns := make([]Column, len(t.columns), len(t.columns)+1)
	copy(columns, t.columns)
	columns = append(columns, col)

	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		row := make(Row, len(r), len(r)+1)
		copy(row, r)
		rows[i] = append(row, values[i])
	}
	return newTable(t.name, columns, rows), nil
}

// Page is a window of rows for display.
type Page struct {
	Number     int   `json:"page"`
	Size       int   `json:"page_size"`
	TotalRows  int   `json:"total_rows"`
	TotalPages int   `json:"total_pages"`
	Start      int   `json:"start"`
	Rows       []Row `json:"-"`
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool { return p.Number > 1 }

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool { return p.Number < p.TotalPages }

// Page returns 1-based page n of the given size, clamped into range.
func (t *Table) Page(n, size int) Page {
	if size <= 0 {
		size = len(t.rows)
		if size == 0 {
			size = 1
		}
	}
	total := (len(t.rows) + size - 1) / size
	if total == 0 {
		total = 1
	}
	if n < 1 {
		n = 1
	}
	if n > total {
		n = total
	}
	start := (n - 1) * size
	end := start + size
	if end > len(t.rows) {
		end = len(t.rows)
	}
	return Page{
		Number:     n,
		Size:       size,
		TotalRows:  len(t.rows),
		TotalPages: total,
		Start:      start,
		Rows:       t.rows[start:end],
	}
}

// Records returns the table as raw text, header first.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, t.ColumnNames())
	for _, r := range t.rows {
		rec := make([]string, len(r))
		for j, v := range r {
			rec[j] = v.Raw
		}
		out = append(out, rec)
	}
	return out
}
