package core

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV writes the header and every row of t as comma-separated text.
// Cells are written from their raw text, so an untouched upload exports the
// same cells it was read from.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.ColumnNames()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rec := make([]string, t.Width())
	for i, row := range t.Rows() {
		for j, v := range row {
			rec[j] = v.Raw
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Export writes t in the requested format.
func Export(w io.Writer, t *Table, format FileFormat) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatXLSX:
		return WriteXLSX(w, t)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
