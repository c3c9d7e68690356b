package core

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// xlsxSheet is the sheet name used for exports.
const xlsxSheet = "Data"

// ParseXLSX reads the first worksheet of a workbook. The first row is the
// header; cells come back as excelize formats them for display.
func ParseXLSX(r io.Reader, opts ParseOptions) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("open workbook: %w", err)}
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, &ParseError{Err: ErrEmptyFile}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &ParseError{Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Err: ErrEmptyFile}
	}
	if len(rows)-1 > opts.maxRows() {
		return nil, fmt.Errorf("%w: more than %d", ErrTooManyRows, opts.maxRows())
	}

	// GetRows drops trailing empty cells, so widths vary row to row.
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return nil, &ParseError{Err: ErrEmptyFile}
	}

	header := padRecord(rows[0], width)
	body := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		body = append(body, padRecord(row, width))
	}

	return NewTable(opts.Name, header, body)
}

// WriteXLSX writes the table as a single-sheet workbook. Numbers are stored
// as numeric cells; NaN and text are stored as strings.
func WriteXLSX(w io.Writer, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(xlsxSheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	header := make([]interface{}, t.Width())
	for i, name := range t.ColumnNames() {
		header[i] = excelize.Cell{StyleID: bold, Value: name}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range t.Rows() {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = xlsxCell(v)
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func xlsxCell(v Value) interface{} {
	switch v.Kind {
	case KindNumber:
		return v.Num.InexactFloat64()
	case KindMissing:
		if v.Raw == "" {
			return nil
		}
		return v.Raw
	default:
		return v.Raw
	}
}
