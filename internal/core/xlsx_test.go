package core

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestWriteXLSX_ReadBack(t *testing.T) {
	tbl := mustParseCSV(t, "name,qty,price\nann,10,1.5\nbob,,2\n")

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, tbl); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}

	got, err := ParseXLSX(bytes.NewReader(buf.Bytes()), ParseOptions{Name: "out.xlsx"})
	if err != nil {
		t.Fatalf("ParseXLSX failed: %v", err)
	}
	if !reflect.DeepEqual(got.Records(), tbl.Records()) {
		t.Errorf("records = %q, want %q", got.Records(), tbl.Records())
	}

	col, _, _ := got.Column("qty")
	if !col.IsNumeric() {
		t.Error("numeric column read back as text")
	}
}

func TestWriteXLSX_NumbersAreNumericCells(t *testing.T) {
	tbl := mustParseCSV(t, "v\n42\n")

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, tbl); err != nil {
		t.Fatalf("WriteXLSX failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer f.Close()

	typ, err := f.GetCellType(xlsxSheet, "A2")
	if err != nil {
		t.Fatalf("GetCellType failed: %v", err)
	}
	if typ != excelize.CellTypeNumber && typ != excelize.CellTypeUnset {
		t.Errorf("cell type = %v, want number", typ)
	}
}

func TestParseXLSX_RaggedRows(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_ = f.SetSheetRow("Sheet1", "A1", &[]interface{}{"a", "b"})
	_ = f.SetSheetRow("Sheet1", "A2", &[]interface{}{"1"})
	_ = f.SetSheetRow("Sheet1", "A3", &[]interface{}{"2", "x", "extra"})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	tbl, err := ParseXLSX(&buf, ParseOptions{Name: "ragged.xlsx"})
	if err != nil {
		t.Fatalf("ParseXLSX failed: %v", err)
	}
	if !reflect.DeepEqual(tbl.ColumnNames(), []string{"a", "b", "Column_3"}) {
		t.Errorf("columns = %q", tbl.ColumnNames())
	}
	if v, _ := tbl.Cell(0, "b"); !v.IsMissing() {
		t.Errorf("short row cell = %+v, want missing", v)
	}
}

func TestParseXLSX_NotAWorkbook(t *testing.T) {
	_, err := ParseXLSX(strings.NewReader("a,b\n1,2\n"), ParseOptions{Name: "fake.xlsx"})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Errorf("ParseXLSX() error = %v, want *ParseError", err)
	}
}
