package core

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func mustParseCSV(t *testing.T, data string) *Table {
	t.Helper()
	tbl, err := ParseCSV(strings.NewReader(data), ParseOptions{Name: "test.csv"})
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	return tbl
}

// ============================================================================
// ParseCSV Tests
// ============================================================================

func TestParseCSV_InfersColumnTypes(t *testing.T) {
	tbl := mustParseCSV(t, "region,units,price\nEast,10,1.50\nWest,,2\nNorth,7,NA\n")

	if tbl.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", tbl.Len())
	}

	want := map[string]ColumnType{
		"region": ColumnText,
		"units":  ColumnNumeric,
		"price":  ColumnNumeric,
	}
	for name, typ := range want {
		col, _, ok := tbl.Column(name)
		if !ok {
			t.Fatalf("column %q missing", name)
		}
		if col.Type != typ {
			t.Errorf("column %q type = %v, want %v", name, col.Type, typ)
		}
	}
}

func TestParseCSV_OneTextCellMakesColumnText(t *testing.T) {
	tbl := mustParseCSV(t, "id\n1\n2\nthree\n")
	col, _, _ := tbl.Column("id")
	if col.Type != ColumnText {
		t.Errorf("id type = %v, want text", col.Type)
	}
}

func TestParseCSV_StripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("name,qty\nann,1\n")...)
	tbl, err := ParseCSV(bytes.NewReader(data), ParseOptions{})
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if !tbl.HasColumn("name") {
		t.Errorf("columns = %q, want BOM removed from first header", tbl.ColumnNames())
	}
}

func TestParseCSV_ShortRowsArePadded(t *testing.T) {
	tbl := mustParseCSV(t, "a,b,c\n1,2\n")
	v, _ := tbl.Cell(0, "c")
	if !v.IsMissing() {
		t.Errorf("padded cell = %+v, want missing", v)
	}
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	tbl := mustParseCSV(t, "a,b\n")
	if tbl.Len() != 0 || tbl.Width() != 2 {
		t.Errorf("got %d rows x %d columns, want 0 x 2", tbl.Len(), tbl.Width())
	}
}

func TestParseCSV_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
		wantIs   error
	}{
		{name: "empty input", input: "", wantIs: ErrEmptyFile},
		{name: "whitespace only", input: "\n\n  \n", wantIs: ErrEmptyFile},
		{name: "row wider than header", input: "a,b\n1,2\n1,2,3\n", wantLine: 3},
		{name: "bare quote", input: "a,b\n1,x\"y\"\n", wantLine: 2},
		{name: "unterminated quote", input: "a,b\n1,\"open\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input), ParseOptions{})
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("ParseCSV() error = %v, want *ParseError", err)
			}
			if tt.wantLine != 0 && pe.Line != tt.wantLine {
				t.Errorf("ParseError.Line = %d, want %d", pe.Line, tt.wantLine)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantIs)
			}
		})
	}
}

func TestParseCSV_RowLimit(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("a\n1\n2\n3\n"), ParseOptions{MaxRows: 2})
	if !errors.Is(err, ErrTooManyRows) {
		t.Errorf("ParseCSV() error = %v, want ErrTooManyRows", err)
	}

	if _, err := ParseCSV(strings.NewReader("a\n1\n2\n"), ParseOptions{MaxRows: 2}); err != nil {
		t.Errorf("ParseCSV() at the limit failed: %v", err)
	}
}

// ============================================================================
// sanitizeUTF8 Tests
// ============================================================================

func TestSanitizeUTF8(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []byte
	}{
		{
			name:  "valid UTF-8 unchanged",
			input: []byte("hello world"),
			want:  []byte("hello world"),
		},
		{
			name:  "valid unicode",
			input: []byte("hello \xe4\xb8\x96\xe7\x95\x8c"), // hello 世界
			want:  []byte("hello \xe4\xb8\x96\xe7\x95\x8c"),
		},
		{
			name:  "invalid byte replaced with replacement char",
			input: []byte("hello\x80world"),
			want:  []byte("hello\uFFFDworld"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeUTF8(tt.input)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("sanitizeUTF8() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ============================================================================
// Export Tests
// ============================================================================

func TestWriteCSV_RoundTrip(t *testing.T) {
	inputs := []string{
		"name,amount,note\nann,1.50,NA\nbob,2,\"x, y\"\n",
		"a,b\n",
		"id,text\n1,\"say \"\"hi\"\"\"\n2,\n",
	}

	for _, in := range inputs {
		tbl := mustParseCSV(t, in)
		var buf bytes.Buffer
		if err := WriteCSV(&buf, tbl); err != nil {
			t.Fatalf("WriteCSV failed: %v", err)
		}
		if buf.String() != in {
			t.Errorf("round trip of %q produced %q", in, buf.String())
		}
	}
}

func TestWriteCSV_IncludesDerivedColumns(t *testing.T) {
	tbl := mustParseCSV(t, "A,B\n1,4\n2,0\n")
	tbl, _, err := Derive(tbl, Derivation{Name: "Q", Left: "A", Op: OpDivide, Right: "B"})
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	want := "A,B,Q\n1,4,0.25\n2,0,NaN\n"
	if buf.String() != want {
		t.Errorf("WriteCSV() = %q, want %q", buf.String(), want)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    FileFormat
		wantErr bool
	}{
		{"data.csv", FormatCSV, false},
		{"DATA.CSV", FormatCSV, false},
		{"notes.txt", FormatCSV, false},
		{"noext", FormatCSV, false},
		{"book.xlsx", FormatXLSX, false},
		{"report.pdf", "", true},
	}

	for _, tt := range tests {
		got, err := DetectFormat(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("DetectFormat(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("DetectFormat(%q) error = %v, want ErrUnsupportedFormat", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestExportName(t *testing.T) {
	if got := ExportName("uploads/sales.csv", "20240301_140509", FormatXLSX); got != "sales_20240301_140509.xlsx" {
		t.Errorf("ExportName() = %q", got)
	}
	if got := ExportName("", "20240301_140509", FormatCSV); got != "export_20240301_140509.csv" {
		t.Errorf("ExportName() with no source = %q", got)
	}
}
