package core

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// ParseNumber Tests
// ----------------------------------------------------------------------------

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantValue string // canonical decimal form
	}{
		// Valid: Basic integers
		{name: "positive integer", input: "123", wantValid: true, wantValue: "123"},
		{name: "zero", input: "0", wantValid: true, wantValue: "0"},
		{name: "negative integer", input: "-456", wantValid: true, wantValue: "-456"},
		{name: "explicit plus", input: "+7", wantValid: true, wantValue: "7"},

		// Valid: Decimals
		{name: "decimal number", input: "123.45", wantValid: true, wantValue: "123.45"},
		{name: "leading decimal point", input: ".99", wantValid: true, wantValue: "0.99"},
		{name: "negative leading decimal point", input: "-.5", wantValid: true, wantValue: "-0.5"},
		{name: "trailing decimal point", input: "99.", wantValid: true, wantValue: "99"},
		{name: "surrounding whitespace", input: "  42 ", wantValid: true, wantValue: "42"},

		// Valid: Scientific notation
		{name: "exponent", input: "1e3", wantValid: true, wantValue: "1000"},
		{name: "upper case exponent", input: "1.5E2", wantValid: true, wantValue: "150"},
		{name: "trailing point before exponent", input: "5.e2", wantValid: true, wantValue: "500"},

		// Invalid
		{name: "empty", input: "", wantValid: false},
		{name: "currency symbol", input: "$100", wantValid: false},
		{name: "thousands separator", input: "1,000", wantValid: false},
		{name: "two decimal points", input: "1.2.3", wantValid: false},
		{name: "word", input: "abc", wantValid: false},
		{name: "lone sign", input: "-", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseNumber(tt.input)
			if ok != tt.wantValid {
				t.Fatalf("ParseNumber(%q) valid = %v, want %v", tt.input, ok, tt.wantValid)
			}
			if ok && got.String() != tt.wantValue {
				t.Errorf("ParseNumber(%q) = %s, want %s", tt.input, got.String(), tt.wantValue)
			}
		})
	}
}

func TestParseNumber_ExponentRange(t *testing.T) {
	tests := []struct {
		input     string
		wantValid bool
	}{
		{"1e308", true},
		{"-1.5e308", true},
		{"2.5e-300", true},
		{"0.000001", true},
		{"1e309", false},
		{"10e308", false},
		{"1e200000000", false},
		{"-1e200000000", false},
		{"1e-200000000", false},
		{"0e999999", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, ok := ParseNumber(tt.input)
			if ok != tt.wantValid {
				t.Errorf("ParseNumber(%q) valid = %v, want %v", tt.input, ok, tt.wantValid)
			}
		})
	}
}

// A cell whose exponent is out of range makes its column text, so neither
// summaries nor derived columns ever align decimals against it.
func TestOutOfRangeExponent_StaysText(t *testing.T) {
	tbl := mustParseCSV(t, "a,b\n1e200000000,1\n2,3\n")

	col, _, _ := tbl.Column("a")
	if col.Type != ColumnText {
		t.Fatalf("column a type = %v, want text", col.Type)
	}

	done := make(chan struct{})
	var (
		summaries []ColumnSummary
		deriveErr error
	)
	go func() {
		defer close(done)
		summaries = Summarize(tbl)
		_, _, deriveErr = Derive(tbl, Derivation{Name: "S", Left: "a", Right: "b", Op: OpAdd})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Summarize and Derive did not finish")
	}

	if len(summaries) != 1 || summaries[0].Column != "b" {
		t.Errorf("Summarize() = %+v, want only column b", summaries)
	}
	if !errors.Is(deriveErr, ErrTypeMismatch) {
		t.Errorf("Derive() error = %v, want ErrTypeMismatch", deriveErr)
	}
}

// ----------------------------------------------------------------------------
// ParseValue Tests
// ----------------------------------------------------------------------------

func TestParseValue(t *testing.T) {
	tests := []struct {
		input    string
		wantKind ValueKind
	}{
		{"", KindMissing},
		{"   ", KindMissing},
		{"NA", KindMissing},
		{"N/A", KindMissing},
		{"null", KindMissing},
		{"#N/A", KindMissing},
		{"NaN", KindMissing},
		{"3.0", KindNumber},
		{"-2", KindNumber},
		{"East", KindText},
		{"NAN!", KindText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v := ParseValue(tt.input)
			if v.Kind != tt.wantKind {
				t.Errorf("ParseValue(%q).Kind = %v, want %v", tt.input, v.Kind, tt.wantKind)
			}
			if v.Raw != tt.input {
				t.Errorf("ParseValue(%q).Raw = %q, want input kept verbatim", tt.input, v.Raw)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Header Tests
// ----------------------------------------------------------------------------

func TestNormalizeHeaders(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "clean headers unchanged",
			input: []string{"Region", "Units"},
			want:  []string{"Region", "Units"},
		},
		{
			name:  "blank header gets positional name",
			input: []string{"a", "", " "},
			want:  []string{"a", "Column_2", "Column_3"},
		},
		{
			name:  "duplicates get suffixes",
			input: []string{"a", "a", "a"},
			want:  []string{"a", "a.1", "a.2"},
		},
		{
			name:  "generated suffix skips existing name",
			input: []string{"a", "a", "a.1"},
			want:  []string{"a", "a.2", "a.1"},
		},
		{
			name:  "excel formula and quotes stripped",
			input: []string{`="Code"`, `'Name'`},
			want:  []string{"Code", "Name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeHeaders(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeHeaders(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  plain  ", "plain"},
		{`="123"`, "123"},
		{"=SUM", "SUM"},
		{`"quoted"`, "quoted"},
	}

	for _, tt := range tests {
		if got := CleanCell(tt.input); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
