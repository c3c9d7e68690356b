package core

import (
	"errors"
	"reflect"
	"testing"
)

const numbersCSV = `A,B,C,Label
1,4,0,x
2,5,2,y
3,6,,z
`

func TestDerive_Operators(t *testing.T) {
	tbl := mustParseCSV(t, numbersCSV)

	tests := []struct {
		name  string
		left  string
		op    Operator
		right string
		want  []string
	}{
		{name: "add", left: "A", op: OpAdd, right: "B", want: []string{"5", "7", "9"}},
		{name: "subtract", left: "B", op: OpSubtract, right: "A", want: []string{"3", "3", "3"}},
		{name: "multiply", left: "A", op: OpMultiply, right: "B", want: []string{"4", "10", "18"}},
		{name: "divide", left: "A", op: OpDivide, right: "B", want: []string{"0.25", "0.4", "0.5"}},
		{name: "symbol accepted", left: "A", op: "+", right: "A", want: []string{"2", "4", "6"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := Derive(tbl, Derivation{Name: "R", Left: tt.left, Op: tt.op, Right: tt.right})
			if err != nil {
				t.Fatalf("Derive failed: %v", err)
			}
			if got := column(t, out, "R"); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("R = %q, want %q", got, tt.want)
			}
			col, _, _ := out.Column("R")
			if !col.Derived || !col.IsNumeric() {
				t.Errorf("derived column = %+v, want numeric and derived", col)
			}
		})
	}
}

func TestDerive_DivisionByZeroIsNaN(t *testing.T) {
	tbl := mustParseCSV(t, numbersCSV)

	out, stats, err := Derive(tbl, Derivation{Name: "Q", Left: "A", Op: OpDivide, Right: "C"})
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	values, _ := out.Values("Q")
	if !values[0].IsNaN() {
		t.Errorf("1/0 = %+v, want NaN", values[0])
	}
	if values[1].Raw != "1" {
		t.Errorf("2/2 = %q, want 1", values[1].Raw)
	}
	if !values[2].IsMissing() {
		t.Errorf("3/missing = %+v, want missing", values[2])
	}

	want := DeriveStats{DivByZero: 1, Missing: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestDerive_RepeatingDecimal(t *testing.T) {
	tbl := mustParseCSV(t, "A,B\n1,3\n")
	out, _, err := Derive(tbl, Derivation{Name: "Q", Left: "A", Op: OpDivide, Right: "B"})
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if got := column(t, out, "Q")[0]; got != "0.3333333333333333" {
		t.Errorf("1/3 = %q", got)
	}
}

func TestDerive_NaNPropagates(t *testing.T) {
	tbl := mustParseCSV(t, "A,B\n1,0\n")
	tbl, _, _ = Derive(tbl, Derivation{Name: "Q", Left: "A", Op: OpDivide, Right: "B"})

	out, stats, err := Derive(tbl, Derivation{Name: "R", Left: "Q", Op: OpAdd, Right: "A"})
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if v, _ := out.Cell(0, "R"); !v.IsNaN() {
		t.Errorf("NaN + 1 = %+v, want NaN", v)
	}
	if stats.NaN != 1 {
		t.Errorf("stats.NaN = %d, want 1", stats.NaN)
	}
}

func TestDerive_Errors(t *testing.T) {
	tbl := mustParseCSV(t, numbersCSV)

	tests := []struct {
		name   string
		d      Derivation
		wantIs error
	}{
		{name: "text operand", d: Derivation{Name: "R", Left: "A", Op: OpAdd, Right: "Label"}, wantIs: ErrTypeMismatch},
		{name: "unknown operand", d: Derivation{Name: "R", Left: "A", Op: OpAdd, Right: "Z"}, wantIs: ErrUnknownColumn},
		{name: "existing name", d: Derivation{Name: "B", Left: "A", Op: OpAdd, Right: "A"}, wantIs: ErrDuplicateColumn},
		{name: "blank name", d: Derivation{Name: "  ", Left: "A", Op: OpAdd, Right: "A"}, wantIs: ErrInvalidColumn},
		{name: "bad operator", d: Derivation{Name: "R", Left: "A", Op: "%", Right: "B"}, wantIs: ErrInvalidOperator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := Derive(tbl, tt.d)
			if !errors.Is(err, tt.wantIs) {
				t.Fatalf("Derive() error = %v, want %v", err, tt.wantIs)
			}
			if out != tbl || out.Width() != 4 {
				t.Error("failed Derive must return the table unchanged")
			}
		})
	}
}

func TestDerive_TypeMismatchNamesColumn(t *testing.T) {
	tbl := mustParseCSV(t, numbersCSV)
	_, _, err := Derive(tbl, Derivation{Name: "R", Left: "Label", Op: OpMultiply, Right: "A"})

	var tm *TypeMismatchError
	if !errors.As(err, &tm) {
		t.Fatalf("error = %v, want *TypeMismatchError", err)
	}
	if tm.Column != "Label" || tm.Type != ColumnText {
		t.Errorf("TypeMismatchError = %+v", tm)
	}
}

func TestParseOperator(t *testing.T) {
	tests := map[string]Operator{
		"add": OpAdd, "+": OpAdd, " Plus ": OpAdd,
		"-": OpSubtract, "subtract": OpSubtract,
		"*": OpMultiply, "x": OpMultiply,
		"/": OpDivide, "÷": OpDivide, "DIVIDE": OpDivide,
	}
	for in, want := range tests {
		got, err := ParseOperator(in)
		if err != nil || got != want {
			t.Errorf("ParseOperator(%q) = %q, %v, want %q", in, got, err, want)
		}
	}

	if _, err := ParseOperator("^"); !errors.Is(err, ErrInvalidOperator) {
		t.Errorf("ParseOperator(\"^\") error = %v, want ErrInvalidOperator", err)
	}
}
