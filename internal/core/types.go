package core

import (
	"github.com/shopspring/decimal"
)

// ValueKind classifies a single cell.
type ValueKind int

const (
	KindMissing ValueKind = iota
	KindNumber
	KindText
	KindNaN
)

func (k ValueKind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindNaN:
		return "nan"
	default:
		return "unknown"
	}
}

// NaNText is how the NaN sentinel is displayed and exported.
const NaNText = "NaN"

// Value is one cell. Raw always holds the cell text as it should be
// displayed and exported; Num is only meaningful for KindNumber.
type Value struct {
	Kind ValueKind
	Raw  string
	Num  decimal.Decimal
}

// IsMissing reports whether the cell holds no data.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// IsNaN reports whether the cell holds the not-a-number sentinel.
func (v Value) IsNaN() bool { return v.Kind == KindNaN }

// String returns the display text.
func (v Value) String() string { return v.Raw }

// NumberValue builds a computed numeric cell. Raw is the canonical decimal form.
func NumberValue(d decimal.Decimal) Value {
	return Value{Kind: KindNumber, Raw: d.String(), Num: d}
}

// NaNValue builds the not-a-number sentinel.
func NaNValue() Value {
	return Value{Kind: KindNaN, Raw: NaNText}
}

// MissingValue builds an empty cell.
func MissingValue() Value {
	return Value{Kind: KindMissing}
}

// ColumnType is the inferred type of a column.
type ColumnType int

const (
	ColumnText ColumnType = iota
	ColumnNumeric
)

func (t ColumnType) String() string {
	if t == ColumnNumeric {
		return "numeric"
	}
	return "text"
}

// MarshalText lets ColumnType appear as a word in JSON.
func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Column describes one table column.
type Column struct {
	Name    string     `json:"name"`
	Type    ColumnType `json:"type"`
	Derived bool       `json:"derived"`
}

// IsNumeric reports whether arithmetic may use this column.
func (c Column) IsNumeric() bool { return c.Type == ColumnNumeric }

// Row is a positional slice of cells aligned with Table.Columns.
type Row []Value

// Operator is an arithmetic operation between two numeric columns.
type Operator string

const (
	OpAdd      Operator = "add"
	OpSubtract Operator = "subtract"
	OpMultiply Operator = "multiply"
	OpDivide   Operator = "divide"
)

// Operators lists the supported operators in display order.
var Operators = []Operator{OpAdd, OpSubtract, OpMultiply, OpDivide}

// Symbol returns the arithmetic symbol for display.
func (o Operator) Symbol() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	default:
		return "?"
	}
}

// Derivation defines a derived column: Name = Left <Op> Right.
type Derivation struct {
	Name  string   `json:"name"`
	Left  string   `json:"left"`
	Op    Operator `json:"op"`
	Right string   `json:"right"`
}

// String renders the derivation as an expression, e.g. "Total = A + B".
func (d Derivation) String() string {
	return d.Name + " = " + d.Left + " " + d.Op.Symbol() + " " + d.Right
}

// DeriveStats counts the rows that did not produce a number.
type DeriveStats struct {
	DivByZero int `json:"div_by_zero"`
	Missing   int `json:"missing"`
	NaN       int `json:"nan"`
}

// Warning returns a *DivisionByZeroError for column when any row divided by
// zero, and nil otherwise.
func (s DeriveStats) Warning(column string) error {
	if s.DivByZero == 0 {
		return nil
	}
	return &DivisionByZeroError{Column: column, Rows: s.DivByZero}
}

// ViewState is everything applied on top of a base table.
// Derivations run in order, then filters.
type ViewState struct {
	Derivations []Derivation `json:"derivations"`
	Filters     FilterSet    `json:"filters"`
}

// Clone returns a deep copy so a failed action can be rolled back.
func (s ViewState) Clone() ViewState {
	return ViewState{
		Derivations: append([]Derivation(nil), s.Derivations...),
		Filters:     s.Filters.Clone(),
	}
}

// IsZero reports whether the state applies nothing.
func (s ViewState) IsZero() bool {
	return len(s.Derivations) == 0 && s.Filters.IsEmpty()
}
