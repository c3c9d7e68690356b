package core

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// MaxColumnNameLength bounds derived column names.
const MaxColumnNameLength = 64

var operatorAliases = map[string]Operator{
	"add":      OpAdd,
	"+":        OpAdd,
	"plus":     OpAdd,
	"subtract": OpSubtract,
	"sub":      OpSubtract,
	"-":        OpSubtract,
	"minus":    OpSubtract,
	"multiply": OpMultiply,
	"mul":      OpMultiply,
	"*":        OpMultiply,
	"x":        OpMultiply,
	"×":        OpMultiply,
	"divide":   OpDivide,
	"div":      OpDivide,
	"/":        OpDivide,
	"÷":        OpDivide,
}

// ParseOperator accepts an operator name or symbol.
func ParseOperator(s string) (Operator, error) {
	op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidOperator, s)
	}
	return op, nil
}

// ValidateDerivation checks d against t without computing anything.
func ValidateDerivation(t *Table, d Derivation) error {
	name := strings.TrimSpace(d.Name)
	if name == "" || utf8.RuneCountInString(name) > MaxColumnNameLength {
		return fmt.Errorf("%w: %q", ErrInvalidColumn, d.Name)
	}
	if t.HasColumn(name) {
		return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
	}
	if _, err := ParseOperator(string(d.Op)); err != nil {
		return err
	}

	for _, operand := range []string{d.Left, d.Right} {
		col, _, ok := t.Column(operand)
		if !ok {
			return unknownColumn(operand)
		}
		if !col.IsNumeric() {
			return &TypeMismatchError{Column: col.Name, Type: col.Type}
		}
	}
	return nil
}

// Derive appends the column d describes to t.
//
// Per row: a missing operand gives a missing result, a NaN operand gives NaN,
// and a zero divisor gives NaN. None of these is an error; they are counted
// in the returned stats. On error t is returned untouched alongside it.
func Derive(t *Table, d Derivation) (*Table, DeriveStats, error) {
	var stats DeriveStats

	d = d.normalize()
	if err := ValidateDerivation(t, d); err != nil {
		return t, stats, err
	}
	op := d.Op

	_, li, _ := t.Column(d.Left)
	_, ri, _ := t.Column(d.Right)

	values := make([]Value, t.Len())
	for i, row := range t.Rows() {
		l, r := row[li], row[ri]
		switch {
		case l.IsMissing() || r.IsMissing():
			values[i] = MissingValue()
			stats.Missing++
		case l.IsNaN() || r.IsNaN():
			values[i] = NaNValue()
			stats.NaN++
		case op == OpDivide && r.Num.IsZero():
			values[i] = NaNValue()
			stats.DivByZero++
		default:
			values[i] = NumberValue(apply(op, l.Num, r.Num))
		}
	}

	out, err := t.WithColumn(Column{Name: d.Name, Type: ColumnNumeric, Derived: true}, values)
	if err != nil {
		return t, DeriveStats{}, err
	}
	return out, stats, nil
}

func apply(op Operator, l, r decimal.Decimal) decimal.Decimal {
	switch op {
	case OpAdd:
		return l.Add(r)
	case OpSubtract:
		return l.Sub(r)
	case OpMultiply:
		return l.Mul(r)
	default:
		return l.Div(r)
	}
}

// normalize trims the name and maps operator aliases to their canonical form.
// Unknown operators are left for ValidateDerivation to reject.
func (d Derivation) normalize() Derivation {
	d.Name = strings.TrimSpace(d.Name)
	if op, err := ParseOperator(string(d.Op)); err == nil {
		d.Op = op
	}
	return d
}
