package core

import (
	"errors"
	"fmt"
)

// Sentinel errors. Their messages double as the patterns matched by MapError,
// so keep them in sync with errorPatterns.
var (
	ErrInvalidCSV        = errors.New("invalid csv")
	ErrEmptyFile         = errors.New("empty file: no header row")
	ErrNoFile            = errors.New("no file provided")
	ErrFileTooLarge      = errors.New("file too large")
	ErrTooManyRows       = errors.New("too many rows")
	ErrUnsupportedFormat = errors.New("unsupported file type")

	ErrUnknownColumn   = errors.New("unknown column")
	ErrDuplicateColumn = errors.New("column already exists")
	ErrInvalidColumn   = errors.New("invalid column name")
	ErrInvalidOperator = errors.New("invalid operator")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrDivisionByZero  = errors.New("division by zero")

	ErrNoTable          = errors.New("no table loaded")
	ErrSessionNotFound  = errors.New("session not found")
	ErrTooManySessions  = errors.New("too many sessions")
	ErrInsufficientData = errors.New("insufficient data")

	ErrInvalidInput = errors.New("invalid input")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// ParseError reports input that could not be read as delimited text.
// Line is 1-based and zero when the failure is not tied to a row.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid csv: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("invalid csv: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidCSV
}

// TypeMismatchError reports an arithmetic operand column that is not numeric.
type TypeMismatchError struct {
	Column string
	Type   ColumnType
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: column %q is %s, not numeric", e.Column, e.Type)
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// DivisionByZeroError counts the rows of a derived column that divided by
// zero. It describes a completed derivation, so it is reported as a notice
// rather than failing the action.
type DivisionByZeroError struct {
	Column string
	Rows   int
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("division by zero: %s: %d rows hold NaN", e.Column, e.Rows)
}

func (e *DivisionByZeroError) Is(target error) bool {
	return target == ErrDivisionByZero
}

func unknownColumn(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}
