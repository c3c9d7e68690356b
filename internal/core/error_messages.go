// Package core provides the business logic for exploring an uploaded CSV.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
// Errors related to reading the uploaded file:
//
//	FILE001 - File too large: File exceeds the maximum upload size
//	          Action: Remove unneeded rows or columns and upload again
//	          Patterns: "file too large"
//
//	FILE002 - Invalid CSV: File could not be read as comma-separated text
//	          Action: Ensure every row has the same number of columns as the header
//	          Patterns: "invalid csv"
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a CSV file to upload
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The uploaded file is empty
//	          Action: Upload a file with a header row
//	          Patterns: "empty file"
//
//	FILE006 - Too many rows: File has more rows than the explorer holds
//	          Action: Split the file and explore the parts separately
//	          Patterns: "too many rows"
//
//	FILE007 - Unsupported type: Only .csv and .xlsx files are accepted
//	          Action: Export the data as CSV and upload again
//	          Patterns: "unsupported file type"
//
// # Arithmetic Errors (ARITH001-ARITH099)
//
//	ARITH001 - Type mismatch: Arithmetic needs two numeric columns
//	           Action: Pick columns marked as numeric
//	           Patterns: "type mismatch"
//
//	ARITH002 - Division by zero: Some rows divide by zero and show NaN
//	           Action: Filter out zero divisors if NaN is not wanted
//	           Patterns: "division by zero"
//
//	ARITH003 - Invalid operator: Operator is not one of + - * /
//	           Action: Choose add, subtract, multiply or divide
//	           Patterns: "invalid operator"
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Unknown column: Column does not exist in the current table
//	         Action: Pick a column from the list
//	         Patterns: "unknown column"
//
//	COL002 - Duplicate column: A column with that name already exists
//	         Action: Choose a different name for the new column
//	         Patterns: "column already exists"
//
//	COL003 - Invalid name: Column name is empty or too long
//	         Action: Enter a name between 1 and 64 characters
//	         Patterns: "invalid column name"
//
// # Session Errors (SESS001-SESS099)
//
//	SESS001 - Session expired: Session not found
//	          Action: Upload your file again
//	          Patterns: "session not found"
//
//	SESS002 - Capacity: Too many active sessions
//	          Action: Please try again in a few minutes
//	          Patterns: "too many sessions"
//
//	SESS003 - Nothing loaded: No table has been uploaded yet
//	          Action: Upload a CSV file first
//	          Patterns: "no table loaded"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid input: A form field is missing or malformed
//	         Action: Check the highlighted fields and submit again
//	         Patterns: "invalid input"
//
//	STAT001 - Insufficient data: Not enough numeric values for statistics
//	          Action: Select a column with at least two numbers
//	          Patterns: "insufficient data"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many uploads in progress
//	         Action: Please wait a moment and try again
//	         Patterns: "too many uploads"
//
//	UPL004 - Request cancelled: Request was cancelled
//	         Action: Please try again
//	         Patterns: "context canceled"
//
//	UPL005 - Request timeout: Request timed out
//	         Action: Try uploading a smaller file or check your connection
//	         Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Action: Please wait a moment before trying again
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Errors are matched against each entry's sentinel with errors.Is first,
// so column names and other user text inside a message never pick the code.
// Errors from outside this package that wrap no sentinel fall back to
// case-insensitive strings.Contains on the patterns. Either way the first
// match wins, so more specific entries come before general ones. A
// ParseError for an empty upload wraps ErrEmptyFile, which is why FILE005
// precedes FILE002.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern pairs a sentinel, and the text it reads as, with a user message.
type errorPattern struct {
	target  error
	pattern string
	msg     UserMessage
}

// errorPatterns maps sentinel errors and their text to user messages.
// The first matching entry wins, so order matters:
//   - More specific patterns should come before general ones
//   - Multiple patterns can map to the same error code
//
// To add a new error pattern:
//  1. Choose the appropriate category and code range
//  2. Add the pattern in the correct position (specific before general)
//  3. Update the package documentation at the top of this file
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors (FILE001-FILE007)
	// These errors occur when reading the uploaded file.
	// =========================================================================
	{
		target:  ErrFileTooLarge,
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Remove unneeded rows or columns and upload again",
			Code:    "FILE001",
		},
	},
	{
		target:  ErrEmptyFile,
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with a header row",
			Code:    "FILE005",
		},
	},
	{
		target:  ErrInvalidCSV,
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure every row has the same number of columns as the header",
			Code:    "FILE002",
		},
	},
	{
		target:  ErrNoFile,
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		target:  ErrTooManyRows,
		pattern: "too many rows",
		msg: UserMessage{
			Message: "File has more rows than the explorer can hold",
			Action:  "Split the file and explore the parts separately",
			Code:    "FILE006",
		},
	},
	{
		target:  ErrUnsupportedFormat,
		pattern: "unsupported file type",
		msg: UserMessage{
			Message: "Only .csv and .xlsx files are accepted",
			Action:  "Export the data as CSV and upload again",
			Code:    "FILE007",
		},
	},

	// =========================================================================
	// Arithmetic Errors (ARITH001-ARITH003)
	// These errors occur when computing a derived column.
	// =========================================================================
	{
		target:  ErrTypeMismatch,
		pattern: "type mismatch",
		msg: UserMessage{
			Message: "Arithmetic needs two numeric columns",
			Action:  "Pick columns marked as numeric",
			Code:    "ARITH001",
		},
	},
	{
		target:  ErrDivisionByZero,
		pattern: "division by zero",
		msg: UserMessage{
			Message: "Some rows divide by zero and show NaN",
			Action:  "Filter out zero divisors if NaN is not wanted",
			Code:    "ARITH002",
		},
	},
	{
		target:  ErrInvalidOperator,
		pattern: "invalid operator",
		msg: UserMessage{
			Message: "Operator must be one of + - * /",
			Action:  "Choose add, subtract, multiply or divide",
			Code:    "ARITH003",
		},
	},

	// =========================================================================
	// Column Errors (COL001-COL003)
	// These errors occur when a request names a column.
	// =========================================================================
	{
		target:  ErrUnknownColumn,
		pattern: "unknown column",
		msg: UserMessage{
			Message: "Column does not exist in the current table",
			Action:  "Pick a column from the list",
			Code:    "COL001",
		},
	},
	{
		target:  ErrDuplicateColumn,
		pattern: "column already exists",
		msg: UserMessage{
			Message: "A column with that name already exists",
			Action:  "Choose a different name for the new column",
			Code:    "COL002",
		},
	},
	{
		target:  ErrInvalidColumn,
		pattern: "invalid column name",
		msg: UserMessage{
			Message: "Column name is empty or too long",
			Action:  "Enter a name between 1 and 64 characters",
			Code:    "COL003",
		},
	},

	// =========================================================================
	// Session Errors (SESS001-SESS003)
	// These errors occur when the browser session is missing or empty.
	// =========================================================================
	{
		target:  ErrSessionNotFound,
		pattern: "session not found",
		msg: UserMessage{
			Message: "Your session has expired",
			Action:  "Upload your file again",
			Code:    "SESS001",
		},
	},
	{
		target:  ErrTooManySessions,
		pattern: "too many sessions",
		msg: UserMessage{
			Message: "Too many people are using the explorer",
			Action:  "Please try again in a few minutes",
			Code:    "SESS002",
		},
	},
	{
		target:  ErrNoTable,
		pattern: "no table loaded",
		msg: UserMessage{
			Message: "No table has been uploaded yet",
			Action:  "Upload a CSV file first",
			Code:    "SESS003",
		},
	},

	// =========================================================================
	// Validation and Statistics Errors (VAL001, STAT001)
	// These errors occur when form input or data is insufficient.
	// =========================================================================
	{
		target:  ErrInvalidInput,
		pattern: "invalid input",
		msg: UserMessage{
			Message: "A form field is missing or malformed",
			Action:  "Check the form fields and submit again",
			Code:    "VAL001",
		},
	},
	{
		target:  ErrInsufficientData,
		pattern: "insufficient data",
		msg: UserMessage{
			Message: "Not enough numeric values for statistics",
			Action:  "Select a column with at least two numbers",
			Code:    "STAT001",
		},
	},

	// =========================================================================
	// Upload Errors (UPL002-UPL005)
	// These errors occur while an upload is waiting or running.
	// =========================================================================
	{
		target:  ErrTooManyUploads,
		pattern: "too many uploads",
		msg: UserMessage{
			Message: "System is busy processing other uploads",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		target:  context.Canceled,
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		target:  context.DeadlineExceeded,
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try uploading a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// These errors occur when request limits are exceeded.
	// =========================================================================
	{
		target:  ErrRateLimited,
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// This is the fallback for unexpected errors. Support staff should check
// application logs for the original technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// An error wrapping one of the known sentinels maps to the first entry whose
// target it matches with errors.Is. Only when it wraps none of them is its
// text searched for the known patterns (case-insensitive). If nothing
// matches, a generic fallback message with code ERR000 is returned.
//
// Example:
//
//	msg := MapError(&TypeMismatchError{Column: "Region", Type: ColumnText})
//	// msg.Code == "ARITH001"
//	// msg.Message == "Arithmetic needs two numeric columns"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, ep := range errorPatterns {
		if ep.target != nil && errors.Is(err, ep.target) {
			return ep.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
//
// Example output: "No table has been uploaded yet (Code: SESS003). Upload a CSV file first"
//
// This is the primary function for displaying errors to end users.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
// Use this to decide whether to show the raw error or the mapped user message.
//
// Example:
//
//	if IsUserFacing(err) {
//	    showToUser(FormatUserError(err))
//	} else {
//	    log.Error(err) // Log technical error
//	    showToUser("An error occurred. Please try again.")
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}
