package core

// convert.go turns raw cell text into typed values.
//
// These functions handle the messy reality of user-provided CSV data:
//   - The usual spreadsheet spellings of "no value" (NA, N/A, null, #N/A ...)
//   - Excel formula prefixes (="value") in header cells
//   - Blank and repeated header names
//
// Number parsing is strict: currency symbols and thousands separators make a
// cell text, which in turn makes its whole column text.

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// missingMarkers are cell spellings read as "no value", compared after trimming.
var missingMarkers = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-NaN":     {},
	"-nan":     {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"1.#IND":   {},
	"1.#QNAN":  {},
}

// IsMissingText reports whether raw cell text means "no value".
func IsMissingText(s string) bool {
	_, ok := missingMarkers[strings.TrimSpace(s)]
	return ok
}

// ParseNumber parses cell text as a decimal. Surrounding whitespace is ignored.
// Numbers too large or too small for a float64 are rejected, so such cells
// read as text.
func ParseNumber(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if !numericRegex.MatchString(s) {
		return decimal.Zero, false
	}

	// decimal.NewFromString wants digits on both sides of the point
	s = strings.TrimPrefix(s, "+")
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	if i := strings.IndexAny(s, "eE"); i > 0 && s[i-1] == '.' {
		s = s[:i-1] + s[i:]
	} else if strings.HasSuffix(s, ".") {
		s = strings.TrimSuffix(s, ".")
	}
	if neg {
		s = "-" + s
	}

	d, err := decimal.NewFromString(s)
	if err != nil || !inRange(d) {
		return decimal.Zero, false
	}
	return d, true
}

// Exponent bounds for parsed cells, roughly float64's range. Aligning
// operands with exponents far outside it means building powers of ten with
// millions of digits.
const (
	maxMagnitude = 308
	minExponent  = -400
)

// inRange reports whether d's exponent and order of magnitude fall inside
// the bounds above. Zero counts with magnitude 0.
func inRange(d decimal.Decimal) bool {
	exp := int64(d.Exponent())
	if exp < minExponent {
		return false
	}
	digits := int64(len(d.Coefficient().Text(10)))
	if d.Sign() < 0 {
		digits--
	}
	return exp+digits-1 <= maxMagnitude
}

// ParseValue classifies raw cell text. The raw text is kept verbatim.
func ParseValue(raw string) Value {
	if IsMissingText(raw) {
		return Value{Kind: KindMissing, Raw: raw}
	}
	if d, ok := ParseNumber(raw); ok {
		return Value{Kind: KindNumber, Raw: raw, Num: d}
	}
	return Value{Kind: KindText, Raw: raw}
}

// CleanCell removes common CSV artifacts from a header cell:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	// Remove leading '='
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	// Remove any surrounding quotes
	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

// NormalizeHeaders cleans header cells, names blank ones Column_N (1-based)
// and suffixes repeats with .1, .2 so every name is unique.
func NormalizeHeaders(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	taken := make(map[string]struct{}, len(header))

	for i, h := range header {
		h = CleanCell(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		taken[h] = struct{}{}
		names[i] = h
	}

	// second pass so a later "A" cannot collide with an earlier generated "A.1"
	used := make(map[string]struct{}, len(header))
	for i, h := range names {
		if _, dup := used[h]; !dup {
			used[h] = struct{}{}
			continue
		}
		n := seen[h]
		for {
			n++
			candidate := fmt.Sprintf("%s.%d", h, n)
			_, inUse := used[candidate]
			_, original := taken[candidate]
			if !inUse && !original {
				names[i] = candidate
				used[candidate] = struct{}{}
				break
			}
		}
		seen[h] = n
	}

	return names
}

// MakeHeaderIndex maps column names to positions.
// Keys are lowercased for case-insensitive lookups; the first of several
// names that fold together wins.
func MakeHeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(h)
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	return idx
}
