package core

// convert.go provides type conversion for raw CSV cells.
//
// These functions handle the messy reality of exported survey and assay
// sheets:
//   - Thousands separators and stray whitespace in numbers
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Excel formula prefixes (="value")
//   - Surrounding quotes left behind by spreadsheet exports
//
// Coordinates must be finite; NaN and Inf spellings are rejected.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// thousandsRegex matches numbers grouped with comma thousands separators.
var thousandsRegex = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d*)?$`)

// ParseNumber converts a cleaned cell into a finite float64.
// Comma thousands separators are accepted only in well-formed groups
// ("1,234.5"); a comma is never treated as a decimal mark.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, ",") {
		if !thousandsRegex.MatchString(s) {
			return 0, false
		}
		s = strings.ReplaceAll(s, ",", "")
	}

	if !numericRegex.MatchString(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ParseBool accepts true/false, yes/no, t/f, y/n and 1/0.
func ParseBool(s string) (value bool, ok bool) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

// AsInteger returns the integral value of v when v is a number with no
// fractional part.
func AsInteger(v Value) (int, bool) {
	var f float64
	switch v.Kind {
	case ValueNumber:
		f = v.Num
	case ValueText:
		n, ok := ParseNumber(v.Str)
		if !ok {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// AsNumber returns v as a float64 when it is numeric or numeric text.
func AsNumber(v Value) (float64, bool) {
	switch v.Kind {
	case ValueNumber:
		return v.Num, true
	case ValueText:
		return ParseNumber(v.Str)
	default:
		return 0, false
	}
}

// AsBool interprets v as a boolean flag. Null is false.
func AsBool(v Value) (bool, bool) {
	switch v.Kind {
	case ValueNull:
		return false, true
	case ValueNumber:
		if v.Num == 0 {
			return false, true
		}
		if v.Num == 1 {
			return true, true
		}
		return false, false
	default:
		return ParseBool(v.Str)
	}
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}
