package core

import (
	"errors"
	"fmt"
	"sort"
)

// Sentinel errors for the fatal failure classes of a build request.
// Typed errors below unwrap to one of these so callers can use errors.Is.
var (
	ErrMalformedInput    = errors.New("malformed input")
	ErrMissingColumn     = errors.New("missing column")
	ErrPersistence       = errors.New("persistence failure")
	ErrUnknownObjectType = errors.New("unknown object type")
	ErrInvalidRequest    = errors.New("invalid build request")
	ErrOutsideDataDir    = errors.New("outside the data directory")
)

// MalformedInputError describes an unparseable file or an unusable cell.
// Line and Column are zero/empty when the problem is not cell-specific.
type MalformedInputError struct {
	Table  string
	Line   int
	Column string
	Reason string
}

func (e *MalformedInputError) Error() string {
	msg := "malformed input"
	if e.Table != "" {
		msg += fmt.Sprintf(" in table %q", e.Table)
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	return msg + ": " + e.Reason
}

func (e *MalformedInputError) Unwrap() error { return ErrMalformedInput }

// malformed is shorthand for building a MalformedInputError.
func malformed(table string, line int, column, format string, args ...any) error {
	return &MalformedInputError{
		Table:  table,
		Line:   line,
		Column: column,
		Reason: fmt.Sprintf(format, args...),
	}
}

// MissingColumnError reports a mapping role that does not resolve to a
// column of its table. Detail replaces the role description when the
// whole table, rather than one role, cannot be bound.
type MissingColumnError struct {
	Table  string
	Role   string
	Column string
	Detail string
}

func (e *MissingColumnError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("missing column: table %q: %s", e.Table, e.Detail)
	}
	if e.Column == "" {
		return fmt.Sprintf("missing column: table %q: role %q is required but not mapped", e.Table, e.Role)
	}
	return fmt.Sprintf("missing column: table %q: role %q references column %q which is not in the header", e.Table, e.Role, e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingColumn }

// PersistenceError wraps a failure reported by the persistence sink.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %v", e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
