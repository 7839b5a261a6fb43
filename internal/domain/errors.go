package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks malformed input rows or fields.
	ErrParse = errors.New("parse error")
	// ErrUsage marks a call with missing or contradictory parameters.
	ErrUsage = errors.New("usage error")
)

// ParseError describes a malformed input row. Line is 1-based for text input
// and the row index for in-memory rows.
type ParseError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse line %d field %s %q: %v", e.Line, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

// UsageError reports an invalid call, e.g. a missing averaging level.
type UsageError struct {
	Op  string
	Msg string
}

func (e *UsageError) Error() string { return e.Op + ": " + e.Msg }

func (e *UsageError) Unwrap() error { return ErrUsage }

func usageErrorf(op, format string, args ...any) error {
	return &UsageError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
