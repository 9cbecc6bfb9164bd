package common

import (
	"errors"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/derekxu16/dishsoap/internal/token"
)

// ErrorKind represents the category of a compile error.
type ErrorKind int

// The error kinds.
const (
	SyntaxError ErrorKind = iota
	UnknownIdentifier
	UnknownClass
	UnknownField
	ArityMismatch
	TypeMismatch
	CyclicClass
	InternalLoweringError
)

var kinds = [...]string{
	SyntaxError:           "syntax error",
	UnknownIdentifier:     "unknown identifier",
	UnknownClass:          "unknown class",
	UnknownField:          "unknown field",
	ArityMismatch:         "arity mismatch",
	TypeMismatch:          "type mismatch",
	CyclicClass:           "cyclic class",
	InternalLoweringError: "internal lowering error",
}

func (k ErrorKind) String() string {
	if 0 <= k && int(k) < len(kinds) {
		return kinds[k]
	}
	return fmt.Sprintf("error(%d)", int(k))
}

// Error makes a kind usable as a target for errors.Is.
func (k ErrorKind) Error() string {
	return k.String()
}

// Error is a single compile error.
type Error struct {
	Pos  token.Position
	Kind ErrorKind
	Msg  string
}

// NewError creates an error without a source position.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Pos: token.NoPosition, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// NewErrorAt creates an error at pos.
func NewErrorAt(pos token.Position, kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Pos: pos, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
	} else if len(e.Pos.Filename) > 0 {
		return fmt.Sprintf("%s: %s: %s", e.Pos.Filename, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	if kind, ok := target.(ErrorKind); ok {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind, true
	}
	return 0, false
}

// ErrorList collects errors from phases that recover and continue.
type ErrorList struct {
	Errors []*Error
}

// Add appends a syntax error at pos.
func (e *ErrorList) Add(pos token.Position, format string, args ...interface{}) {
	e.Errors = append(e.Errors, NewErrorAt(pos, SyntaxError, format, args...))
}

// AddGeneric appends err, unwrapping lists and kinded errors.
func (e *ErrorList) AddGeneric(err error) {
	var list *ErrorList
	var cerr *Error
	if errors.As(err, &list) {
		e.Errors = append(e.Errors, list.Errors...)
	} else if errors.As(err, &cerr) {
		e.Errors = append(e.Errors, cerr)
	} else {
		e.Add(token.NoPosition, "%s", err)
	}
}

// Count returns the number of errors.
func (e *ErrorList) Count() int {
	return len(e.Errors)
}

// IsError returns true if at least one error was added.
func (e *ErrorList) IsError() bool {
	return len(e.Errors) > 0
}

// Truncate drops every error added after the first n.
func (e *ErrorList) Truncate(n int) {
	e.Errors = e.Errors[:n]
}

// Sort errors by filename and line numbers.
func (e *ErrorList) Sort() {
	slices.SortStableFunc(e.Errors, func(a, b *Error) int {
		if a.Pos.Before(b.Pos) {
			return -1
		} else if b.Pos.Before(a.Pos) {
			return 1
		}
		return 0
	})
}

// Err returns nil if the list is empty, otherwise the list itself.
func (e *ErrorList) Err() error {
	if !e.IsError() {
		return nil
	}
	return e
}

// Is matches the kind of the first error.
func (e *ErrorList) Is(target error) bool {
	if len(e.Errors) == 0 {
		return false
	}
	return e.Errors[0].Is(target)
}

func (e *ErrorList) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e.Errors[0].Error(), len(e.Errors)-1)
}
