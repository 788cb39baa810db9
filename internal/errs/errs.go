// Package errs implements the closed error-kind taxonomy of spec §7.
// No third-party error library appears anywhere in the retrieved
// example pack (the teacher and badwolf both wrap with bare
// fmt.Errorf("%w", ...)), so this stays on the standard errors/fmt
// packages rather than introducing one.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories spec.md §7 names.
type Kind string

const (
	KindSyntax          Kind = "syntax"
	KindUnsupported     Kind = "unsupported"
	KindStorage         Kind = "storage"
	KindType            Kind = "type"
	KindUnboundVariable Kind = "unbound_variable"
	KindDivisionByZero  Kind = "division_by_zero"
	KindResourceLimit   Kind = "resource_limit"
	KindInconsistency   Kind = "inconsistency"
	KindUndefinedPrefix Kind = "undefined_prefix"
)

// Error is the common shape for every graphon error: a Kind, a
// human-readable detail, and an optional wrapped cause.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is supports errors.Is comparisons against a Kind-only sentinel
// created by New(kind, "").
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Detail == "" && t.Cause == nil && t.Kind == e.Kind
}

func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func Wrap(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}

func Syntax(pos int, detail string) *Error {
	return New(KindSyntax, fmt.Sprintf("at position %d: %s", pos, detail))
}

func Unsupported(feature string) *Error {
	return New(KindUnsupported, feature)
}

func Storage(cause error) *Error {
	return Wrap(KindStorage, "storage backend failure", cause)
}

func Type(detail string) *Error {
	return New(KindType, detail)
}

func UnboundVariable(name string) *Error {
	return New(KindUnboundVariable, fmt.Sprintf("variable ?%s is unbound", name))
}

func DivisionByZero() *Error {
	return New(KindDivisionByZero, "division by zero")
}

func ResourceLimit(detail string) *Error {
	return New(KindResourceLimit, detail)
}

func Inconsistency(detail string) *Error {
	return New(KindInconsistency, detail)
}

func UndefinedPrefix(name string) *Error {
	return New(KindUndefinedPrefix, fmt.Sprintf("undefined prefix %q", name))
}

// Is is a package-level convenience wrapping errors.Is.
func Is(err error, kind Kind) bool {
	return errors.Is(err, New(kind, ""))
}
