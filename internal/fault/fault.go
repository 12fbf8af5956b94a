package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure so transports can map it to a response
// without string-matching messages.
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindPrecondition      Kind = "PRECONDITION"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindNotFound          Kind = "NOT_FOUND"
	KindAuthorization     Kind = "AUTHORIZATION"
)

type Error struct {
	Kind     Kind
	Entity   string // e.g. "order", "unit", "bulk_stock"
	ID       string
	Expected string
	Actual   string
	Msg      string
}

func (e *Error) Error() string {
	s := string(e.Kind)
	if e.Entity != "" {
		s += " " + e.Entity
		if e.ID != "" {
			s += " " + e.ID
		}
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Expected != "" || e.Actual != "" {
		s += fmt.Sprintf(" (expected %s, got %s)", e.Expected, e.Actual)
	}
	return s
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Precondition(entity, id, expected, actual string) *Error {
	return &Error{Kind: KindPrecondition, Entity: entity, ID: id, Expected: expected, Actual: actual}
}

func InsufficientStock(entity, id string, required, available int) *Error {
	return &Error{
		Kind: KindInsufficientStock, Entity: entity, ID: id,
		Expected: fmt.Sprintf("%d", required), Actual: fmt.Sprintf("%d", available),
		Msg: "insufficient stock",
	}
}

func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, ID: id}
}

func Authorization(format string, args ...any) *Error {
	return &Error{Kind: KindAuthorization, Msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is (or wraps) a *Error of the given kind.
func IsKind(err error, k Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == k
}
