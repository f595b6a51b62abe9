// Package apperr is the error taxonomy shared by the ledger, the data layer and the HTTP surface.
package apperr

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Kind string

const (
	KindValidation          Kind = "VALIDATION"
	KindUnauthenticated     Kind = "UNAUTHENTICATED"
	KindAuthorization       Kind = "FORBIDDEN"
	KindNotFound            Kind = "NOT_FOUND"
	KindConflict            Kind = "CONFLICT"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindInvalidTransfer     Kind = "INVALID_TRANSFER"
)

// Sentinels for errors.Is; an *Error matches the sentinel of its kind.
var (
	ErrValidation          = &Error{Kind: KindValidation, Message: "invalid request"}
	ErrUnauthenticated     = &Error{Kind: KindUnauthenticated, Message: "unauthorized"}
	ErrForbidden           = &Error{Kind: KindAuthorization, Message: "forbidden"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	ErrConflict            = &Error{Kind: KindConflict, Message: "conflict"}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance, Message: "insufficient points"}
	ErrInvalidTransfer     = &Error{Kind: KindInvalidTransfer, Message: "invalid transfer"}
)

type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

func Unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Message: msg} }

func Forbidden(msg string) *Error { return &Error{Kind: KindAuthorization, Message: msg} }

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Message: msg} }

func InsufficientBalance(msg string) *Error {
	return &Error{Kind: KindInsufficientBalance, Message: msg}
}

func InvalidTransfer(msg string) *Error { return &Error{Kind: KindInvalidTransfer, Message: msg} }

// FromValidator converts validator errors into a Validation error with per-field detail.
func FromValidator(err error) *Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Kind: KindValidation, Message: "invalid request", Err: err}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[lowerFirst(fe.Field())] = fe.Tag()
	}
	return Validation("invalid request", fields)
}

// HTTPStatus maps an error to the response status; unknown errors are 500.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation, KindInsufficientBalance, KindInvalidTransfer:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
