package services

import (
	"errors"
	"fmt"
	"net/http"

	"falcontour/src/repository"
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindConflict
	KindExternal
	KindUnauthorized
	KindForbidden
	// KindAnomaly marks input that was accepted but looked wrong, such as an
	// unknown checkout session.
	KindAnomaly
)

type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindExternal:
		return http.StatusBadGateway
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindAnomaly:
		return http.StatusOK
	}
	return http.StatusInternalServerError
}

func validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func conflict(msg string) error {
	return &Error{Kind: KindConflict, Msg: msg}
}

func forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

func unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Msg: msg}
}

func external(op string, err error) error {
	return &Error{Kind: KindExternal, Msg: fmt.Sprintf("%s: %s", op, err.Error()), Err: err}
}

func anomaly(msg string) error {
	return &Error{Kind: KindAnomaly, Msg: msg}
}

// notFound maps repository.ErrNotFound onto a KindNotFound error naming what.
// Other errors pass through untouched.
func notFound(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &Error{Kind: KindNotFound, Msg: what + " not found", Err: err}
	}
	return err
}

// KindOf returns the kind of err, or 0 when it is not a service error.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
