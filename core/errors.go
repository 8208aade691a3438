package core

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors used between adapters and the service layer.
var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrWeakPassword     = errors.New("password does not meet policy")
	ErrTokenExpired     = errors.New("token has expired")
	ErrInvalidToken     = errors.New("invalid token")
)

// Kind names one terminal failure of the auth protocol. The set is closed:
// every failure leaving the service layer carries exactly one of these.
type Kind string

const (
	KindAlreadyExists       Kind = "already_exists"
	KindCreationFailed      Kind = "creation_failed"
	KindInvalidCredentials  Kind = "invalid_credentials"
	KindAddressMismatch     Kind = "address_mismatch"
	KindSignatureInvalid    Kind = "signature_invalid"
	KindRefreshTokenInvalid Kind = "refresh_token_invalid"
	KindForbidden           Kind = "forbidden"
	KindUnauthorized        Kind = "unauthorized"
	KindConflict            Kind = "conflict"
	KindSomethingWentWrong  Kind = "something_went_wrong"
)

// statusByKind is the only place an error kind maps to an HTTP status.
var statusByKind = map[Kind]int{
	KindAlreadyExists:       http.StatusConflict,
	KindCreationFailed:      http.StatusInternalServerError,
	KindInvalidCredentials:  http.StatusUnauthorized,
	KindAddressMismatch:     http.StatusUnauthorized,
	KindSignatureInvalid:    http.StatusUnauthorized,
	KindRefreshTokenInvalid: http.StatusNotFound,
	KindForbidden:           http.StatusForbidden,
	KindUnauthorized:        http.StatusUnauthorized,
	KindConflict:            http.StatusConflict,
	KindSomethingWentWrong:  http.StatusInternalServerError,
}

// Error is the closed tagged error crossing the service boundary.
type Error struct {
	Kind       Kind
	HTTPStatus int
	cause      error
}

// NewError builds a tagged error of the given kind, optionally wrapping a
// cause. The cause is kept for errors.Is/As and logs; it is never surfaced
// to callers.
func NewError(kind Kind, cause error) *Error {
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &Error{Kind: kind, HTTPStatus: status, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.cause)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches two tagged errors by kind, so tests can compare against a bare
// NewError(kind, nil).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// WrapUnexpected folds any error that is not already tagged into
// KindSomethingWentWrong so internal detail never reaches the caller.
func WrapUnexpected(err error) *Error {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged
	}
	return NewError(KindSomethingWentWrong, err)
}

// KindOf extracts the kind of a tagged error, or KindSomethingWentWrong.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return KindSomethingWentWrong
}
