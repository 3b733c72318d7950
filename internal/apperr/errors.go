// Package apperr holds the registry of typed failure kinds shared by every
// component of the gateway.
//
// Components return one of the root errors below, usually wrapped with
// context via Wrap or Wrapf. Callers test the kind with Is, and the HTTP
// layer maps it to a status with Kind.
package apperr

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a requested aggregate does not exist.
	ErrNotFound = Register("NotFound", http.StatusNotFound, "not found")

	// ErrConflict is returned when a uniqueness constraint is violated or
	// the aggregate is in a state that does not allow the operation.
	ErrConflict = Register("Conflict", http.StatusConflict, "conflict")

	// ErrInvalidChallenge is returned for unknown, expired or reused
	// authentication nonces.
	ErrInvalidChallenge = Register("InvalidChallenge", http.StatusUnauthorized, "invalid challenge")

	// ErrSignatureMismatch is returned when a signature does not recover to
	// the expected signer.
	ErrSignatureMismatch = Register("SignatureMismatch", http.StatusUnauthorized, "signature mismatch")

	// ErrNameInvalid is returned when a name fails the format policy.
	ErrNameInvalid = Register("NameInvalid", http.StatusUnprocessableEntity, "invalid name")

	// ErrNonceConflict is returned when a proposal does not use the next
	// unused nonce of its safe.
	ErrNonceConflict = Register("NonceConflict", http.StatusConflict, "nonce conflict")

	// ErrUnauthorized is returned when a session or signature is missing,
	// expired, or belongs to someone else.
	ErrUnauthorized = Register("Unauthorized", http.StatusUnauthorized, "unauthorized")

	// ErrForbidden is returned when the caller is known but the operation
	// is disabled for it.
	ErrForbidden = Register("Forbidden", http.StatusForbidden, "forbidden")

	// ErrInvalidAddress is returned for malformed EVM addresses.
	ErrInvalidAddress = Register("InvalidAddress", http.StatusUnprocessableEntity, "invalid address")

	// ErrInvalidInput stands for any other malformed request field.
	ErrInvalidInput = Register("InvalidInput", http.StatusUnprocessableEntity, "invalid input")

	// ErrUpstreamUnavailable wraps failures of the chain RPC or the indexer.
	ErrUpstreamUnavailable = Register("UpstreamUnavailable", http.StatusServiceUnavailable, "upstream unavailable")
)

var usedCodes = map[string]*Error{}

// Error is a root failure kind. Instances are created once with Register
// and compared by identity.
type Error struct {
	code   string
	status int
	desc   string
}

// Register returns a new root error. Registering the same code twice panics;
// call it only from package initialisation.
func Register(code string, status int, description string) *Error {
	if e, ok := usedCodes[code]; ok {
		panic(fmt.Sprintf("error with code %q is already registered: %q", code, e.desc))
	}
	e := &Error{code: code, status: status, desc: description}
	usedCodes[code] = e
	return e
}

func (e *Error) Error() string { return e.desc }

// Code returns the stable machine readable name of the kind.
func (e *Error) Code() string { return e.code }

// HTTPStatus returns the status code the kind is rendered with.
func (e *Error) HTTPStatus() int { return e.status }

// Wrap annotates err with msg, keeping its kind reachable.
func Wrap(err error, msg string) error {
	return errors.Wrap(err, msg)
}

// Wrapf is Wrap with formatting.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// Is reports whether err carries kind.
func Is(err error, kind *Error) bool {
	return stderrors.Is(err, kind)
}

// Kind returns the root kind carried by err.
func Kind(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Message returns the human readable part of err without the trailing kind
// description, e.g. "Address Book not found" for
// Wrap(ErrNotFound, "Address Book not found").
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if kind, ok := Kind(err); ok && msg != kind.desc {
		msg = strings.TrimSuffix(msg, ": "+kind.desc)
	}
	return msg
}
