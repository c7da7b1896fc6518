// Package remote defines the error type shared by every external collaborator
// of the storefront session: the identity service, the profile store and the
// blob store.
//
// A collaborator maps its own failures (SQL errors, S3 API errors, bad
// credentials) into a *Error carrying a stable code and a human-readable
// message. Workflows that surface failures to the user render them with
// Describe, which yields the "(code) message" fragment used in notifications.
package remote

import (
	"errors"
	"fmt"
)

// Service names used in Error.Service.
const (
	ServiceIdentity = "identity"
	ServiceProfile  = "profile"
	ServiceBlob     = "blob"
)

// CodeUnknown is reported by Describe for errors that are not *Error.
const CodeUnknown = "unknown"

// Error is a failure reported by an external service.
type Error struct {
	// Service identifies the collaborator that failed.
	Service string

	// Code is the machine-readable error code, e.g. "auth/wrong-password".
	Code string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("%s: (%s) %s", e.Service, e.Code, e.Message)
	}
	return fmt.Sprintf("(%s) %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error without an underlying cause.
func New(service, code, message string) *Error {
	return &Error{Service: service, Code: code, Message: message}
}

// Wrap creates an Error around a lower-level cause. The cause's text becomes
// the message. Wrap returns nil when err is nil, and returns err unchanged
// when it already is a *Error.
func Wrap(service, code string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	return &Error{Service: service, Code: code, Message: err.Error(), Err: err}
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code string) bool {
	re, ok := As(err)
	return ok && re.Code == code
}

// Describe renders err as "(code) message". Errors that did not come from a
// collaborator are reported with CodeUnknown and their Error() text.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if re, ok := As(err); ok {
		return fmt.Sprintf("(%s) %s", re.Code, re.Message)
	}
	return fmt.Sprintf("(%s) %s", CodeUnknown, err.Error())
}
