// Package apperr defines the error taxonomy shared by the HTTP handlers and
// the analysis/job pipelines. Every Error separates an internal diagnostic
// string (logged server-side) from a user-safe Message that can be returned
// to clients verbatim.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP status mapping and logging.
type Kind int

const (
	// KindUnknown is an unclassified internal error.
	KindUnknown Kind = iota

	// KindInvalidInput means the request was missing required media or fields.
	KindInvalidInput

	// KindConfig means a required credential or setting is absent.
	KindConfig

	// KindUpstream means the AI endpoint returned a non-2xx status.
	KindUpstream

	// KindNoContent means the AI endpoint returned no candidates,
	// typically due to safety filters.
	KindNoContent

	// KindMalformedResponse means the AI returned text that is not valid JSON.
	KindMalformedResponse

	// KindNotFound means the requested job or resource does not exist.
	KindNotFound
)

// Error carries a classified failure with a client-safe message and an
// internal detail string. Detail must never be written to a client response.
type Error struct {
	Kind    Kind
	Message string // user-safe, localized
	Detail  string // internal diagnostics
	Err     error  // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an Error with the given kind, user-safe message, and internal detail.
func New(kind Kind, message, detail string) *Error {
	return &Error{Kind: kind, Message: message, Detail: detail}
}

// Wrap creates an Error wrapping an underlying cause.
func Wrap(kind Kind, message, detail string, err error) *Error {
	return &Error{Kind: kind, Message: message, Detail: detail, Err: err}
}

// KindOf extracts the Kind from err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// ClientMessage returns the user-safe message for err. Unclassified errors map
// to a generic message so internal details never leak to clients.
func ClientMessage(err error, fallback string) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return fallback
}

// HTTPStatus maps an error kind to its response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindNoContent:
		return http.StatusUnprocessableEntity
	case KindUpstream:
		return http.StatusBadGateway
	case KindConfig, KindMalformedResponse:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
