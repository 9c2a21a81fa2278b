package listquery

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies errors surfaced by a Controller.
type ErrorKind string

const (
	// KindNetwork covers transport failures and timeouts.
	KindNetwork ErrorKind = "network"
	// KindServer covers non-2xx structured responses from the data source.
	KindServer ErrorKind = "server"
	// KindValidation covers malformed filter, sort or page input. These are
	// returned synchronously and never reach the data source.
	KindValidation ErrorKind = "validation"
	// KindStale marks a response that lost to a newer one. It is only logged.
	KindStale ErrorKind = "stale"
)

// Error is the structured error a Controller stores and returns.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	// Status is the HTTP status for KindServer errors, zero otherwise.
	Status int `json:"status,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s error (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether calling Fetch again may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindServer
}

// ServerError builds a KindServer error for a data source adapter.
func ServerError(status int, message string) *Error {
	return &Error{Kind: KindServer, Status: status, Message: message}
}

// NetworkError builds a KindNetwork error wrapping the transport failure.
func NetworkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: err.Error(), cause: err}
}

func validationErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// errClosed is returned by mutators called after Close.
var errClosed = &Error{Kind: KindValidation, Message: "controller is closed"}

// statusCoder is implemented by transport errors that carry an HTTP status,
// such as client.APIError.
type statusCoder interface {
	HTTPStatus() int
}

// Normalize converts any data source error into an *Error. Errors that are
// already structured pass through; errors carrying a status of 400 or more
// become KindServer; everything else is treated as a transport failure.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return le
	}
	var sc statusCoder
	if errors.As(err, &sc) && sc.HTTPStatus() >= 400 {
		return &Error{Kind: KindServer, Status: sc.HTTPStatus(), Message: err.Error(), cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindNetwork, Message: "request timed out", cause: err}
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return &Error{Kind: KindNetwork, Message: ne.Error(), cause: err}
	}
	return &Error{Kind: KindNetwork, Message: err.Error(), cause: err}
}
