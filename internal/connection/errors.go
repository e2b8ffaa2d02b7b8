package connection

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrConnection matches every error produced from a remote response
	ErrConnection = errors.New("connection error")

	ErrRedirection        = errors.New("redirection")
	ErrClientError        = errors.New("client error")
	ErrBadRequest         = errors.New("bad request")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrForbidden          = errors.New("forbidden access")
	ErrResourceNotFound   = errors.New("resource not found")
	ErrMethodNotAllowed   = errors.New("method not allowed")
	ErrResourceConflict   = errors.New("resource conflict")
	ErrResourceGone       = errors.New("resource gone")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrResourceInvalid    = errors.New("resource invalid")
	ErrTooManyRequests    = errors.New("too many requests")
	ErrServerError        = errors.New("server error")
	ErrTimeout            = errors.New("request timed out")

	// ErrMissingSite is returned by New without a site URL
	ErrMissingSite = errors.New("missing site URI")
)

// Error describes a response whose status code is not a success
type Error struct {
	Code   int
	Method string
	Path   string
	Body   []byte
	Header http.Header

	kind error
}

func newError(code int, method, path string, body []byte, header http.Header) *Error {
	return &Error{
		Code:   code,
		Method: method,
		Path:   path,
		Body:   body,
		Header: header,
		kind:   classify(code),
	}
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %v. Response code = %d.", e.Method, e.Path, e.kind, e.Code)
	if text := http.StatusText(e.Code); text != "" {
		fmt.Fprintf(&b, " Response message = %s.", text)
	}
	if loc := e.Location(); loc != "" && e.kind == ErrRedirection {
		b.WriteString(" => " + loc)
	}
	return b.String()
}

// Unwrap returns the status sentinel, e.g. ErrResourceNotFound for a 404
func (e *Error) Unwrap() error {
	return e.kind
}

// Is reports membership in the status class as well as the exact sentinel,
// so a 404 also matches ErrClientError and every Error matches ErrConnection.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConnection:
		return true
	case ErrClientError:
		return e.Code >= 400 && e.Code < 500
	}
	return false
}

// Location returns the Location response header, set on redirects
func (e *Error) Location() string {
	if e.Header == nil {
		return ""
	}
	return e.Header.Get("Location")
}

func classify(code int) error {
	switch code {
	case 301, 302, 303, 307:
		return ErrRedirection
	}
	switch {
	case code >= 200 && code < 400:
		return nil
	case code == 400:
		return ErrBadRequest
	case code == 401:
		return ErrUnauthorized
	case code == 403:
		return ErrForbidden
	case code == 404:
		return ErrResourceNotFound
	case code == 405:
		return ErrMethodNotAllowed
	case code == 409:
		return ErrResourceConflict
	case code == 410:
		return ErrResourceGone
	case code == 412:
		return ErrPreconditionFailed
	case code == 422:
		return ErrResourceInvalid
	case code == 429:
		return ErrTooManyRequests
	case code > 400 && code < 500:
		return ErrClientError
	case code >= 500 && code < 600:
		return ErrServerError
	}
	return ErrConnection
}
