package oasrt

import (
	"errors"
	"net/http"
)

// Sentinel errors for request binding. Binding failures wrap the location
// sentinel together with the cause, so both match with errors.Is.
var (
	ErrBindPath   = errors.New("bind path")
	ErrBindQuery  = errors.New("bind query")
	ErrBindHeader = errors.New("bind header")
	ErrBindCookie = errors.New("bind cookie")
	ErrBindBody   = errors.New("bind body")

	// ErrMissingParameter reports a required value absent from the request.
	ErrMissingParameter = errors.New("missing required parameter")
	// ErrAllBodyParsersFailed reports that no candidate media type could
	// decode the request body.
	ErrAllBodyParsersFailed = errors.New("unparseable body: all body parsers failed")
	// ErrUnsupportedMediaType reports a body media type with no decoder.
	ErrUnsupportedMediaType = errors.New("unsupported media type")
)

// StatusCoder is implemented by errors and results that carry an HTTP
// status code. Tagged result variants implement it.
type StatusCoder interface {
	StatusCode() int
}

// Payloader is implemented by union cases and result variants; Payload
// returns the wrapped value, or nil for variants without content.
type Payloader interface {
	Payload() any
}

// IsBindError reports whether err happened while binding a request, before
// the handler ran.
func IsBindError(err error) bool {
	for _, s := range []error{ErrBindPath, ErrBindQuery, ErrBindHeader, ErrBindCookie, ErrBindBody} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// ErrorStatus maps err to an HTTP status code. Binding failures are client
// errors; StatusCoder errors carry their own code.
func ErrorStatus(err error) int {
	var sc StatusCoder
	switch {
	case errors.As(err, &sc) && sc.StatusCode() > 0:
		return sc.StatusCode()
	case errors.Is(err, ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case IsBindError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
