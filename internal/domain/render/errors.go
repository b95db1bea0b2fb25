package render

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Render failure taxonomy. Store unavailability is deliberately absent:
// persistence failures only downgrade the StateStored flag, they never
// surface as render errors.
var (
	// ErrInvalidArgument marks a missing or malformed URL, rejected before
	// any resource is allocated.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNavigationTimeout marks a navigation that exceeded the hard ceiling.
	ErrNavigationTimeout = errors.New("navigation timeout")

	// ErrNetworkFailure marks an engine-reported low-level network error.
	ErrNetworkFailure = errors.New("network failure")

	// ErrRenderFailed marks any other engine failure.
	ErrRenderFailed = errors.New("render failed")
)

// classify maps a raw engine error into the taxonomy. Chromium reports
// low-level network problems as net::ERR_* navigation reasons; deadline
// errors from the navigation context are timeouts.
func classify(err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "timeout"):
		return fmt.Errorf("%w: %s", ErrNavigationTimeout, msg)
	case strings.Contains(msg, "net::ERR"):
		return fmt.Errorf("%w: %s", ErrNetworkFailure, msg)
	default:
		return fmt.Errorf("%w: %s", ErrRenderFailed, msg)
	}
}

// StatusFor maps a classified render error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrNavigationTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrNetworkFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
