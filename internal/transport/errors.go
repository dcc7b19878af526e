package transport

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a transport failure.
type Kind string

const (
	// KindRequest means the request could not be built (bad URL or body).
	KindRequest Kind = "request"
	// KindNetwork means the service could not be reached or the connection broke.
	KindNetwork Kind = "network"
	// KindStatus means the service answered with a non-2xx status.
	KindStatus Kind = "status"
	// KindDecode means a 2xx answer did not carry valid JSON.
	KindDecode Kind = "decode"
)

// Error is the single failure shape returned by Client.
type Error struct {
	Kind       Kind
	Method     string
	Path       string
	StatusCode int
	// Message is the service-supplied reason when one was present.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		if msg := strings.TrimSpace(e.Message); msg != "" {
			return fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
		}
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	case KindDecode:
		return fmt.Sprintf("invalid response from %s: %v", e.Path, e.Err)
	case KindNetwork:
		return fmt.Sprintf("service unreachable: %v", e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts a transport error from err.
func AsError(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// IsStatus reports whether err is a non-2xx answer with the given status code.
func IsStatus(err error, code int) bool {
	te, ok := AsError(err)
	return ok && te.Kind == KindStatus && te.StatusCode == code
}
