package remote

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError reports a 2xx answer whose body carries an error field.
type DomainError struct {
	Op      string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// IsDomainError reports whether err is a *DomainError.
func IsDomainError(err error) bool {
	var target *DomainError
	return errors.As(err, &target)
}

// ErrInvalidVideoName is returned for names the service refuses to delete.
var ErrInvalidVideoName = errors.New("invalid video name")

// ValidateVideoName applies the service's own delete check before any request
// is sent: empty names, path separators, and any ".." are refused. The ".."
// rule also rejects harmless names such as "clip..final.mp4", which the
// service would reject the same way.
func ValidateVideoName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidVideoName)
	case containsAny(name, "/", "\\", ".."):
		return fmt.Errorf("%w: %q must be a bare file name", ErrInvalidVideoName, name)
	}
	return nil
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
