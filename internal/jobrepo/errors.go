package jobrepo

import "errors"

// ErrNotFound is returned when a job id has no directory on disk.
var ErrNotFound = errors.New("jobrepo: job not found")

// ErrConfigError is returned by Create for a malformed request (e.g. an
// empty command).
var ErrConfigError = errors.New("jobrepo: invalid job configuration")

// NewInvalidTransition returns an error naming the from/to states that
// unwraps to the jobrepo sentinel, so callers can errors.Is against a
// single value regardless of the specific states involved.
func NewInvalidTransition(from, to string) error {
	return &invalidTransitionError{from: from, to: to}
}

var errInvalidTransition = errors.New("jobrepo: invalid state transition")

type invalidTransitionError struct {
	from, to string
}

func (e *invalidTransitionError) Error() string {
	return "jobrepo: invalid state transition: " + e.from + " -> " + e.to
}

func (e *invalidTransitionError) Unwrap() error {
	return errInvalidTransition
}

// ErrInvalidTransition is the sentinel every invalidTransitionError wraps;
// match it with errors.Is.
var ErrInvalidTransition = errInvalidTransition
