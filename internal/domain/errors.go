package domain

import (
	"errors"
	"fmt"
)

// Failure kinds reported by the lookup adapters.
var (
	ErrSearchFailed  = errors.New("search failed")
	ErrResolveFailed = errors.New("resolve failed")

	// ErrEmptyResolution means a reverse geocode matched nothing. It is not
	// a failure and callers do not raise an error notification for it.
	ErrEmptyResolution = errors.New("empty resolution")
)

// LookupError is an upstream failure of a given kind. errors.Is matches both
// the kind and the wrapped cause.
type LookupError struct {
	Kind error
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *LookupError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// SearchFailed wraps err as an autocomplete failure.
func SearchFailed(err error) error {
	return &LookupError{Kind: ErrSearchFailed, Err: err}
}

// ResolveFailed wraps err as a details or reverse geocode failure.
func ResolveFailed(err error) error {
	return &LookupError{Kind: ErrResolveFailed, Err: err}
}

// UpstreamMessage returns the message shown to users for err: the upstream
// cause without the failure kind prefix.
func UpstreamMessage(err error) string {
	var le *LookupError
	if errors.As(err, &le) && le.Err != nil {
		return le.Err.Error()
	}
	return err.Error()
}
