// Package errkind defines the error kinds shared by the metrics engine.
// Domain packages wrap one of these with %w so transports can map them
// using errors.Is without knowing domain details.
package errkind

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidInput    = errors.New("invalid_input")
	ErrConflict        = errors.New("conflict")
	ErrUpstream        = errors.New("upstream_failure")
)

// Upstream wraps a storage or dependency failure.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}

// Conflict wraps a uniqueness violation. Callers that treat the existing
// row as the outcome check for it with errors.Is.
func Conflict(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
}

// Invalid builds an invalid-input error with a field level reason.
func Invalid(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, reason)
}

// ItemFailure is one failed unit inside a batch.
type ItemFailure struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// PartialFailure reports a batch where some items failed.
type PartialFailure struct {
	Failures []ItemFailure
}

func (e *PartialFailure) Error() string {
	keys := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		keys = append(keys, f.Key)
	}
	return fmt.Sprintf("partial_failure: %d failed (%s)", len(e.Failures), strings.Join(keys, ","))
}

func IsPartialFailure(err error) bool {
	var pf *PartialFailure
	return errors.As(err, &pf)
}
