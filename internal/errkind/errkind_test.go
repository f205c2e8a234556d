package errkind

import (
	"errors"
	"fmt"
	"testing"
)

func TestUpstreamWrapsBoth(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream("session.upsert", cause)
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream kind, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	if Upstream("noop", nil) != nil {
		t.Fatalf("expected nil for nil cause")
	}
}

func TestConflictWrapsBoth(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed")
	err := Conflict("dailymetric.insert", cause)
	if !errors.Is(err, ErrConflict) || !errors.Is(err, cause) {
		t.Fatalf("expected conflict kind and cause, got %v", err)
	}
	if errors.Is(err, ErrUpstream) {
		t.Fatalf("conflict must not read as upstream")
	}
	if Conflict("noop", nil) != nil {
		t.Fatalf("expected nil for nil cause")
	}
}

func TestPartialFailureDetection(t *testing.T) {
	err := fmt.Errorf("productivity: %w", &PartialFailure{Failures: []ItemFailure{{Key: "u1", Reason: "boom"}}})
	if !IsPartialFailure(err) {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if IsPartialFailure(ErrInvalidInput) {
		t.Fatalf("invalid input must not be a partial failure")
	}
}
