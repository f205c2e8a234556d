package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/pulse/internal/errkind"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: SchedulerJobReasonDeadlineExceeded,
		},
		{
			name: "forbidden",
			err:  errkind.ErrUnauthorized,
			want: SchedulerJobReasonForbidden,
		},
		{
			name: "partial_failure",
			err:  fmt.Errorf("productivity: %w", &errkind.PartialFailure{}),
			want: SchedulerJobReasonPartialFailure,
		},
		{
			name: "invalid_input",
			err:  errkind.Invalid("future date"),
			want: SchedulerJobReasonInvalidInput,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: SchedulerJobReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  &pgconn.PgError{Code: "40001"},
			want: SchedulerJobReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "upstream",
			err:  errkind.Upstream("snapshot.insert", errors.New("conn reset")),
			want: SchedulerJobReasonUpstream,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: SchedulerJobReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "pulse",
		Environment: "test",
	})

	metrics.AddBatchProcessed("productivity", SchedulerResourceUsers, 3)
	metrics.AddBatchFailed("productivity", SchedulerResourceUsers, 1)
	metrics.AddBatchFailed("productivity", SchedulerResourceUsers, 0)

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("productivity", SchedulerResourceUsers))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
	failed := testutil.ToFloat64(metrics.batchFailed.WithLabelValues("productivity", SchedulerResourceUsers))
	if failed != 1 {
		t.Fatalf("expected failed count 1, got %v", failed)
	}
}

func TestIsSchedulerErrorRetryable(t *testing.T) {
	if IsSchedulerErrorRetryable(errkind.Invalid("bad date")) {
		t.Fatalf("invalid input must not be retryable")
	}
	if !IsSchedulerErrorRetryable(errkind.Upstream("op", errors.New("down"))) {
		t.Fatalf("upstream failure should be retryable")
	}
	if !IsSchedulerErrorRetryable(context.DeadlineExceeded) {
		t.Fatalf("deadline should be retryable")
	}
}
