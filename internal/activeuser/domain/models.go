package domain

import (
	"context"
	"time"
)

const (
	DailyWindow   = 24 * time.Hour
	WeeklyWindow  = 7 * 24 * time.Hour
	MonthlyWindow = 30 * 24 * time.Hour
)

// ActiveUsers holds distinct active-user counts for windows ending at AsOf.
type ActiveUsers struct {
	AsOf    time.Time `json:"as_of"`
	Daily   int64     `json:"daily_active_users"`
	Weekly  int64     `json:"weekly_active_users"`
	Monthly int64     `json:"monthly_active_users"`
}

// Trends are relative deltas against the preceding comparable period. A nil
// delta means the previous period had no activity.
type Trends struct {
	DailyDelta   *float64 `json:"daily_delta"`
	WeeklyDelta  *float64 `json:"weekly_delta"`
	MonthlyDelta *float64 `json:"monthly_delta"`
}

type Overview struct {
	Current  ActiveUsers `json:"current"`
	Previous ActiveUsers `json:"previous"`
	Trends   Trends      `json:"trends"`
}

type Service interface {
	ComputeMetrics(ctx context.Context, asOf time.Time) (ActiveUsers, error)
	ComputeTrends(ctx context.Context, asOf time.Time, current ActiveUsers) (Trends, ActiveUsers, error)
	Overview(ctx context.Context, asOf time.Time) (Overview, error)
}

// Delta returns (current-previous)/previous, or nil when previous is zero.
func Delta(current, previous int64) *float64 {
	if previous == 0 {
		return nil
	}
	value := float64(current-previous) / float64(previous)
	return &value
}
