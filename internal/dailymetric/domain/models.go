package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Snapshot freezes the active-user counts of one calendar day.
type Snapshot struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	MetricDate         string       `gorm:"column:metric_date;type:varchar(10);not null;uniqueIndex:ux_daily_metric_snapshots_date" json:"metric_date"`
	DailyActiveUsers   int64        `gorm:"column:daily_active_users;not null" json:"daily_active_users"`
	WeeklyActiveUsers  int64        `gorm:"column:weekly_active_users;not null" json:"weekly_active_users"`
	MonthlyActiveUsers int64        `gorm:"column:monthly_active_users;not null" json:"monthly_active_users"`
	ComputedAt         time.Time    `gorm:"column:computed_at;not null" json:"computed_at"`
}

// TableName sets the database table name.
func (Snapshot) TableName() string { return "daily_metric_snapshots" }

type RunState string

const (
	RunStateNotStarted RunState = "not_started"
	RunStateComputing  RunState = "computing"
	RunStateCommitted  RunState = "committed"
)

type RunResult struct {
	Snapshot *Snapshot `json:"snapshot"`
	State    RunState  `json:"state"`
	// Created is false when an existing row was returned, including when a
	// concurrent run committed first.
	Created bool `json:"created"`
}

type DedupOptions struct {
	DryRun bool
}

type DedupDate struct {
	MetricDate string         `json:"metric_date"`
	Kept       snowflake.ID   `json:"kept"`
	Removed    []snowflake.ID `json:"removed"`
}

type DedupReport struct {
	DryRun            bool        `json:"dry_run"`
	Dates             []DedupDate `json:"dates"`
	RowsRemoved       int         `json:"rows_removed"`
	ConstraintEnsured bool        `json:"constraint_ensured"`
}
