package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-sql/civil"
	activeuserdomain "github.com/smallbiznis/pulse/internal/activeuser/domain"
	"gorm.io/gorm"
)

type Service interface {
	// Run snapshots date, or yesterday when date is nil. Repeated or
	// concurrent runs for one day return the same committed row.
	Run(ctx context.Context, date *civil.Date) (*RunResult, error)
	List(ctx context.Context, from, to civil.Date) ([]Snapshot, error)
	Dedup(ctx context.Context, opts DedupOptions) (*DedupReport, error)
}

// Calculator computes active-user counts as of an instant.
type Calculator interface {
	ComputeMetrics(ctx context.Context, asOf time.Time) (activeuserdomain.ActiveUsers, error)
}

type Repository interface {
	FindByDate(ctx context.Context, db *gorm.DB, metricDate string) (*Snapshot, error)
	// InsertIfAbsent reports whether this call created the row.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, snapshot *Snapshot) (bool, error)
	ListRange(ctx context.Context, db *gorm.DB, from, to string) ([]Snapshot, error)
	DuplicateDates(ctx context.Context, db *gorm.DB) ([]string, error)
	// ListByDate orders rows newest first: computed_at, then id, descending.
	ListByDate(ctx context.Context, db *gorm.DB, metricDate string) ([]Snapshot, error)
	DeleteByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (int64, error)
	EnsureDateIndex(ctx context.Context, db *gorm.DB) error
}

var (
	ErrSnapshotVanished = errors.New("snapshot_vanished")
)
