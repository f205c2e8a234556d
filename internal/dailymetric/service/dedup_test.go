package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pulse/internal/clock"
	"github.com/smallbiznis/pulse/internal/config"
	"github.com/smallbiznis/pulse/internal/dailymetric/domain"
	"github.com/smallbiznis/pulse/internal/dailymetric/repository"
	"github.com/smallbiznis/pulse/internal/testutil"
	"github.com/smallbiznis/pulse/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupDedup(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn := testutil.OpenSQLite(t, testutil.WithoutSnapshotDateIndex())
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	svc := New(Params{
		DB:         conn,
		Log:        zap.NewNop(),
		GenID:      node,
		Repo:       repository.Provide(),
		Calculator: &countingCalculator{},
		Clock:      clock.NewFakeClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		Cfg:        config.Config{},
	}).(*Service)
	return svc, conn
}

func insertRaw(t *testing.T, conn *gorm.DB, id int64, date string, dau int64, computedAt time.Time) {
	t.Helper()
	require.NoError(t, conn.Exec(
		`INSERT INTO daily_metric_snapshots (id, metric_date, daily_active_users, weekly_active_users, monthly_active_users, computed_at)
		 VALUES (?, ?, ?, 0, 0, ?)`,
		id, date, dau, computedAt,
	).Error)
}

func seedDuplicates(t *testing.T, conn *gorm.DB) {
	t.Helper()
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	// newest computed_at wins
	insertRaw(t, conn, 1, "2024-01-01", 10, base.Add(time.Minute))
	insertRaw(t, conn, 2, "2024-01-01", 11, base.Add(3*time.Minute))
	insertRaw(t, conn, 3, "2024-01-01", 12, base.Add(2*time.Minute))
	// tie on computed_at keeps the highest id
	insertRaw(t, conn, 4, "2024-01-02", 20, base.Add(24*time.Hour))
	insertRaw(t, conn, 5, "2024-01-02", 21, base.Add(24*time.Hour))
	// already unique
	insertRaw(t, conn, 6, "2024-01-03", 30, base.Add(48*time.Hour))
}

func remainingIDs(t *testing.T, conn *gorm.DB) []int64 {
	t.Helper()
	var ids []int64
	require.NoError(t, conn.Raw(`SELECT id FROM daily_metric_snapshots ORDER BY id`).Scan(&ids).Error)
	return ids
}

func TestDedupDryRunChangesNothing(t *testing.T) {
	svc, conn := setupDedup(t)
	seedDuplicates(t, conn)

	report, err := svc.Dedup(context.Background(), domain.DedupOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	assert.Equal(t, 3, report.RowsRemoved)
	assert.False(t, report.ConstraintEnsured)
	require.Len(t, report.Dates, 2)
	assert.Equal(t, snowflake.ID(2), report.Dates[0].Kept)
	assert.Equal(t, snowflake.ID(5), report.Dates[1].Kept)

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, remainingIDs(t, conn))
}

func TestDedupKeepsNewestAndEnsuresConstraint(t *testing.T) {
	svc, conn := setupDedup(t)
	seedDuplicates(t, conn)
	ctx := context.Background()

	report, err := svc.Dedup(ctx, domain.DedupOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.RowsRemoved)
	assert.True(t, report.ConstraintEnsured)
	assert.ElementsMatch(t, []snowflake.ID{3, 1}, report.Dates[0].Removed)
	assert.Equal(t, []snowflake.ID{4}, report.Dates[1].Removed)

	assert.Equal(t, []int64{2, 5, 6}, remainingIDs(t, conn))

	err = conn.Exec(
		`INSERT INTO daily_metric_snapshots (id, metric_date, daily_active_users, weekly_active_users, monthly_active_users, computed_at)
		 VALUES (7, '2024-01-01', 0, 0, 0, ?)`, time.Now().UTC(),
	).Error
	require.True(t, db.IsDuplicateKeyErr(err), "expected unique violation, got %v", err)

	again, err := svc.Dedup(ctx, domain.DedupOptions{})
	require.NoError(t, err)
	assert.Zero(t, again.RowsRemoved)
	assert.True(t, again.ConstraintEnsured)
}
