package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pulse/internal/dailymetric/domain"
	"github.com/smallbiznis/pulse/internal/errkind"
	"github.com/smallbiznis/pulse/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const (
	snapshotColumns = `id, metric_date, daily_active_users, weekly_active_users, monthly_active_users, computed_at`
	dateIndexName   = `ux_daily_metric_snapshots_date`
)

func (r *repo) FindByDate(ctx context.Context, db *gorm.DB, metricDate string) (*domain.Snapshot, error) {
	var snapshot domain.Snapshot
	err := db.WithContext(ctx).Raw(
		`SELECT `+snapshotColumns+`
		 FROM daily_metric_snapshots
		 WHERE metric_date = ?
		 ORDER BY computed_at DESC, id DESC
		 LIMIT 1`,
		metricDate,
	).Scan(&snapshot).Error
	if err != nil {
		return nil, err
	}
	if snapshot.ID == 0 {
		return nil, nil
	}
	return &snapshot, nil
}

func (r *repo) InsertIfAbsent(ctx context.Context, conn *gorm.DB, snapshot *domain.Snapshot) (bool, error) {
	query := `INSERT INTO daily_metric_snapshots (` + snapshotColumns + `)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (metric_date) DO NOTHING`
	if db.DialectName(conn) == db.DialectMySQL {
		query = `INSERT IGNORE INTO daily_metric_snapshots (` + snapshotColumns + `)
		 VALUES (?, ?, ?, ?, ?, ?)`
	}

	result := conn.WithContext(ctx).Exec(query,
		snapshot.ID,
		snapshot.MetricDate,
		snapshot.DailyActiveUsers,
		snapshot.WeeklyActiveUsers,
		snapshot.MonthlyActiveUsers,
		snapshot.ComputedAt,
	)
	if result.Error != nil {
		if db.IsDuplicateKeyErr(result.Error) {
			return false, errkind.Conflict("dailymetric.insert", result.Error)
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListRange(ctx context.Context, db *gorm.DB, from, to string) ([]domain.Snapshot, error) {
	var snapshots []domain.Snapshot
	err := db.WithContext(ctx).Raw(
		`SELECT `+snapshotColumns+`
		 FROM daily_metric_snapshots
		 WHERE metric_date >= ? AND metric_date <= ?
		 ORDER BY metric_date ASC`,
		from,
		to,
	).Scan(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *repo) DuplicateDates(ctx context.Context, db *gorm.DB) ([]string, error) {
	var dates []string
	err := db.WithContext(ctx).Raw(
		`SELECT metric_date
		 FROM daily_metric_snapshots
		 GROUP BY metric_date
		 HAVING COUNT(*) > 1
		 ORDER BY metric_date ASC`,
	).Scan(&dates).Error
	if err != nil {
		return nil, err
	}
	return dates, nil
}

func (r *repo) ListByDate(ctx context.Context, db *gorm.DB, metricDate string) ([]domain.Snapshot, error) {
	var snapshots []domain.Snapshot
	err := db.WithContext(ctx).Raw(
		`SELECT `+snapshotColumns+`
		 FROM daily_metric_snapshots
		 WHERE metric_date = ?
		 ORDER BY computed_at DESC, id DESC`,
		metricDate,
	).Scan(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *repo) DeleteByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).Exec(`DELETE FROM daily_metric_snapshots WHERE id IN ?`, ids)
	return result.RowsAffected, result.Error
}

func (r *repo) EnsureDateIndex(ctx context.Context, conn *gorm.DB) error {
	if db.DialectName(conn) == db.DialectMySQL {
		var count int64
		err := conn.WithContext(ctx).Raw(
			`SELECT COUNT(*) FROM information_schema.statistics
			 WHERE table_schema = DATABASE() AND table_name = 'daily_metric_snapshots' AND index_name = ?`,
			dateIndexName,
		).Scan(&count).Error
		if err != nil || count > 0 {
			return err
		}
		return conn.WithContext(ctx).Exec(
			`CREATE UNIQUE INDEX ` + dateIndexName + ` ON daily_metric_snapshots (metric_date)`,
		).Error
	}
	return conn.WithContext(ctx).Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS ` + dateIndexName + ` ON daily_metric_snapshots (metric_date)`,
	).Error
}
