package repository

import (
	"context"

	"github.com/smallbiznis/pulse/internal/productivity/domain"
	"github.com/smallbiznis/pulse/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const recordColumns = `id, user_id, activity_date, score, session_count, active_minutes, message_count, task_created_count, task_completed_count, document_count, weights, computed_at`

func (r *repo) Upsert(ctx context.Context, conn *gorm.DB, record *domain.Record) error {
	return conn.WithContext(ctx).Exec(
		upsertSQL(db.DialectName(conn)),
		record.ID,
		record.UserID,
		record.ActivityDate,
		record.Score,
		record.SessionCount,
		record.ActiveMinutes,
		record.MessageCount,
		record.TaskCreatedCount,
		record.TaskCompletedCount,
		record.DocumentCount,
		record.Weights,
		record.ComputedAt,
	).Error
}

func upsertSQL(dialect string) string {
	insert := `INSERT INTO productivity_records (` + recordColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if dialect == db.DialectMySQL {
		return insert + `
		 ON DUPLICATE KEY UPDATE
		   score = VALUES(score),
		   session_count = VALUES(session_count),
		   active_minutes = VALUES(active_minutes),
		   message_count = VALUES(message_count),
		   task_created_count = VALUES(task_created_count),
		   task_completed_count = VALUES(task_completed_count),
		   document_count = VALUES(document_count),
		   weights = VALUES(weights),
		   computed_at = VALUES(computed_at)`
	}
	return insert + `
		 ON CONFLICT (user_id, activity_date) DO UPDATE SET
		   score = excluded.score,
		   session_count = excluded.session_count,
		   active_minutes = excluded.active_minutes,
		   message_count = excluded.message_count,
		   task_created_count = excluded.task_created_count,
		   task_completed_count = excluded.task_completed_count,
		   document_count = excluded.document_count,
		   weights = excluded.weights,
		   computed_at = excluded.computed_at`
}

func (r *repo) FindByUserDate(ctx context.Context, db *gorm.DB, userID, activityDate string) (*domain.Record, error) {
	var record domain.Record
	err := db.WithContext(ctx).Raw(
		`SELECT `+recordColumns+` FROM productivity_records WHERE user_id = ? AND activity_date = ?`,
		userID,
		activityDate,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) ListByDate(ctx context.Context, db *gorm.DB, activityDate, userID, afterUserID string, limit int) ([]domain.Record, error) {
	query := db.WithContext(ctx).
		Table("productivity_records").
		Select(recordColumns).
		Where("activity_date = ?", activityDate)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if afterUserID != "" {
		query = query.Where("user_id > ?", afterUserID)
	}

	var records []domain.Record
	if err := query.Order("user_id ASC").Limit(limit).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
