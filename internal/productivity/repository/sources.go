package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/pulse/internal/productivity/domain"
	"gorm.io/gorm"
)

type eventSource struct{}

// ProvideEventSource reads the activity_events table.
func ProvideEventSource() domain.EventSource {
	return &eventSource{}
}

func (s *eventSource) CountByType(ctx context.Context, db *gorm.DB, userID string, from, to time.Time) (map[string]int64, error) {
	type row struct {
		EventType string
		Total     int64
	}
	var rows []row
	err := db.WithContext(ctx).Raw(
		`SELECT event_type, COUNT(*) AS total
		 FROM activity_events
		 WHERE user_id = ? AND occurred_at >= ? AND occurred_at < ?
		 GROUP BY event_type`,
		userID,
		from,
		to,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.EventType] = r.Total
	}
	return counts, nil
}

type userSource struct{}

// ProvideUserSource reads the users directory, skipping soft-deleted rows.
func ProvideUserSource() domain.UserSource {
	return &userSource{}
}

func (s *userSource) ListUserIDs(ctx context.Context, db *gorm.DB, afterID string, limit int) ([]string, error) {
	var ids []string
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM users
		 WHERE deleted_at IS NULL AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		afterID,
		limit,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
