package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/pulse/internal/session/domain"
	"github.com/smallbiznis/pulse/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const sessionColumns = `id, user_id, session_id, last_seen_at, user_agent, ip_address, created_at`

func (r *repo) Touch(ctx context.Context, conn *gorm.DB, session *domain.Session) error {
	return conn.WithContext(ctx).Exec(
		touchSQL(db.DialectName(conn)),
		session.ID,
		session.UserID,
		session.SessionID,
		session.LastSeenAt,
		session.UserAgent,
		session.IPAddress,
		session.CreatedAt,
	).Error
}

func touchSQL(dialect string) string {
	insert := `INSERT INTO user_sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	switch dialect {
	case db.DialectMySQL:
		return insert + `
		 ON DUPLICATE KEY UPDATE
		   last_seen_at = GREATEST(last_seen_at, VALUES(last_seen_at)),
		   user_agent = COALESCE(NULLIF(VALUES(user_agent), ''), user_agent),
		   ip_address = COALESCE(NULLIF(VALUES(ip_address), ''), ip_address)`
	case db.DialectSQLite:
		return insert + `
		 ON CONFLICT (user_id, session_id) DO UPDATE SET
		   last_seen_at = MAX(user_sessions.last_seen_at, excluded.last_seen_at),
		   user_agent = COALESCE(NULLIF(excluded.user_agent, ''), user_sessions.user_agent),
		   ip_address = COALESCE(NULLIF(excluded.ip_address, ''), user_sessions.ip_address)`
	default:
		return insert + `
		 ON CONFLICT (user_id, session_id) DO UPDATE SET
		   last_seen_at = GREATEST(user_sessions.last_seen_at, EXCLUDED.last_seen_at),
		   user_agent = COALESCE(NULLIF(EXCLUDED.user_agent, ''), user_sessions.user_agent),
		   ip_address = COALESCE(NULLIF(EXCLUDED.ip_address, ''), user_sessions.ip_address)`
	}
}

func (r *repo) FindByUserSession(ctx context.Context, db *gorm.DB, userID, sessionID string) (*domain.Session, error) {
	var session domain.Session
	err := db.WithContext(ctx).Raw(
		`SELECT `+sessionColumns+` FROM user_sessions WHERE user_id = ? AND session_id = ?`,
		userID,
		sessionID,
	).Scan(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == 0 {
		return nil, nil
	}
	return &session, nil
}

func (r *repo) CountActiveUsers(ctx context.Context, db *gorm.DB, windows []domain.Window) ([]int64, error) {
	if len(windows) == 0 {
		return nil, nil
	}

	lower := windows[0].From
	upper := windows[0].To
	selects := make([]string, 0, len(windows))
	args := make([]any, 0, len(windows)*2+2)
	for i, w := range windows {
		if w.From.Before(lower) {
			lower = w.From
		}
		if w.To.After(upper) {
			upper = w.To
		}
		selects = append(selects, fmt.Sprintf(
			"COUNT(DISTINCT CASE WHEN last_seen_at >= ? AND last_seen_at <= ? THEN user_id END) AS w%d", i,
		))
		args = append(args, w.From, w.To)
	}
	args = append(args, lower, upper)

	query := `SELECT ` + strings.Join(selects, ", ") +
		` FROM user_sessions WHERE last_seen_at >= ? AND last_seen_at <= ?`

	rows, err := db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]int64, len(windows))
	if rows.Next() {
		dest := make([]any, len(windows))
		for i := range counts {
			dest[i] = &counts[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
	}
	return counts, rows.Err()
}

func (r *repo) ListOverlapping(ctx context.Context, db *gorm.DB, userID string, from, to time.Time) ([]domain.Session, error) {
	var sessions []domain.Session
	err := db.WithContext(ctx).Raw(
		`SELECT `+sessionColumns+`
		 FROM user_sessions
		 WHERE user_id = ? AND created_at < ? AND last_seen_at >= ?
		 ORDER BY created_at ASC, id ASC`,
		userID,
		to,
		from,
	).Scan(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
