package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

const (
	MaxSessionIDLength = 128
	MaxUserAgentBytes  = 512
	MaxIPAddressBytes  = 64
)

type Service interface {
	RecordHeartbeat(ctx context.Context, req HeartbeatRequest) (*HeartbeatResult, error)
}

type Repository interface {
	// Touch inserts the session or raises last_seen_at to the greater of the
	// stored and supplied values, in a single statement.
	Touch(ctx context.Context, db *gorm.DB, session *Session) error
	FindByUserSession(ctx context.Context, db *gorm.DB, userID, sessionID string) (*Session, error)
	// CountActiveUsers returns, per window, the distinct users with a
	// session whose last_seen_at falls inside it, in a single query.
	CountActiveUsers(ctx context.Context, db *gorm.DB, windows []Window) ([]int64, error)
	ListOverlapping(ctx context.Context, db *gorm.DB, userID string, from, to time.Time) ([]Session, error)
}

type HeartbeatRequest struct {
	UserID    string
	SessionID string
	UserAgent string
	IPAddress string
}

type HeartbeatResult struct {
	SessionID    string    `json:"session_id"`
	IsNewSession bool      `json:"is_new_session"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}
