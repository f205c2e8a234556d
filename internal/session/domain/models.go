package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-sql/civil"
)

// Session is one browser or client session observed through heartbeats.
type Session struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	UserID     string       `gorm:"column:user_id;type:text;not null;uniqueIndex:ux_user_sessions_user_session,priority:1"`
	SessionID  string       `gorm:"column:session_id;type:text;not null;uniqueIndex:ux_user_sessions_user_session,priority:2"`
	LastSeenAt time.Time    `gorm:"column:last_seen_at;not null;index"`
	UserAgent  string       `gorm:"column:user_agent;type:text"`
	IPAddress  string       `gorm:"column:ip_address;type:text"`
	CreatedAt  time.Time    `gorm:"column:created_at;not null"`
}

// TableName sets the database table name.
func (Session) TableName() string { return "user_sessions" }

// Window is a closed time range [From, To].
type Window struct {
	From time.Time
	To   time.Time
}

// Expired reports whether a heartbeat at now must start a new row instead
// of extending this one: the row has been idle longer than idle, or it
// belongs to an earlier calendar day in loc. With rotation on, a row only
// ever covers continuous activity within one day. A zero idle disables it.
func (s Session) Expired(now time.Time, idle time.Duration, loc *time.Location) bool {
	if idle <= 0 {
		return false
	}
	if !now.After(s.LastSeenAt) {
		// late heartbeats never rotate
		return false
	}
	if now.Sub(s.LastSeenAt) > idle {
		return true
	}
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(now.In(loc)).After(civil.DateOf(s.LastSeenAt.In(loc)))
}

// Overlap returns how long the session's [CreatedAt, LastSeenAt] range
// intersects [from, to).
func (s Session) Overlap(from, to time.Time) time.Duration {
	start := s.CreatedAt
	if start.Before(from) {
		start = from
	}
	end := s.LastSeenAt
	if end.After(to) {
		end = to
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}
