// Package testutil opens isolated in-memory sqlite databases carrying the
// metrics schema. It is imported only from tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_sessions (
	id INTEGER PRIMARY KEY,
	user_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	last_seen_at DATETIME NOT NULL,
	user_agent TEXT,
	ip_address TEXT,
	created_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_user_sessions_user_session ON user_sessions (user_id, session_id);

CREATE TABLE IF NOT EXISTS daily_metric_snapshots (
	id INTEGER PRIMARY KEY,
	metric_date TEXT NOT NULL,
	daily_active_users INTEGER NOT NULL DEFAULT 0,
	weekly_active_users INTEGER NOT NULL DEFAULT 0,
	monthly_active_users INTEGER NOT NULL DEFAULT 0,
	computed_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS productivity_records (
	id INTEGER PRIMARY KEY,
	user_id TEXT NOT NULL,
	activity_date TEXT NOT NULL,
	score REAL NOT NULL DEFAULT 0,
	session_count INTEGER NOT NULL DEFAULT 0,
	active_minutes REAL NOT NULL DEFAULT 0,
	message_count INTEGER NOT NULL DEFAULT 0,
	task_created_count INTEGER NOT NULL DEFAULT 0,
	task_completed_count INTEGER NOT NULL DEFAULT 0,
	document_count INTEGER NOT NULL DEFAULT 0,
	weights TEXT NOT NULL DEFAULT '{}',
	computed_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_productivity_records_user_date ON productivity_records (user_id, activity_date);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	deleted_at DATETIME
);

CREATE TABLE IF NOT EXISTS activity_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	occurred_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS auth_tokens (
	token_hash TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'member',
	expires_at DATETIME NOT NULL,
	revoked_at DATETIME
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id INTEGER PRIMARY KEY,
	actor_type TEXT NOT NULL,
	actor_id TEXT,
	action TEXT NOT NULL,
	target_type TEXT NOT NULL,
	target_id TEXT,
	metadata TEXT NOT NULL DEFAULT '{}',
	request_id TEXT,
	created_at DATETIME NOT NULL
);
`

// SnapshotDateIndex is created separately so repair tests can start from a
// table that predates the constraint.
const SnapshotDateIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_daily_metric_snapshots_date ON daily_metric_snapshots (metric_date)`

type options struct {
	skipSnapshotIndex bool
}

type Option func(*options)

// WithoutSnapshotDateIndex leaves daily_metric_snapshots without its unique index.
func WithoutSnapshotDateIndex() Option {
	return func(o *options) { o.skipSnapshotIndex = true }
}

// OpenSQLite returns a private in-memory database with the schema applied.
func OpenSQLite(t *testing.T, opts ...Option) *gorm.DB {
	t.Helper()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	_ = db.Exec("PRAGMA busy_timeout = 5000").Error

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	if !o.skipSnapshotIndex {
		if err := db.Exec(SnapshotDateIndex).Error; err != nil {
			t.Fatalf("create snapshot index: %v", err)
		}
	}
	return db
}
