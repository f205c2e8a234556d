package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/pulse/internal/observability/context"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-9")
	ctx = obscontext.WithActor(ctx, obscontext.ActorTypeUser, "u-1")

	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "req-9", fields["request_id"])
	require.Equal(t, "user", fields["actor_type"])
	require.Equal(t, "u-1", fields["actor_id"])
	_, hasTrace := fields["trace_id"]
	require.False(t, hasTrace)
}

func TestOperationAndTableFromSQL(t *testing.T) {
	require.Equal(t, "INSERT", operationFromSQL("INSERT INTO user_sessions (id) VALUES (1)"))
	require.Equal(t, "SELECT", operationFromSQL("WITH x AS (SELECT 1) SELECT * FROM x"))
	require.Equal(t, "UNKNOWN", operationFromSQL(""))
	require.Equal(t, "user_sessions", tableFromSQL(`INSERT INTO "user_sessions" (id) VALUES (1)`))
	require.Equal(t, "daily_metric_snapshots", tableFromSQL("SELECT * FROM daily_metric_snapshots WHERE metric_date = ?"))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	require.Error(t, err)
}

func TestWithMetricDate(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	WithMetricDate(base, "2024-01-15").Info("snapshot")
	require.Same(t, base, WithMetricDate(base, ""))
	require.Nil(t, WithMetricDate(nil, "2024-01-15"))

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "2024-01-15", entries[0].ContextMap()["metric_date"])
}

func TestRequestLevel(t *testing.T) {
	require.Equal(t, zapcore.WarnLevel, requestLevel("/internal/jobs/daily-snapshot", 401))
	require.Equal(t, zapcore.InfoLevel, requestLevel("/internal/jobs/daily-snapshot", 200))
	require.Equal(t, zapcore.DebugLevel, requestLevel("/api/activity/heartbeat", 200))
	require.Equal(t, zapcore.WarnLevel, requestLevel("/api/activity/heartbeat", 429))
	require.Equal(t, zapcore.ErrorLevel, requestLevel("/api/metrics/active-users", 503))
}

func TestGormLoggerConfigFor(t *testing.T) {
	require.Equal(t, gormlogger.Warn, GormLoggerConfigFor(false).Level)
	require.Equal(t, gormlogger.Info, GormLoggerConfigFor(true).Level)
	require.True(t, GormLoggerConfigFor(true).IgnoreRecordNotFound)
}
