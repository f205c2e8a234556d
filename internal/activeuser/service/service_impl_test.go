package service

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pulse/internal/activeuser/domain"
	"github.com/smallbiznis/pulse/internal/clock"
	sessiondomain "github.com/smallbiznis/pulse/internal/session/domain"
	sessionrepo "github.com/smallbiznis/pulse/internal/session/repository"
	sessionservice "github.com/smallbiznis/pulse/internal/session/service"
	"github.com/smallbiznis/pulse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	repo     sessiondomain.Repository
	svc      domain.Service
	sessions sessiondomain.Service
	clock    *clock.FakeClock
}

func setup(t *testing.T, start time.Time) *fixture {
	t.Helper()
	db := testutil.OpenSQLite(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := sessionrepo.Provide()
	clk := clock.NewFakeClock(start)

	return &fixture{
		db:    db,
		node:  node,
		repo:  repo,
		clock: clk,
		svc:   New(Params{DB: db, Log: zap.NewNop(), SessionRepo: repo}),
		sessions: sessionservice.New(sessionservice.Params{
			DB: db, Log: zap.NewNop(), GenID: node, Repo: repo, Clock: clk,
		}),
	}
}

func (f *fixture) seed(t *testing.T, userID, sessionID string, created, lastSeen time.Time) {
	t.Helper()
	require.NoError(t, f.repo.Touch(context.Background(), f.db, &sessiondomain.Session{
		ID:         f.node.Generate(),
		UserID:     userID,
		SessionID:  sessionID,
		CreatedAt:  created,
		LastSeenAt: lastSeen,
	}))
}

func TestEmptyStoreHasZeroCountsAndNilTrends(t *testing.T) {
	f := setup(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	overview, err := f.svc.Overview(context.Background(), f.clock.Now())
	require.NoError(t, err)
	assert.Zero(t, overview.Current.Daily)
	assert.Zero(t, overview.Current.Weekly)
	assert.Zero(t, overview.Current.Monthly)
	assert.Nil(t, overview.Trends.DailyDelta)
	assert.Nil(t, overview.Trends.WeeklyDelta)
	assert.Nil(t, overview.Trends.MonthlyDelta)
}

func TestHeartbeatScenarioAcrossWindows(t *testing.T) {
	start := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	f := setup(t, start)
	ctx := context.Background()

	res, err := f.sessions.RecordHeartbeat(ctx, sessiondomain.HeartbeatRequest{UserID: "U1"})
	require.NoError(t, err)
	require.True(t, res.IsNewSession)

	f.clock.Advance(time.Hour)
	_, err = f.sessions.RecordHeartbeat(ctx, sessiondomain.HeartbeatRequest{UserID: "U1", SessionID: res.SessionID})
	require.NoError(t, err)

	metrics, err := f.svc.ComputeMetrics(ctx, start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), metrics.Daily)
	assert.Equal(t, int64(1), metrics.Weekly)
	assert.Equal(t, int64(1), metrics.Monthly)

	// more than 24h after the last heartbeat at start+1h
	later, err := f.svc.ComputeMetrics(ctx, start.Add(27*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), later.Daily)
	assert.Equal(t, int64(1), later.Weekly)
	assert.Equal(t, int64(1), later.Monthly)
}

func TestPinnedAsOfCountsLastSeenInsideWindow(t *testing.T) {
	asOf := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)
	f := setup(t, asOf)

	f.seed(t, "inside", "a", asOf.Add(-5*time.Hour), asOf.Add(-time.Hour))
	f.seed(t, "late", "a", asOf.Add(time.Hour), asOf.Add(2*time.Hour))
	f.seed(t, "after", "a", asOf.Add(-2*time.Hour), asOf.Add(3*time.Hour))

	metrics, err := f.svc.ComputeMetrics(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, int64(1), metrics.Daily)
}

func TestLongIdleSessionIsNotCountedInBetween(t *testing.T) {
	created := time.Date(2023, 12, 1, 9, 0, 0, 0, time.UTC)
	lastSeen := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	f := setup(t, lastSeen)
	ctx := context.Background()
	f.seed(t, "u1", "cookie", created, lastSeen)

	backfill, err := f.svc.ComputeMetrics(ctx, time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, domain.ActiveUsers{AsOf: backfill.AsOf}, backfill)

	overview, err := f.svc.Overview(ctx, lastSeen)
	require.NoError(t, err)
	assert.Equal(t, int64(1), overview.Current.Daily)
	assert.Zero(t, overview.Previous.Daily)
	assert.Zero(t, overview.Previous.Weekly)
	assert.Zero(t, overview.Previous.Monthly)
	assert.Nil(t, overview.Trends.DailyDelta)
	assert.Nil(t, overview.Trends.WeeklyDelta)
	assert.Nil(t, overview.Trends.MonthlyDelta)
}

func TestTrendDeltas(t *testing.T) {
	asOf := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	f := setup(t, asOf)

	// previous day: two users; current day: three users
	f.seed(t, "p1", "a", asOf.Add(-40*time.Hour), asOf.Add(-39*time.Hour))
	f.seed(t, "p2", "a", asOf.Add(-30*time.Hour), asOf.Add(-29*time.Hour))
	for i := 0; i < 3; i++ {
		f.seed(t, fmt.Sprintf("c%d", i), "a", asOf.Add(-5*time.Hour), asOf.Add(-4*time.Hour))
	}

	overview, err := f.svc.Overview(context.Background(), asOf)
	require.NoError(t, err)

	assert.Equal(t, int64(3), overview.Current.Daily)
	assert.Equal(t, int64(2), overview.Previous.Daily)
	require.NotNil(t, overview.Trends.DailyDelta)
	assert.InDelta(t, 0.5, *overview.Trends.DailyDelta, 1e-9)

	// nothing happened 7 to 14 days ago
	assert.Nil(t, overview.Trends.WeeklyDelta)
}

func TestDeltaHelper(t *testing.T) {
	assert.Nil(t, domain.Delta(10, 0))
	require.NotNil(t, domain.Delta(5, 10))
	assert.InDelta(t, -0.5, *domain.Delta(5, 10), 1e-9)
	assert.InDelta(t, 0, *domain.Delta(3, 3), 1e-9)
}

func TestWindowCountsAreNested(t *testing.T) {
	asOf := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	f := setup(t, asOf)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 60; i++ {
		created := asOf.Add(-time.Duration(rng.Intn(45*24)) * time.Hour)
		lastSeen := created.Add(time.Duration(rng.Intn(72)) * time.Hour)
		f.seed(t, fmt.Sprintf("u%d", rng.Intn(25)), fmt.Sprintf("s%d", i), created, lastSeen)
	}

	for _, offset := range []time.Duration{0, -36 * time.Hour, -10 * 24 * time.Hour} {
		metrics, err := f.svc.ComputeMetrics(context.Background(), asOf.Add(offset))
		require.NoError(t, err)
		assert.LessOrEqual(t, metrics.Daily, metrics.Weekly)
		assert.LessOrEqual(t, metrics.Weekly, metrics.Monthly)
	}
}
