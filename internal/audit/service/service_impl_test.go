package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/pulse/internal/audit/domain"
	"github.com/smallbiznis/pulse/internal/audit/repository"
	"github.com/smallbiznis/pulse/internal/clock"
	"github.com/smallbiznis/pulse/internal/errkind"
	obscontext "github.com/smallbiznis/pulse/internal/observability/context"
	"github.com/smallbiznis/pulse/internal/testutil"
	"github.com/smallbiznis/pulse/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))
	svc := NewService(Params{
		DB:    testutil.OpenSQLite(t),
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
	})
	return svc, clk
}

func strPtr(v string) *string { return &v }

func TestAuditLogResolvesActorFromContext(t *testing.T) {
	svc, _ := setup(t)
	ctx := obscontext.WithActor(context.Background(), obscontext.ActorTypeScheduler, "external")
	ctx = obscontext.WithRequestID(ctx, "req-1")

	require.NoError(t, svc.AuditLog(ctx, "", nil, auditdomain.ActionJobRun, auditdomain.TargetTypeJob, strPtr("daily_snapshot"), map[string]any{
		"outcome": "ok",
		"":        "dropped",
	}))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, obscontext.ActorTypeScheduler, entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "external", *entry.ActorID)
	require.NotNil(t, entry.RequestID)
	assert.Equal(t, "req-1", *entry.RequestID)
	assert.Equal(t, "ok", entry.Metadata["outcome"])
	assert.NotContains(t, entry.Metadata, "")
	assert.False(t, resp.HasMore)
}

func TestAuditLogDefaultsToSystemActor(t *testing.T) {
	svc, _ := setup(t)

	require.NoError(t, svc.AuditLog(context.Background(), "", strPtr("  "), "job.run", "", nil, nil))

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, auditdomain.ActorTypeSystem, resp.AuditLogs[0].ActorType)
	assert.Nil(t, resp.AuditLogs[0].ActorID)
	assert.Equal(t, "unknown", resp.AuditLogs[0].TargetType)
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	svc, _ := setup(t)

	err := svc.AuditLog(context.Background(), "", nil, " ", "job", nil, nil)
	assert.ErrorIs(t, err, errkind.ErrInvalidInput)
}

func TestListNewestFirstWithPaging(t *testing.T) {
	svc, clk := setup(t)
	ctx := context.Background()
	for _, job := range []string{"a", "b", "c"} {
		require.NoError(t, svc.AuditLog(ctx, "scheduler", nil, "job.run", "job", strPtr(job), nil))
		clk.Advance(time.Minute)
	}

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.Equal(t, "c", *first.AuditLogs[0].TargetID)
	assert.Equal(t, "b", *first.AuditLogs[1].TargetID)
	require.True(t, first.HasMore)

	second, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.Equal(t, "a", *second.AuditLogs[0].TargetID)
	assert.False(t, second.HasMore)

	filtered, err := svc.List(ctx, auditdomain.ListAuditLogRequest{TargetID: "b"})
	require.NoError(t, err)
	require.Len(t, filtered.AuditLogs, 1)
}

func TestListRejectsBadInput(t *testing.T) {
	svc, clk := setup(t)
	now := clk.Now()
	earlier := now.Add(-time.Hour)

	_, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{StartAt: &now, EndAt: &earlier})
	assert.ErrorIs(t, err, errkind.ErrInvalidInput)

	_, err = svc.List(context.Background(), auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageToken: "!!"}})
	assert.ErrorIs(t, err, errkind.ErrInvalidInput)
}
