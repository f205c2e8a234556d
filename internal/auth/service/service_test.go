package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/pulse/internal/auth/domain"
	"github.com/smallbiznis/pulse/internal/auth/repository"
	"github.com/smallbiznis/pulse/internal/clock"
	"github.com/smallbiznis/pulse/internal/errkind"
	"github.com/smallbiznis/pulse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (domain.Authenticator, *gorm.DB) {
	t.Helper()
	db := testutil.OpenSQLite(t)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(now),
	})
	return svc, db
}

func insertToken(t *testing.T, db *gorm.DB, raw, userID, role string, expires time.Time, revoked *time.Time) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO auth_tokens (token_hash, user_id, role, expires_at, revoked_at) VALUES (?, ?, ?, ?, ?)`,
		domain.HashToken(raw), userID, role, expires, revoked,
	).Error)
}

func TestAuthenticateResolvesUser(t *testing.T) {
	svc, db := newTestService(t)
	insertToken(t, db, "tok-admin", "u-1", "Admin", now.Add(time.Hour), nil)
	insertToken(t, db, "tok-member", "u-2", "", now.Add(time.Hour), nil)

	user, err := svc.Authenticate(context.Background(), " tok-admin ")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.True(t, user.IsAdmin())

	member, err := svc.Authenticate(context.Background(), "tok-member")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, member.Role)
	assert.False(t, member.IsAdmin())
}

func TestAuthenticateRejects(t *testing.T) {
	svc, db := newTestService(t)
	revokedAt := now.Add(-time.Minute)
	insertToken(t, db, "tok-expired", "u-1", "admin", now.Add(-time.Second), nil)
	insertToken(t, db, "tok-revoked", "u-1", "admin", now.Add(time.Hour), &revokedAt)

	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", domain.ErrInvalidSession},
		{"unknown", "nope", domain.ErrInvalidSession},
		{"expired", "tok-expired", domain.ErrSessionExpired},
		{"revoked", "tok-revoked", domain.ErrSessionRevoked},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), tc.token)
			assert.ErrorIs(t, err, errkind.ErrUnauthenticated)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAuthenticateStoreFailureIsUpstream(t *testing.T) {
	svc, db := newTestService(t)
	require.NoError(t, db.Exec(`DROP TABLE auth_tokens`).Error)

	_, err := svc.Authenticate(context.Background(), "tok")
	assert.ErrorIs(t, err, errkind.ErrUpstream)
	assert.NotErrorIs(t, err, errkind.ErrUnauthenticated)
}
