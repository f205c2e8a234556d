package authorization

import (
	"context"
	"testing"

	authdomain "github.com/smallbiznis/pulse/internal/auth/domain"
	"github.com/smallbiznis/pulse/internal/errkind"
	"github.com/smallbiznis/pulse/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, _ := newTestServiceWithDB(t)
	return svc
}

func newTestServiceWithDB(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenSQLite(t)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer}), db
}

func countRules(t *testing.T, db *gorm.DB, ptype string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table("casbin_rule").Where("ptype = ?", ptype).Count(&n).Error)
	return n
}

func TestAuthorizeAdmin(t *testing.T) {
	svc := newTestService(t)
	admin := authdomain.User{ID: "u-1", Role: "admin"}

	assert.NoError(t, svc.Authorize(context.Background(), admin, ObjectActivityMetrics, ActionView))
	assert.NoError(t, svc.Authorize(context.Background(), admin, ObjectProductivity, ActionView))
	assert.ErrorIs(t, svc.Authorize(context.Background(), admin, ObjectProductivity, "delete"), ErrForbidden)
}

func TestAuthorizeMemberForbidden(t *testing.T) {
	svc := newTestService(t)

	err := svc.Authorize(context.Background(), authdomain.User{ID: "u-2", Role: "member"}, ObjectActivityMetrics, ActionView)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, err, errkind.ErrUnauthorized)
}

func TestAuthorizeRoleChangeTakesEffect(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, svc.Authorize(context.Background(), authdomain.User{ID: "u-3", Role: "admin"}, ObjectActivityMetrics, ActionView))
	err := svc.Authorize(context.Background(), authdomain.User{ID: "u-3", Role: "member"}, ObjectActivityMetrics, ActionView)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthorizeReadsDoNotWritePolicyRows(t *testing.T) {
	svc, db := newTestServiceWithDB(t)
	ctx := context.Background()
	policies := countRules(t, db, "p")

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.Authorize(ctx, authdomain.User{ID: "u-4", Role: "admin"}, ObjectActivityMetrics, ActionView))
		assert.ErrorIs(t, svc.Authorize(ctx, authdomain.User{ID: "u-5", Role: "member"}, ObjectActivityMetrics, ActionView), ErrForbidden)
	}

	assert.Zero(t, countRules(t, db, "g"))
	assert.Equal(t, policies, countRules(t, db, "p"))
	assert.Equal(t, int64(3), policies)
}

func TestAuthorizeValidatesArguments(t *testing.T) {
	svc := newTestService(t)

	assert.ErrorIs(t, svc.Authorize(context.Background(), authdomain.User{}, ObjectActivityMetrics, ActionView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(context.Background(), authdomain.User{ID: "u"}, " ", ActionView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(context.Background(), authdomain.User{ID: "u"}, ObjectProductivity, ""), ErrInvalidAction)
}
