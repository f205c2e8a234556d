package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pulse/internal/activeuser"
	"github.com/smallbiznis/pulse/internal/audit"
	"github.com/smallbiznis/pulse/internal/auth"
	"github.com/smallbiznis/pulse/internal/authorization"
	"github.com/smallbiznis/pulse/internal/cache"
	"github.com/smallbiznis/pulse/internal/clock"
	"github.com/smallbiznis/pulse/internal/config"
	"github.com/smallbiznis/pulse/internal/dailymetric"
	"github.com/smallbiznis/pulse/internal/jobauth"
	"github.com/smallbiznis/pulse/internal/migration"
	"github.com/smallbiznis/pulse/internal/observability"
	"github.com/smallbiznis/pulse/internal/productivity"
	"github.com/smallbiznis/pulse/internal/ratelimit"
	"github.com/smallbiznis/pulse/internal/scheduler"
	"github.com/smallbiznis/pulse/internal/server"
	"github.com/smallbiznis/pulse/internal/session"
	"github.com/smallbiznis/pulse/pkg/db"
	"go.uber.org/fx"
)

// Single-binary deployment: the HTTP surface plus, when
// SCHEDULER_INTERNAL_ENABLED is set, the in-process job loop.
func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		// Access
		auth.Module,
		authorization.Module,
		jobauth.Module,
		ratelimit.Module,
		cache.Module,

		// Functional Domains
		session.Module,
		activeuser.Module,
		dailymetric.Module,
		productivity.Module,
		audit.Module,
		scheduler.Module,
		scheduler.InternalLoop,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
