package cli

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/smallbiznis/pulse/internal/activeuser"
	"github.com/smallbiznis/pulse/internal/clock"
	"github.com/smallbiznis/pulse/internal/config"
	"github.com/smallbiznis/pulse/internal/dailymetric"
	dailymetricdomain "github.com/smallbiznis/pulse/internal/dailymetric/domain"
	"github.com/smallbiznis/pulse/internal/observability"
	"github.com/smallbiznis/pulse/internal/session"
	"github.com/smallbiznis/pulse/pkg/db"
)

var rootCmd = &cobra.Command{
	Use:          "pulse-repair",
	Short:        "Maintenance commands for the metrics store",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

// withSnapshots boots just enough of the application graph to reach the
// snapshot service, runs fn, and shuts the graph down again.
func withSnapshots(ctx context.Context, fn func(context.Context, dailymetricdomain.Service) error) error {
	var svc dailymetricdomain.Service
	app := fx.New(
		fx.NopLogger,
		config.Module,
		observability.Module,
		fx.Provide(func() (*snowflake.Node, error) { return snowflake.NewNode(3) }),
		db.Module,
		clock.Module,
		session.Module,
		activeuser.Module,
		dailymetric.Module,
		fx.Populate(&svc),
	)
	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() { _ = app.Stop(context.Background()) }()

	return fn(ctx, svc)
}
