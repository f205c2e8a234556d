package migration

import (
	"github.com/smallbiznis/pulse/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, log *zap.Logger) error {
		if dialect := db.DialectName(conn); dialect != db.DialectPostgres {
			log.Warn("skipping embedded migrations; schema must be provisioned externally",
				zap.String("dialect", dialect),
			)
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
