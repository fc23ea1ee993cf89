package migration

import (
	"context"
	"errors"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module runs the schema migrations once the SQL store is open.
var Module = fx.Module("migrations",
	fx.Invoke(func(lc fx.Lifecycle, conn *gorm.DB, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if conn == nil {
					return errors.New("migrate requires the postgres store driver")
				}
				sqlDB, err := conn.DB()
				if err != nil {
					return err
				}
				return RunMigrations(ctx, sqlDB, log)
			},
		})
	}),
)

// GateModule refuses to start when a SQL store is configured whose schema is
// not active. Non-postgres drivers are not gated.
var GateModule = fx.Module("migrations.gate",
	fx.Invoke(func(lc fx.Lifecycle, conn *gorm.DB) error {
		if conn == nil || conn.Dialector.Name() != "postgres" {
			return nil
		}
		gate, err := NewSchemaGate(conn)
		if err != nil {
			return err
		}
		EnforceSchemaGate(lc, gate)
		return nil
	}),
)

var DataModule = fx.Module("migrations.data",
	fx.Provide(NewDataMigrations),
)
