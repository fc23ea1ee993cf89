package sqlstore

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormprom "gorm.io/plugin/prometheus"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

type OpenOptions struct {
	Driver  string
	DSN     string
	DBName  string
	Metrics bool
	Tracing bool
}

// Open connects to the configured database and installs the metrics and
// tracing plugins.
func Open(opts OpenOptions, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	case DriverMySQL:
		dialector = mysql.Open(opts.DSN)
	case DriverSQLite:
		dsn := opts.DSN
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if opts.Tracing {
		if err := db.Use(otelgorm.NewPlugin()); err != nil {
			return nil, err
		}
	}
	if opts.Metrics {
		name := opts.DBName
		if name == "" {
			name = "roomledger"
		}
		if err := db.Use(gormprom.New(gormprom.Config{
			DBName:          name,
			RefreshInterval: 15,
		})); err != nil {
			return nil, err
		}
	}

	log.Named("store.sql").Info("database opened", zap.String("driver", opts.Driver))
	return db, nil
}
