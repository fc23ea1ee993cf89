// Package store wires the configured tree backend.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/railzwaylabs/roomledger/internal/config"
	"github.com/railzwaylabs/roomledger/internal/redis"
	"github.com/railzwaylabs/roomledger/internal/store/domain"
	"github.com/railzwaylabs/roomledger/internal/store/memory"
	"github.com/railzwaylabs/roomledger/internal/store/redisstore"
	"github.com/railzwaylabs/roomledger/internal/store/sqlstore"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("store",
	fx.Provide(
		NewBackend,
		func(b *Backend) domain.Store { return b.Store },
		func(b *Backend) *gorm.DB { return b.DB },
	),
)

// Backend is the opened store. DB is set only for SQL drivers.
type Backend struct {
	Store domain.Store
	DB    *gorm.DB
}

type BackendParam struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

func NewBackend(p BackendParam) (*Backend, error) {
	cfg := p.Config
	log := p.Log.Named("store")
	driver := strings.ToLower(strings.TrimSpace(cfg.Store.Driver))

	switch driver {
	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return &Backend{Store: memory.New()}, nil

	case config.StoreRedis:
		client, err := redis.NewClient(context.Background(), cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error { return client.Close() },
		})
		log.Info("using redis store", zap.String("addr", cfg.Redis.Addr), zap.String("prefix", cfg.Store.Prefix))
		return &Backend{Store: redisstore.New(client, redisstore.Options{
			Prefix:   cfg.Store.Prefix,
			Compress: cfg.Store.Compress,
		})}, nil

	case config.StorePostgres, config.StoreMySQL, config.StoreSQLite:
		db, err := sqlstore.Open(sqlstore.OpenOptions{
			Driver:  driver,
			DSN:     cfg.Store.DSN,
			DBName:  cfg.AppName,
			Metrics: cfg.Store.Metrics,
			Tracing: cfg.Tracing.Endpoint != "",
		}, p.Log)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		s := sqlstore.New(db)
		// Postgres schema is owned by the migrate command.
		if driver != config.StorePostgres {
			if err := s.AutoMigrate(context.Background()); err != nil {
				return nil, fmt.Errorf("auto migrate store: %w", err)
			}
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.Close()
			},
		})
		return &Backend{Store: s, DB: db}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
