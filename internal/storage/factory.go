package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-registration/internal/config"
	"ms-registration/internal/logger"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Open connects the backend named by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (KV, error) {
	switch Driver(cfg.Store.Driver) {
	case DriverMemory:
		log.Warn("STORAGE", "Using in-memory store, state is lost on restart")
		return NewMemoryKV(), nil
	case DriverRedis:
		return openRedis(ctx, cfg.Redis, log)
	case DriverSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Database.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// a single writer keeps sqlite free of SQLITE_BUSY under concurrent requests
		sqldb.SetMaxOpenConns(1)
		log.Info("DATABASE", fmt.Sprintf("SQLite store at %s", cfg.Database.SQLitePath))
		return NewSQLKV(ctx, bun.NewDB(sqldb, sqlitedialect.New()), DriverSQLite)
	case DriverPostgres:
		sqldb, err := connectPostgres(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		return NewSQLKV(ctx, bun.NewDB(sqldb, pgdialect.New()), DriverPostgres)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func openRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*RedisKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection error: %w", err)
	}
	log.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return NewRedisKV(client), nil
}

func connectPostgres(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*sql.DB, error) {
	var sqldb *sql.DB
	var err error

	for i := 0; i < connectAttempts; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, connectAttempts))
		sqldb, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(connectBackoff)
			continue
		}

		err = sqldb.PingContext(ctx)
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		sqldb.Close()
		if i < connectAttempts-1 {
			time.Sleep(connectBackoff)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("connect to postgres after %d attempts: %w", connectAttempts, err)
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "✅ PostgreSQL connection successful")
	return sqldb, nil
}
