// Package persist is the warm tier: Postgres-backed durability for
// accounts, inventories, equipment, and skills, plus the reference
// tables the compile-time catalogs sync into.
package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/gridrealm/server/internal/config"
)

// DB wraps the pgx pool with the configured per-operation timeout.
type DB struct {
	Pool      *pgxpool.Pool
	opTimeout time.Duration
	log       *zap.Logger
}

func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}
	pc.MaxConns = int32(cfg.MaxOpenConns)
	pc.MinConns = int32(cfg.MaxIdleConns)
	pc.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info("database connected",
		zap.Int("max_conns", cfg.MaxOpenConns),
		zap.Duration("op_timeout", cfg.OpTimeout))
	return &DB{Pool: pool, opTimeout: cfg.OpTimeout, log: log}, nil
}

// opCtx derives the bounded context every single-row operation uses.
func (db *DB) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.opTimeout)
}

func (db *DB) Close() {
	db.Pool.Close()
}
