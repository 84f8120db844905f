package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig parses databaseURL and pins the session time zone to timeZone,
// so timestamptz casts and day arithmetic in the SQL functions follow the
// dashboard calendar. An empty or "local" zone leaves the server default.
func PoolConfig(databaseURL, timeZone string) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if timeZone != "" && !strings.EqualFold(timeZone, "local") {
		cfg.ConnConfig.RuntimeParams["timezone"] = timeZone
	}
	return cfg, nil
}

// NewPool opens a pool configured by PoolConfig.
func NewPool(ctx context.Context, databaseURL, timeZone string) (*pgxpool.Pool, error) {
	cfg, err := PoolConfig(databaseURL, timeZone)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}
