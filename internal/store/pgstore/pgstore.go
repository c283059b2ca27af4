// internal/store/pgstore/pgstore.go
//
// Postgres-backed stores. Room records are JSONB documents in a `rooms`
// table guarded by a bigint version column: every Update re-reads the latest
// committed document, applies the mutation, and commits with a
// compare-and-swap on the version, retrying on conflict. Watch fan-out rides
// Redis pub/sub so that every server instance sees every committed change.
package pgstore

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Connect builds a pgx pool from the standard environment variables and
// pings it. Fatal misconfiguration is returned, not logged.
func Connect(ctx context.Context) (*pgxpool.Pool, error) {
	connStr := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		os.Getenv("PG_HOST"),
		os.Getenv("PG_PORT"),
		os.Getenv("PG_DATABASE"),
	)

	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

// ConnectRedis initializes a Redis client from REDIS_ADDR / REDIS_DB.
func ConnectRedis(ctx context.Context) (*redis.Client, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Pub/sub channel names.
const (
	roomChannelPrefix = "room:"
	openRoomsChannel  = "rooms:changed"
	squadsChannel     = "squads:changed"
)

func roomChannel(code string) string {
	return roomChannelPrefix + code
}
