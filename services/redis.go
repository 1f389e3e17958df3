// Package services builds the process-wide Redis clients. Session state and
// message history may live on separate instances; each client is pinged
// before use so a bad address fails startup, not the first request.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vishal2612200/websocket-relay/config"
)

const pingTimeout = 5 * time.Second

// NewSessionClient connects to the Redis instance holding session state.
func NewSessionClient(cfg *config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	return newClient(cfg.Address, cfg.DB, cfg, logger)
}

// NewMessageClient connects to the optional second instance holding message
// history. Returns (nil, nil) when no separate instance is configured; the
// session client then carries history too.
func NewMessageClient(cfg *config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	if cfg.MessageAddress == "" {
		return nil, nil
	}
	return newClient(cfg.MessageAddress, cfg.MessageDB, cfg, logger)
}

func newClient(address string, db int, cfg *config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        address,
		DB:          db,
		Password:    cfg.Password,
		PoolSize:    cfg.PoolSize,
		PoolTimeout: time.Duration(cfg.PoolTimeout) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed (%s): %w", address, err)
	}

	logger.Info("connected to Redis",
		slog.String("component", "services"),
		slog.String("address", address),
		slog.Int("db", db),
	)
	return client, nil
}

// CloseRedisClient closes a client; a nil client is a no-op.
func CloseRedisClient(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
