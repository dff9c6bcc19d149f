package db

import (
	"context"
	"fmt"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis connects to Redis at redisURL and checks it answers
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	l := logger.WithComponent("db")
	l.Info().Str("addr", opt.Addr).Msg("redis connected")
	return client, nil
}

// CloseRedis closes the Redis client
func CloseRedis(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
