// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package redis connects the optional search-result cache.

The library itself lives in a JSON document. Redis only holds expiring copies of
catalog responses, so an empty REDIS_URL simply leaves the cache off and every
search goes to the upstream catalog.
*/
package redis

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// # Tuning

// A single user issues a handful of concurrent searches at most.
const (
	poolSize     = 4
	maxIdleConns = 2

	dialTimeout = 3 * time.Second
	ioTimeout   = 2 * time.Second
	pingTimeout = 2 * time.Second
)

// clientOptions parses redisURL and applies the cache tuning.
func clientOptions(redisURL string) (*redis.Options, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}

	options.PoolSize = poolSize
	options.MaxIdleConns = maxIdleConns
	options.DialTimeout = dialTimeout
	options.ReadTimeout = ioTimeout
	options.WriteTimeout = ioTimeout

	return options, nil
}

// # Lifecycle

/*
Connect opens the search cache client.

Description: An empty redisURL disables the cache and returns a nil client
without error. Otherwise the server must answer a ping before the client is
handed out.

Returns:
  - *redis.Client: The connected client, or nil when disabled
  - error: Invalid URL or unreachable server
*/
func Connect(context stdctx.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	if redisURL == "" {
		logger.Info("search_cache_disabled")
		return nil, nil
	}

	options, err := clientOptions(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(options)
	if err := Ping(context, client); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("search_cache_connected",
		slog.String("addr", options.Addr),
		slog.Int("db", options.DB),
	)

	return client, nil
}

// Ping checks that the cache server answers within pingTimeout.
func Ping(context stdctx.Context, client *redis.Client) error {
	pingCtx, cancel := stdctx.WithTimeout(context, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis: ping failed: %w", err)
	}
	return nil
}
