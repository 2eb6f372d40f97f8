// Copyright (c) 2026 Tsundoku. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package search

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/tsundoku/internal/platform/constants"
	"github.com/taibuivan/tsundoku/pkg/textkey"
)

// Cache keeps recent search results. Implementations degrade to a miss on failure.
type Cache interface {
	Get(ctx context.Context, source, query string) ([]Candidate, bool)
	Set(ctx context.Context, source, query string, candidates []Candidate)
}

// cacheKey folds the query so "Akira" and " akira " share an entry.
func cacheKey(source, query string) string {
	return constants.RedisPrefixSearch + source + ":" + textkey.Fold(query)
}

// RedisCache stores results as JSON strings with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache creates a Redis-backed [Cache].
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

/*
Get returns the cached candidates for (source, query).

Description: Absent keys, connectivity errors and undecodable payloads all
report a miss; only the latter two are logged.
*/
func (cache *RedisCache) Get(context context.Context, source, query string) ([]Candidate, bool) {
	payload, err := cache.client.Get(context, cacheKey(source, query)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			cache.logger.Warn("search_cache_get_failed", slog.String("source", source), slog.Any("error", err))
		}
		return nil, false
	}

	var candidates []Candidate
	if err := json.Unmarshal(payload, &candidates); err != nil {
		cache.logger.Warn("search_cache_decode_failed", slog.String("source", source), slog.Any("error", err))
		return nil, false
	}
	return candidates, true
}

// Set stores candidates; failures are logged and otherwise ignored.
func (cache *RedisCache) Set(context context.Context, source, query string, candidates []Candidate) {
	payload, err := json.Marshal(candidates)
	if err != nil {
		return
	}
	if err := cache.client.Set(context, cacheKey(source, query), payload, cache.ttl).Err(); err != nil {
		cache.logger.Warn("search_cache_set_failed", slog.String("source", source), slog.Any("error", err))
	}
}
