// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// post.go caches fully populated posts by slug. The slug endpoint is the
// public read path, so a hit skips the joined query and Markdown rendering.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"blogapi/internal/models"
)

const (
	postKeyPrefix = "post:"

	// DefaultPostTTL is how long a cached post stays in Valkey.
	DefaultPostTTL = 5 * time.Minute
)

// PostCache stores rendered posts in Valkey. Failures are logged and
// treated as misses; the database stays the source of truth. A nil
// *PostCache is a valid cache that never hits.
type PostCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPostCache creates a post cache backed by the given Valkey client.
func NewPostCache(client *redis.Client, ttl time.Duration) *PostCache {
	if ttl <= 0 {
		ttl = DefaultPostTTL
	}
	return &PostCache{client: client, ttl: ttl}
}

// Get returns the cached post for slug.
func (pc *PostCache) Get(ctx context.Context, slug string) (*models.Post, bool) {
	if pc == nil {
		return nil, false
	}
	val, err := pc.client.Get(ctx, postKeyPrefix+slug).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.Warn("post cache get error", "slug", slug, "error", err)
		return nil, false
	}

	var p models.Post
	if err := json.Unmarshal(val, &p); err != nil {
		slog.Warn("post cache decode error", "slug", slug, "error", err)
		return nil, false
	}
	slog.Debug("post cache hit", "slug", slug)
	return &p, true
}

// Set stores p under its slug with the configured TTL.
func (pc *PostCache) Set(ctx context.Context, p *models.Post) {
	if pc == nil || p == nil {
		return
	}
	val, err := json.Marshal(p)
	if err != nil {
		slog.Warn("post cache encode error", "slug", p.Slug, "error", err)
		return
	}
	if err := pc.client.Set(ctx, postKeyPrefix+p.Slug, val, pc.ttl).Err(); err != nil {
		slog.Warn("post cache set error", "slug", p.Slug, "error", err)
	}
}

// Invalidate removes a single post from the cache.
func (pc *PostCache) Invalidate(ctx context.Context, slug string) {
	if pc == nil {
		return
	}
	if err := pc.client.Del(ctx, postKeyPrefix+slug).Err(); err != nil {
		slog.Warn("post cache invalidate error", "slug", slug, "error", err)
		return
	}
	slog.Debug("post cache invalidated", "slug", slug)
}

// InvalidateAll drops every cached post. Category and author edits show
// up inside populated posts, so they clear the whole cache.
func (pc *PostCache) InvalidateAll(ctx context.Context) {
	if pc == nil {
		return
	}
	var cursor uint64
	var deleted int
	for {
		keys, next, err := pc.client.Scan(ctx, cursor, postKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("post cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := pc.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("post cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("post cache cleared", "deleted", deleted)
	}
}
