package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Tetsu-is/social-feed/internal/domain"
	"github.com/Tetsu-is/social-feed/internal/metrics"
	"github.com/redis/go-redis/v9"
)

// PostCache holds post content under post:{id} and counters under post:stats:{id}.
type PostCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewPostCache(rdb redis.UniversalClient, ttl time.Duration) *PostCache {
	return &PostCache{rdb: rdb, ttl: ttl}
}

// GetContent returns the cached posts among ids. Live counters, when present,
// replace the stats embedded in the cached content.
func (c *PostCache) GetContent(ctx context.Context, ids []string) (map[string]domain.Post, error) {
	out := make(map[string]domain.Post, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	pipe := c.rdb.Pipeline()
	contents := make([]*redis.StringCmd, len(ids))
	stats := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		contents[i] = pipe.Get(ctx, postKey(id))
		stats[i] = pipe.HGetAll(ctx, statsKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get post content: %w", err)
	}

	for i, id := range ids {
		raw, err := contents[i].Bytes()
		if err != nil {
			metrics.CacheLookups.WithLabelValues("miss").Inc()
			continue
		}
		var post domain.Post
		if err := json.Unmarshal(raw, &post); err != nil {
			// 壊れたエントリは miss 扱い
			metrics.CacheLookups.WithLabelValues("miss").Inc()
			continue
		}
		if s := stats[i].Val(); len(s) > 0 {
			post.Stats = parseStats(s)
		}
		out[id] = post
		metrics.CacheLookups.WithLabelValues("hit").Inc()
	}
	return out, nil
}

// SetContent caches posts and initializes their counter hashes. Existing
// counter fields are never overwritten.
func (c *PostCache) SetContent(ctx context.Context, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}

	pipe := c.rdb.Pipeline()
	for _, p := range posts {
		raw, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode post %s: %w", p.ID, err)
		}
		pipe.Set(ctx, postKey(p.ID), raw, c.ttl)
		seedStats(ctx, pipe, p.ID, p.Stats, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set post content: %w", err)
	}
	return nil
}

func seedStats(ctx context.Context, pipe redis.Pipeliner, id string, s domain.Stats, ttl time.Duration) {
	key := statsKey(id)
	pipe.HSetNX(ctx, key, string(domain.StatLikes), s.Likes)
	pipe.HSetNX(ctx, key, string(domain.StatComments), s.Comments)
	pipe.HSetNX(ctx, key, string(domain.StatShares), s.Shares)
	pipe.Expire(ctx, key, ttl)
}
