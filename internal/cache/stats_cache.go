package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tetsu-is/social-feed/internal/domain"
	"github.com/redis/go-redis/v9"
)

// StatsCache is the write-behind counter store plus its dirty set.
type StatsCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewStatsCache(rdb redis.UniversalClient, ttl time.Duration) *StatsCache {
	return &StatsCache{rdb: rdb, ttl: ttl}
}

// adjustStats increments one field of the counter hash KEYS[1], refreshes its
// TTL and adds ARGV[4] to the dirty set KEYS[2]. A missing hash is seeded
// from ARGV[6..8] first when ARGV[5] is "1"; otherwise nothing is written and
// {0, 0} is returned.
var adjustStats = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  if ARGV[5] ~= '1' then
    return {0, 0}
  end
  redis.call('HSET', KEYS[1], 'likes', ARGV[6], 'comments', ARGV[7], 'shares', ARGV[8])
end
local n = redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
redis.call('EXPIRE', KEYS[1], ARGV[3])
redis.call('SADD', KEYS[2], ARGV[4])
return {1, n}
`)

// Incr adjusts one counter of an existing hash, refreshes its TTL and marks
// the post dirty. It reports false, writing nothing, when the hash is absent.
func (c *StatsCache) Incr(ctx context.Context, postID string, field domain.StatField, delta int64) (int64, bool, error) {
	return c.adjust(ctx, postID, field, delta, nil)
}

// SeedIncr is Incr for a hash that may have expired: an absent hash is first
// set to seed. Both steps run atomically, so a hash recreated by another
// writer in between is incremented rather than overwritten.
func (c *StatsCache) SeedIncr(ctx context.Context, postID string, field domain.StatField, delta int64, seed domain.Stats) (int64, error) {
	n, _, err := c.adjust(ctx, postID, field, delta, &seed)
	return n, err
}

func (c *StatsCache) adjust(ctx context.Context, postID string, field domain.StatField, delta int64, seed *domain.Stats) (int64, bool, error) {
	args := []any{string(field), delta, int64(c.ttl / time.Second), postID, "0", 0, 0, 0}
	if seed != nil {
		args[4] = "1"
		args[5], args[6], args[7] = seed.Likes, seed.Comments, seed.Shares
	}

	res, err := adjustStats.Run(ctx, c.rdb, []string{statsKey(postID), dirtyPostsKey}, args...).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("incr %s.%s: %w", postID, field, err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("incr %s.%s: unexpected reply %v", postID, field, res)
	}
	return res[1], res[0] == 1, nil
}

// PopDirty removes and returns up to count dirty post ids.
func (c *StatsCache) PopDirty(ctx context.Context, count int) ([]string, error) {
	ids, err := c.rdb.SPopN(ctx, dirtyPostsKey, int64(count)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return ids, err
}

// GetStats returns counters for the ids whose hash still exists.
func (c *StatsCache) GetStats(ctx context.Context, ids []string) (map[string]domain.Stats, error) {
	out := make(map[string]domain.Stats, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	pipe := c.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, statsKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	for i, id := range ids {
		if m := cmds[i].Val(); len(m) > 0 {
			out[id] = parseStats(m)
		}
	}
	return out, nil
}
