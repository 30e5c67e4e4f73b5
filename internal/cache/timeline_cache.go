package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Tetsu-is/social-feed/internal/domain"
	"github.com/redis/go-redis/v9"
)

// TimelineCache stores personal and global timelines as sorted sets scored
// by publish time in milliseconds. Entries are never trimmed.
type TimelineCache struct {
	rdb redis.UniversalClient
}

func NewTimelineCache(rdb redis.UniversalClient) *TimelineCache {
	return &TimelineCache{rdb: rdb}
}

// AddToTimelines inserts entry into every user's personal timeline in one
// pipeline. Re-adding the same entry leaves the timeline unchanged.
func (c *TimelineCache) AddToTimelines(ctx context.Context, userIDs []string, entry domain.TimelineEntry) error {
	if len(userIDs) == 0 {
		return nil
	}

	z := redis.Z{Score: float64(entry.Score), Member: entry.PostID}
	pipe := c.rdb.Pipeline()
	for _, uid := range userIDs {
		pipe.ZAdd(ctx, timelineKey(uid), z)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("fanout %s: %w", entry.PostID, err)
	}
	return nil
}

func (c *TimelineCache) AddToGlobal(ctx context.Context, entry domain.TimelineEntry) error {
	return c.rdb.ZAdd(ctx, globalFeedKey, redis.Z{Score: float64(entry.Score), Member: entry.PostID}).Err()
}

func (c *TimelineCache) Personal(ctx context.Context, userID string, before *int64, limit int) ([]domain.TimelineEntry, error) {
	return c.rangeDesc(ctx, timelineKey(userID), before, limit)
}

func (c *TimelineCache) Global(ctx context.Context, before *int64, limit int) ([]domain.TimelineEntry, error) {
	return c.rangeDesc(ctx, globalFeedKey, before, limit)
}

// rangeDesc returns up to limit entries with score strictly below before,
// highest score first.
func (c *TimelineCache) rangeDesc(ctx context.Context, key string, before *int64, limit int) ([]domain.TimelineEntry, error) {
	upper := "+inf"
	if before != nil {
		upper = "(" + strconv.FormatInt(*before, 10)
	}

	zs, err := c.rdb.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   upper,
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("range %s: %w", key, err)
	}

	entries := make([]domain.TimelineEntry, 0, len(zs))
	for _, z := range zs {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, domain.TimelineEntry{PostID: id, Score: int64(z.Score)})
	}
	return entries, nil
}
