package cache

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// advanceCursor sets KEYS[1] to ARGV[1] only when it is greater than the
// stored value.
var advanceCursor = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local ts = tonumber(ARGV[1])
if ts > cur then
  redis.call('SET', KEYS[1], ARGV[1])
  return 1
end
return 0
`)

type ReadCursorCache struct {
	rdb redis.UniversalClient
}

func NewReadCursorCache(rdb redis.UniversalClient) *ReadCursorCache {
	return &ReadCursorCache{rdb: rdb}
}

// GetReadCursor returns the last-seen timestamp, or 0 when unset.
func (c *ReadCursorCache) GetReadCursor(ctx context.Context, userID string) (int64, error) {
	v, err := c.rdb.Get(ctx, cursorKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// AdvanceReadCursor moves the cursor forward; it reports whether it moved.
func (c *ReadCursorCache) AdvanceReadCursor(ctx context.Context, userID string, ts int64) (bool, error) {
	n, err := advanceCursor.Run(ctx, c.rdb, []string{cursorKey(userID)}, ts).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
