package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Tetsu-is/social-feed/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func testPost(id string, likes int64) domain.Post {
	return domain.Post{
		ID:        id,
		UserID:    "u1",
		Content:   domain.Content{Text: "hello"},
		Tags:      []string{},
		Stats:     domain.Stats{Likes: likes},
		CreatedAt: time.UnixMilli(1_700_000_000_000).UTC(),
	}
}

func TestPostCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	pc := NewPostCache(rdb, 24*time.Hour)

	require.NoError(t, pc.SetContent(ctx, []domain.Post{testPost("p1", 3)}))

	got, err := pc.GetContent(ctx, []string{"p1", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got["p1"].Content.Text)
	assert.Equal(t, int64(3), got["p1"].Stats.Likes)

	assert.Equal(t, 24*time.Hour, mr.TTL("post:p1"))
	assert.Equal(t, 24*time.Hour, mr.TTL("post:stats:p1"))
}

func TestPostCacheDoesNotOverwriteLiveCounters(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	pc := NewPostCache(rdb, time.Hour)
	sc := NewStatsCache(rdb, time.Hour)

	require.NoError(t, pc.SetContent(ctx, []domain.Post{testPost("p1", 0)}))
	for range 2 {
		_, ok, err := sc.Incr(ctx, "p1", domain.StatLikes, 1)
		require.NoError(t, err)
		require.True(t, ok)
	}

	// 古い DB の値で再投入しても上書きしない
	require.NoError(t, pc.SetContent(ctx, []domain.Post{testPost("p1", 0)}))

	got, err := pc.GetContent(ctx, []string{"p1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), got["p1"].Stats.Likes)
}

func TestPostCacheFallsBackToEmbeddedStats(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	pc := NewPostCache(rdb, time.Hour)

	require.NoError(t, pc.SetContent(ctx, []domain.Post{testPost("p1", 7)}))
	mr.Del("post:stats:p1")

	got, err := pc.GetContent(ctx, []string{"p1"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), got["p1"].Stats.Likes)
}

func TestStatsIncrMarksDirty(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	sc := NewStatsCache(rdb, time.Hour)

	n, err := sc.SeedIncr(ctx, "p1", domain.StatLikes, 1, domain.Stats{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, ok, err := sc.Incr(ctx, "p1", domain.StatLikes, -1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(0), n)

	members, err := mr.Members("stats:dirty_posts")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, members)
	assert.Equal(t, time.Hour, mr.TTL("post:stats:p1"))
}

func TestStatsIncrSkipsMissingHash(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	sc := NewStatsCache(rdb, time.Hour)

	// 期限切れのハッシュをゼロから作り直さない
	_, ok, err := sc.Incr(ctx, "p1", domain.StatLikes, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("post:stats:p1"))
	assert.False(t, mr.Exists("stats:dirty_posts"))
}

func TestStatsPopAndGet(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	sc := NewStatsCache(rdb, time.Hour)

	for _, id := range []string{"a", "b", "c"} {
		_, err := sc.SeedIncr(ctx, id, domain.StatComments, 2, domain.Stats{})
		require.NoError(t, err)
	}
	mr.Del("post:stats:b")

	ids, err := sc.PopDirty(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	rest, err := sc.PopDirty(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	empty, err := sc.PopDirty(ctx, 100)
	require.NoError(t, err)
	assert.Empty(t, empty)

	stats, err := sc.GetStats(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, stats, 2)
	assert.Equal(t, int64(2), stats["a"].Comments)
	_, ok := stats["b"]
	assert.False(t, ok)
}

func TestStatsSeedIncr(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	sc := NewStatsCache(rdb, time.Hour)

	n, err := sc.SeedIncr(ctx, "p1", domain.StatLikes, 1, domain.Stats{Likes: 5, Comments: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)

	// 既に存在するハッシュには古い値を上書きしない
	n, err = sc.SeedIncr(ctx, "p1", domain.StatLikes, 1, domain.Stats{Likes: 9})
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	stats, err := sc.GetStats(ctx, []string{"p1"})
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Likes: 7, Comments: 1}, stats["p1"])
}

func TestTimelineRangeWithCursor(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	tc := NewTimelineCache(rdb)

	for i, score := range []int64{100, 90, 80, 70, 60} {
		id := string(rune('a' + i))
		require.NoError(t, tc.AddToTimelines(ctx, []string{"u1"}, domain.TimelineEntry{PostID: id, Score: score}))
	}

	page, err := tc.Personal(ctx, "u1", nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []domain.TimelineEntry{{PostID: "a", Score: 100}, {PostID: "b", Score: 90}}, page)

	cursor := int64(90)
	page, err = tc.Personal(ctx, "u1", &cursor, 2)
	require.NoError(t, err)
	assert.Equal(t, []domain.TimelineEntry{{PostID: "c", Score: 80}, {PostID: "d", Score: 70}}, page)

	empty, err := tc.Personal(ctx, "nobody", nil, 2)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestTimelineAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	tc := NewTimelineCache(rdb)

	entry := domain.TimelineEntry{PostID: "p1", Score: 42}
	require.NoError(t, tc.AddToTimelines(ctx, []string{"u1", "u2"}, entry))
	require.NoError(t, tc.AddToTimelines(ctx, []string{"u1", "u2"}, entry))
	require.NoError(t, tc.AddToGlobal(ctx, entry))

	for _, key := range []string{"timeline:feed:u1", "timeline:feed:u2", "global:system:feed"} {
		members, err := mr.ZMembers(key)
		require.NoError(t, err)
		assert.Equal(t, []string{"p1"}, members, key)
	}

	global, err := tc.Global(ctx, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []domain.TimelineEntry{entry}, global)
}

func TestReadCursorIsMonotonic(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	rc := NewReadCursorCache(rdb)

	ts, err := rc.GetReadCursor(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, ts)

	moved, err := rc.AdvanceReadCursor(ctx, "u1", 200)
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = rc.AdvanceReadCursor(ctx, "u1", 100)
	require.NoError(t, err)
	assert.False(t, moved)

	ts, err = rc.GetReadCursor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), ts)
}
