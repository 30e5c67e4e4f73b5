package service

import (
	"context"
	"testing"

	"github.com/Tetsu-is/social-feed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFeedPaginatesWithoutGapOrOverlap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i, score := range []int64{100, 90, 80, 70, 60} {
		id := string(rune('a' + i))
		env.seedPost(t, id, score)
		require.NoError(t, env.timelines.AddToTimelines(ctx, []string{"u1"}, domain.TimelineEntry{PostID: id, Score: score}))
	}

	first, err := env.feed.GetFeed(ctx, "u1", nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, feedIDs(first))
	require.NotNil(t, first.NextCursor)
	assert.Equal(t, int64(90), *first.NextCursor)

	second, err := env.feed.GetFeed(ctx, "u1", first.NextCursor, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, feedIDs(second))
	assert.Equal(t, int64(70), *second.NextCursor)

	third, err := env.feed.GetFeed(ctx, "u1", second.NextCursor, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, feedIDs(third))

	last, err := env.feed.GetFeed(ctx, "u1", third.NextCursor, 2)
	require.NoError(t, err)
	assert.Empty(t, last.Posts)
	assert.Nil(t, last.NextCursor)
}

func TestGetFeedEmpty(t *testing.T) {
	env := newTestEnv(t)

	page, err := env.feed.GetFeed(context.Background(), "lonely", nil, 0)
	require.NoError(t, err)
	assert.NotNil(t, page.Posts)
	assert.Empty(t, page.Posts)
	assert.Nil(t, page.NextCursor)
}

func TestGetFeedRequiresIdentity(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.feed.GetFeed(context.Background(), "", nil, 10)
	assert.ErrorIs(t, err, domain.ErrUserNotLogin)
}

func TestGetFeedTimelinePostIsNotRecommended(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedPost(t, "shared", 300, "golang")
	env.seedPost(t, "rec", 200, "golang")
	env.seedPost(t, "sys", 250)
	env.seedPost(t, "other", 100, "rust")

	require.NoError(t, env.store.UpdateInterests(ctx, "u1", []string{"golang"}))
	require.NoError(t, env.timelines.AddToTimelines(ctx, []string{"u1"}, domain.TimelineEntry{PostID: "shared", Score: 300}))
	require.NoError(t, env.timelines.AddToGlobal(ctx, domain.TimelineEntry{PostID: "shared", Score: 300}))
	require.NoError(t, env.timelines.AddToGlobal(ctx, domain.TimelineEntry{PostID: "sys", Score: 250}))

	page, err := env.feed.GetFeed(ctx, "u1", nil, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"shared", "sys", "rec"}, feedIDs(page))

	assert.False(t, page.Posts[0].IsRecommend)
	assert.False(t, page.Posts[1].IsRecommend)
	assert.True(t, page.Posts[2].IsRecommend)
}

func TestGetFeedRecommendationsRespectCursor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedPost(t, "new", 500, "golang")
	env.seedPost(t, "old", 100, "golang")
	require.NoError(t, env.store.UpdateInterests(ctx, "u1", []string{"golang"}))

	cursor := int64(300)
	page, err := env.feed.GetFeed(ctx, "u1", &cursor, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, feedIDs(page))
}

func TestGetFeedMarksNewAgainstReadCursor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i, score := range []int64{100, 90, 80} {
		id := string(rune('a' + i))
		env.seedPost(t, id, score)
		require.NoError(t, env.timelines.AddToTimelines(ctx, []string{"u1"}, domain.TimelineEntry{PostID: id, Score: score}))
	}
	require.NoError(t, env.feed.MarkRead(ctx, "u1", 85))

	page, err := env.feed.GetFeed(ctx, "u1", nil, 10)
	require.NoError(t, err)
	require.Len(t, page.Posts, 3)
	assert.True(t, page.Posts[0].IsNew)
	assert.True(t, page.Posts[1].IsNew)
	assert.False(t, page.Posts[2].IsNew)
}

func TestGetFeedSkipsDanglingEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedPost(t, "kept", 100)
	require.NoError(t, env.timelines.AddToTimelines(ctx, []string{"u1"}, domain.TimelineEntry{PostID: "kept", Score: 100}))
	require.NoError(t, env.timelines.AddToTimelines(ctx, []string{"u1"}, domain.TimelineEntry{PostID: "gone", Score: 50}))

	page, err := env.feed.GetFeed(ctx, "u1", nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, feedIDs(page))
	assert.Equal(t, int64(50), *page.NextCursor)
}

func TestGetFeedPopulatesPostCacheOnMiss(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedPost(t, "p1", 100)
	require.NoError(t, env.timelines.AddToTimelines(ctx, []string{"u1"}, domain.TimelineEntry{PostID: "p1", Score: 100}))
	assert.False(t, env.mr.Exists("post:p1"))

	_, err := env.feed.GetFeed(ctx, "u1", nil, 10)
	require.NoError(t, err)
	assert.True(t, env.mr.Exists("post:p1"))
	assert.True(t, env.mr.Exists("post:stats:p1"))
}

func TestGetFeedClampsLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := range 120 {
		id := "p" + string(rune('A'+i%26)) + string(rune('a'+i/26))
		env.seedPost(t, id, int64(1000+i))
		require.NoError(t, env.timelines.AddToTimelines(ctx, []string{"u1"}, domain.TimelineEntry{PostID: id, Score: int64(1000 + i)}))
	}

	page, err := env.feed.GetFeed(ctx, "u1", nil, 0)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 20)

	page, err = env.feed.GetFeed(ctx, "u1", nil, 500)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 100)
}

func TestMarkReadIsMonotonic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.feed.MarkRead(ctx, "u1", 2000))
	require.NoError(t, env.feed.MarkRead(ctx, "u1", 1000))

	ts, err := env.cursors.GetReadCursor(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), ts)

	assert.ErrorIs(t, env.feed.MarkRead(ctx, "u1", 0), domain.ErrTimestampRequired)
	assert.ErrorIs(t, env.feed.MarkRead(ctx, "", 10), domain.ErrUserNotLogin)
}
