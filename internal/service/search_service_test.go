package service

import (
	"context"
	"testing"

	"github.com/Tetsu-is/social-feed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchResolvesInRankOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	older, err := env.posts.CreatePost(ctx, "alice", domain.Content{Text: "redis streams"}, nil)
	require.NoError(t, err)
	env.seedPost(t, "unrelated", 1)
	newer := env.seedPost(t, "newer", older.Score()+1000)
	newer.Content.Text = "more on Redis"
	require.NoError(t, env.store.CreatePost(ctx, &newer))

	posts, err := env.search.Search(ctx, "redis", 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "newer", posts[0].ID)
	assert.Equal(t, older.ID, posts[1].ID)

	// 2件目は DB から読んでキャッシュに載る
	assert.True(t, env.mr.Exists("post:newer"))
}

func TestSearchEmptyQuery(t *testing.T) {
	env := newTestEnv(t)
	posts, err := env.search.Search(context.Background(), "  ", 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Empty(t, posts)
}
