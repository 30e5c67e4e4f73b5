package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Tetsu-is/social-feed/internal/cache"
	"github.com/Tetsu-is/social-feed/internal/domain"
	"github.com/Tetsu-is/social-feed/internal/memstore"
	"github.com/Tetsu-is/social-feed/internal/queue"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var errQueueDown = errors.New("queue unavailable")

// memQueue records enqueued jobs so tests can deliver them by hand.
type memQueue struct {
	mu   sync.Mutex
	jobs []queue.Job
	err  error
}

func (q *memQueue) Enqueue(_ context.Context, name string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	q.jobs = append(q.jobs, queue.Job{ID: name + "-" + strconv.Itoa(len(q.jobs)), Name: name, Payload: raw})
	return nil
}

func (q *memQueue) take() []queue.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	jobs := q.jobs
	q.jobs = nil
	return jobs
}

type testEnv struct {
	mr    *miniredis.Miniredis
	store *memstore.Store
	queue *memQueue

	statsCache *cache.StatsCache
	timelines  *cache.TimelineCache
	cursors    *cache.ReadCursorCache

	content      *ContentService
	stats        *StatsService
	reconciler   *Reconciler
	posts        *PostService
	feed         *FeedService
	fanout       *FanoutWorker
	interactions *InteractionService
	follows      *FollowService
	users        *UserService
	search       *SearchService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	q := &memQueue{}

	postCache := cache.NewPostCache(rdb, 24*time.Hour)
	statsCache := cache.NewStatsCache(rdb, 24*time.Hour)
	timelines := cache.NewTimelineCache(rdb)
	cursors := cache.NewReadCursorCache(rdb)

	content := NewContentService(store, postCache, statsCache, logger)
	stats := NewStatsService(store, statsCache)

	return &testEnv{
		mr:           mr,
		store:        store,
		queue:        q,
		statsCache:   statsCache,
		timelines:    timelines,
		cursors:      cursors,
		content:      content,
		stats:        stats,
		reconciler:   NewReconciler(store, statsCache, 10*time.Millisecond, 100, logger),
		posts:        NewPostService(store, postCache, timelines, q, logger),
		feed:         NewFeedService(timelines, cursors, store, store, content, 20, 100, logger),
		fanout:       NewFanoutWorker(store, timelines, logger),
		interactions: NewInteractionService(store, store, stats),
		follows:      NewFollowService(store, store),
		users:        NewUserService(store),
		search:       NewSearchService(store, content),
	}
}

// deliver hands every queued job to the fanout worker once.
func (e *testEnv) deliver(t *testing.T) int {
	t.Helper()
	jobs := e.queue.take()
	for _, job := range jobs {
		require.NoError(t, e.fanout.Handle(context.Background(), job))
	}
	return len(jobs)
}

// seedPost stores a post directly in the persistent store, bypassing caches.
func (e *testEnv) seedPost(t *testing.T, id string, score int64, tags ...string) domain.Post {
	t.Helper()
	p := domain.Post{
		ID:        id,
		UserID:    "author",
		Content:   domain.Content{Text: "post " + id},
		Media:     []map[string]any{},
		Tags:      append([]string{}, tags...),
		CreatedAt: time.UnixMilli(score).UTC(),
	}
	require.NoError(t, e.store.CreatePost(context.Background(), &p))
	return p
}

func (e *testEnv) cachedLikes(t *testing.T, postID string) int64 {
	t.Helper()
	stats, err := e.statsCache.GetStats(context.Background(), []string{postID})
	require.NoError(t, err)
	return stats[postID].Likes
}

func feedIDs(page *domain.FeedPage) []string {
	ids := make([]string, len(page.Posts))
	for i, p := range page.Posts {
		ids[i] = p.ID
	}
	return ids
}
