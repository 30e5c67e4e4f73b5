package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Tetsu-is/social-feed/internal/domain"
	"github.com/google/uuid"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload any) error
}

// PostService is the publish path.
type PostService struct {
	posts     domain.PostRepository
	cache     domain.PostCache
	timelines domain.TimelineCache
	queue     Enqueuer
	logger    *slog.Logger
	now       func() time.Time
}

func NewPostService(posts domain.PostRepository, cache domain.PostCache, timelines domain.TimelineCache, queue Enqueuer, logger *slog.Logger) *PostService {
	return &PostService{
		posts:     posts,
		cache:     cache,
		timelines: timelines,
		queue:     queue,
		logger:    logger,
		now:       time.Now,
	}
}

// CreatePost persists a post, caches it and enqueues its fanout. The row
// write and the enqueue are separate steps: if the enqueue fails the post
// stays stored but is never fanned out.
func (s *PostService) CreatePost(ctx context.Context, uid string, content domain.Content, media []map[string]any) (*domain.Post, error) {
	post, err := s.publish(ctx, uid, content, media, false)
	if err != nil {
		return nil, err
	}

	job := domain.FanoutJob{PostID: post.ID, AuthorID: uid, CreatedAt: post.Score()}
	if err := s.queue.Enqueue(ctx, domain.JobFanoutPost, job); err != nil {
		return nil, fmt.Errorf("enqueue fanout %s: %w", post.ID, err)
	}
	return post, nil
}

// CreateSystemPost publishes a broadcast straight into the global timeline.
func (s *PostService) CreateSystemPost(ctx context.Context, uid string, content domain.Content, media []map[string]any) (*domain.Post, error) {
	post, err := s.publish(ctx, uid, content, media, true)
	if err != nil {
		return nil, err
	}

	if err := s.timelines.AddToGlobal(ctx, domain.TimelineEntry{PostID: post.ID, Score: post.Score()}); err != nil {
		return nil, fmt.Errorf("add %s to global feed: %w", post.ID, err)
	}
	return post, nil
}

func (s *PostService) publish(ctx context.Context, uid string, content domain.Content, media []map[string]any, system bool) (*domain.Post, error) {
	if uid == "" {
		return nil, domain.ErrUserNotLogin
	}
	if strings.TrimSpace(content.Text) == "" && len(media) == 0 {
		return nil, domain.ErrContentRequired
	}

	// ID採番 (UUID v7)
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	if media == nil {
		media = []map[string]any{}
	}

	post := &domain.Post{
		ID:        id.String(),
		UserID:    uid,
		Content:   content,
		Media:     media,
		Tags:      ExtractTags(content.Text),
		IsSystem:  system,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	if err := s.cache.SetContent(ctx, []domain.Post{*post}); err != nil {
		s.logger.Warn("post cache populate failed", "post_id", post.ID, "error", err)
	}
	return post, nil
}
