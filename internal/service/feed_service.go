package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Tetsu-is/social-feed/internal/domain"
	"github.com/Tetsu-is/social-feed/internal/metrics"
)

type FeedService struct {
	timelines    domain.TimelineCache
	cursors      domain.ReadCursorCache
	users        domain.UserRepository
	feeds        domain.FeedRepository
	content      *ContentService
	defaultLimit int
	maxLimit     int
	logger       *slog.Logger
}

func NewFeedService(
	timelines domain.TimelineCache,
	cursors domain.ReadCursorCache,
	users domain.UserRepository,
	feeds domain.FeedRepository,
	content *ContentService,
	defaultLimit, maxLimit int,
	logger *slog.Logger,
) *FeedService {
	return &FeedService{
		timelines:    timelines,
		cursors:      cursors,
		users:        users,
		feeds:        feeds,
		content:      content,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		logger:       logger,
	}
}

// GetFeed merges the personal timeline, the global timeline and interest
// recommendations into one page of posts with score strictly below cursor.
func (s *FeedService) GetFeed(ctx context.Context, uid string, cursor *int64, limit int) (*domain.FeedPage, error) {
	if uid == "" {
		return nil, domain.ErrUserNotLogin
	}
	limit = s.clampLimit(limit)

	personal, err := s.timelines.Personal(ctx, uid, cursor, limit)
	if err != nil {
		return nil, err
	}
	global, err := s.timelines.Global(ctx, cursor, limit)
	if err != nil {
		return nil, err
	}

	cands := make([]domain.Candidate, 0, len(personal)+len(global)+limit)
	cands = append(cands, candidates(personal, domain.SourcePersonal)...)
	cands = append(cands, candidates(global, domain.SourceGlobal)...)

	interests, err := s.users.GetInterests(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("load interests: %w", err)
	}
	if len(interests) > 0 {
		exclude := make([]string, len(cands))
		for i, c := range cands {
			exclude[i] = c.PostID
		}
		recs, err := s.feeds.GetRecommendations(ctx, interests, exclude, cursor, limit)
		if err != nil {
			return nil, fmt.Errorf("load recommendations: %w", err)
		}
		cands = append(cands, candidates(recs, domain.SourceRecommendation)...)
	}

	merged := Merge(cands, limit)
	page := &domain.FeedPage{Posts: []domain.FeedPost{}}
	if len(merged) == 0 {
		metrics.FeedItems.Observe(0)
		return page, nil
	}

	ids := make([]string, len(merged))
	for i, c := range merged {
		ids[i] = c.PostID
	}
	posts, err := s.content.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	readCursor, err := s.cursors.GetReadCursor(ctx, uid)
	if err != nil {
		return nil, err
	}

	for _, c := range merged {
		post, ok := posts[c.PostID]
		if !ok {
			// タイムラインに残っているが本体が存在しない
			s.logger.Debug("dropping dangling feed entry", "uid", uid, "post_id", c.PostID)
			continue
		}
		page.Posts = append(page.Posts, domain.FeedPost{
			Post:        post,
			IsNew:       c.Score > readCursor,
			IsRecommend: c.Source == domain.SourceRecommendation,
		})
	}

	// 本体が欠けていてもページ境界はマージ結果で決める
	next := merged[len(merged)-1].Score
	page.NextCursor = &next

	metrics.FeedItems.Observe(float64(len(page.Posts)))
	return page, nil
}

// MarkRead advances the caller's read cursor; older timestamps are ignored.
func (s *FeedService) MarkRead(ctx context.Context, uid string, ts int64) error {
	if uid == "" {
		return domain.ErrUserNotLogin
	}
	if ts <= 0 {
		return domain.ErrTimestampRequired
	}
	_, err := s.cursors.AdvanceReadCursor(ctx, uid, ts)
	return err
}

func (s *FeedService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}
