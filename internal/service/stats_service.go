package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Tetsu-is/social-feed/internal/domain"
)

// StatsService applies counter changes to the write-behind cache.
type StatsService struct {
	posts domain.PostRepository
	cache domain.StatsCache
}

func NewStatsService(posts domain.PostRepository, cache domain.StatsCache) *StatsService {
	return &StatsService{posts: posts, cache: cache}
}

// Adjust adds delta to one counter of postID and marks the post dirty. A
// counter hash that has expired is re-seeded from the stored row in the same
// atomic step as the increment, so the count never restarts from zero.
func (s *StatsService) Adjust(ctx context.Context, postID string, field domain.StatField, delta int64) error {
	if !field.Valid() {
		return domain.ErrInvalidRequest
	}

	_, ok, err := s.cache.Incr(ctx, postID, field, delta)
	if err != nil || ok {
		return err
	}

	// キャッシュ切れ: DB の値から再開する
	var seed domain.Stats
	stats, err := s.posts.GetPostStats(ctx, postID)
	switch {
	case err == nil:
		seed = *stats
	case !errors.Is(err, domain.ErrPostNotFound):
		return fmt.Errorf("load stats %s: %w", postID, err)
	}

	_, err = s.cache.SeedIncr(ctx, postID, field, delta, seed)
	return err
}
