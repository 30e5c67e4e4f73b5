package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Tetsu-is/social-feed/internal/domain"
)

// ContentService resolves post ids through the post cache, falling back to
// the persistent store and repopulating the cache on a miss.
type ContentService struct {
	posts  domain.PostRepository
	cache  domain.PostCache
	stats  domain.StatsCache
	logger *slog.Logger
}

func NewContentService(posts domain.PostRepository, cache domain.PostCache, stats domain.StatsCache, logger *slog.Logger) *ContentService {
	return &ContentService{posts: posts, cache: cache, stats: stats, logger: logger}
}

// Resolve returns the posts that exist among ids, keyed by id.
func (s *ContentService) Resolve(ctx context.Context, ids []string) (map[string]domain.Post, error) {
	found, err := s.cache.GetContent(ctx, ids)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return found, nil
	}

	rows, err := s.posts.GetPostsByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	if len(rows) == 0 {
		return found, nil
	}

	if err := s.cache.SetContent(ctx, rows); err != nil {
		s.logger.Warn("post cache populate failed", "count", len(rows), "error", err)
	}

	// 期限切れでないカウンタがあればそちらを優先する
	reloaded := make([]string, len(rows))
	for i, p := range rows {
		reloaded[i] = p.ID
	}
	live, err := s.stats.GetStats(ctx, reloaded)
	if err != nil {
		s.logger.Warn("stats lookup failed", "count", len(reloaded), "error", err)
		live = nil
	}
	for _, p := range rows {
		if st, ok := live[p.ID]; ok {
			p.Stats = st
		}
		found[p.ID] = p
	}
	return found, nil
}
