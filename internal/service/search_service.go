package service

import (
	"context"
	"strings"

	"github.com/Tetsu-is/social-feed/internal/domain"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type SearchService struct {
	search  domain.SearchRepository
	content *ContentService
}

func NewSearchService(search domain.SearchRepository, content *ContentService) *SearchService {
	return &SearchService{search: search, content: content}
}

// Search returns matching posts in rank order.
func (s *SearchService) Search(ctx context.Context, q string, limit, offset int) ([]domain.Post, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []domain.Post{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)
	offset = max(offset, 0)

	ids, err := s.search.SearchPostIDs(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domain.Post{}, nil
	}

	found, err := s.content.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}

	posts := make([]domain.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := found[id]; ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}
