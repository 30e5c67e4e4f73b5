// Package memstore is an in-memory implementation of the persistent store
// ports, used by tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/Tetsu-is/social-feed/internal/domain"
)

type like struct{ userID, postID string }

type Store struct {
	mu        sync.Mutex
	posts     map[string]domain.Post
	users     map[string]*domain.User
	follows   map[[2]string]struct{}
	likes     map[like]struct{}
	comments  []domain.Comment
	statsErrs map[string]error

	// StatsWrites counts successful UpdatePostStats calls.
	StatsWrites int
}

func New() *Store {
	return &Store{
		posts:     map[string]domain.Post{},
		users:     map[string]*domain.User{},
		follows:   map[[2]string]struct{}{},
		likes:     map[like]struct{}{},
		statsErrs: map[string]error{},
	}
}

// FailStatsWrites makes UpdatePostStats return err for postID.
func (s *Store) FailStatsWrites(postID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statsErrs[postID] = err
}

// Post returns the stored row for id.
func (s *Store) Post(id string) (domain.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	return p, ok
}

func (s *Store) FollowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.follows)
}

// ---- posts ----

func (s *Store) CreatePost(_ context.Context, post *domain.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = *post
	return nil
}

func (s *Store) GetPostsByIDs(_ context.Context, ids []string) ([]domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Post
	for _, id := range ids {
		if p, ok := s.posts[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) GetPostStats(_ context.Context, id string) (*domain.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	stats := p.Stats
	return &stats, nil
}

func (s *Store) UpdatePostStats(_ context.Context, id string, stats domain.Stats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.statsErrs[id]; err != nil {
		return err
	}
	p, ok := s.posts[id]
	if !ok {
		return domain.ErrPostNotFound
	}
	p.Stats = stats
	s.posts[id] = p
	s.StatsWrites++
	return nil
}

func (s *Store) GetRecommendations(_ context.Context, tags, excludeIDs []string, before *int64, limit int) ([]domain.TimelineEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.TimelineEntry
	for _, p := range s.posts {
		if slices.Contains(excludeIDs, p.ID) {
			continue
		}
		if before != nil && p.Score() >= *before {
			continue
		}
		if !slices.ContainsFunc(p.Tags, func(t string) bool { return slices.Contains(tags, t) }) {
			continue
		}
		out = append(out, domain.TimelineEntry{PostID: p.ID, Score: p.Score()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PostID > out[j].PostID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) SearchPostIDs(_ context.Context, q string, limit, offset int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var hits []domain.Post
	for _, p := range s.posts {
		if strings.Contains(strings.ToLower(p.Content.Text), strings.ToLower(q)) {
			hits = append(hits, p)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].CreatedAt.After(hits[j].CreatedAt) })
	var ids []string
	for i := offset; i < len(hits) && len(ids) < limit; i++ {
		ids = append(ids, hits[i].ID)
	}
	return ids, nil
}

// ---- users / follows ----

func (s *Store) EnsureUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		s.users[userID] = &domain.User{ID: userID}
	}
	return nil
}

func (s *Store) GetInterests(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		return slices.Clone(u.Interests), nil
	}
	return nil, nil
}

func (s *Store) UpdateInterests(_ context.Context, userID string, tags []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		u = &domain.User{ID: userID}
		s.users[userID] = u
	}
	u.Interests = slices.Clone(tags)
	return nil
}

func (s *Store) CreateFollow(_ context.Context, followerID, followeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[followeeID]; !ok {
		return domain.ErrUserNotFound
	}
	s.follows[[2]string{followerID, followeeID}] = struct{}{}
	return nil
}

func (s *Store) DeleteFollow(_ context.Context, followerID, followeeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.follows, [2]string{followerID, followeeID})
	return nil
}

func (s *Store) GetFollowerIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for edge := range s.follows {
		if edge[1] == userID {
			ids = append(ids, edge[0])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ---- likes / comments ----

func (s *Store) CreateLike(_ context.Context, userID, postID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[postID]; !ok {
		return false, domain.ErrPostNotFound
	}
	k := like{userID, postID}
	if _, ok := s.likes[k]; ok {
		return false, nil
	}
	s.likes[k] = struct{}{}
	return true, nil
}

func (s *Store) DeleteLike(_ context.Context, userID, postID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := like{userID, postID}
	if _, ok := s.likes[k]; !ok {
		return false, nil
	}
	delete(s.likes, k)
	return true, nil
}

func (s *Store) CreateComment(_ context.Context, c *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[c.PostID]; !ok {
		return domain.ErrPostNotFound
	}
	s.comments = append(s.comments, *c)
	return nil
}

func (s *Store) ListComments(_ context.Context, postID string, limit, offset int) ([]domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Comment{}
	skipped := 0
	for _, c := range s.comments {
		if c.PostID != postID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, c)
	}
	return out, nil
}
