package service

import (
	"context"
	"strings"

	"github.com/Tetsu-is/social-feed/internal/domain"
)

type UserService struct {
	users domain.UserRepository
}

func NewUserService(users domain.UserRepository) *UserService {
	return &UserService{users: users}
}

// UpdateInterests replaces the caller's interest tags with the distinct
// non-blank entries of tags.
func (s *UserService) UpdateInterests(ctx context.Context, uid string, tags []string) ([]string, error) {
	if uid == "" {
		return nil, domain.ErrUserNotLogin
	}
	if tags == nil {
		return nil, domain.ErrTagsRequired
	}

	clean := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		clean = append(clean, t)
	}

	if err := s.users.UpdateInterests(ctx, uid, clean); err != nil {
		return nil, err
	}
	return clean, nil
}
