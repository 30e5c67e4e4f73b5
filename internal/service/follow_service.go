package service

import (
	"context"

	"github.com/Tetsu-is/social-feed/internal/domain"
)

type FollowService struct {
	follows domain.FollowRepository
	users   domain.UserRepository
}

func NewFollowService(follows domain.FollowRepository, users domain.UserRepository) *FollowService {
	return &FollowService{follows: follows, users: users}
}

// Follow creates the edge if it does not exist. Followee ids are trusted and
// get a user row on first use.
func (s *FollowService) Follow(ctx context.Context, followerID, followeeID string) error {
	if err := validateFollow(followerID, followeeID); err != nil {
		return err
	}
	if err := s.users.EnsureUser(ctx, followeeID); err != nil {
		return err
	}
	return s.follows.CreateFollow(ctx, followerID, followeeID)
}

func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID string) error {
	if err := validateFollow(followerID, followeeID); err != nil {
		return err
	}
	return s.follows.DeleteFollow(ctx, followerID, followeeID)
}

func validateFollow(followerID, followeeID string) error {
	switch {
	case followerID == "":
		return domain.ErrUserNotLogin
	case followeeID == "":
		return domain.ErrFolloweeIDRequired
	case followerID == followeeID:
		return domain.ErrCannotFollowSelf
	}
	return nil
}
