package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Tetsu-is/social-feed/internal/domain"
	"github.com/google/uuid"
)

const (
	defaultCommentLimit = 50
	maxCommentLimit     = 200
)

// InteractionService handles likes and comments. Each change that inserts or
// removes a row adjusts the cached counters exactly once.
type InteractionService struct {
	likes    domain.LikeRepository
	comments domain.CommentRepository
	stats    *StatsService
	now      func() time.Time
}

func NewInteractionService(likes domain.LikeRepository, comments domain.CommentRepository, stats *StatsService) *InteractionService {
	return &InteractionService{likes: likes, comments: comments, stats: stats, now: time.Now}
}

func (s *InteractionService) LikePost(ctx context.Context, uid, postID string) (*domain.LikeResponse, error) {
	if uid == "" {
		return nil, domain.ErrUserNotLogin
	}

	inserted, err := s.likes.CreateLike(ctx, uid, postID)
	if err != nil {
		return nil, err
	}
	if !inserted {
		return &domain.LikeResponse{Success: true, Message: "already-liked"}, nil
	}

	if err := s.stats.Adjust(ctx, postID, domain.StatLikes, 1); err != nil {
		return nil, fmt.Errorf("adjust likes %s: %w", postID, err)
	}
	return &domain.LikeResponse{Success: true}, nil
}

func (s *InteractionService) UnlikePost(ctx context.Context, uid, postID string) (*domain.LikeResponse, error) {
	if uid == "" {
		return nil, domain.ErrUserNotLogin
	}

	removed, err := s.likes.DeleteLike(ctx, uid, postID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return &domain.LikeResponse{Success: true, Message: "not-liked"}, nil
	}

	if err := s.stats.Adjust(ctx, postID, domain.StatLikes, -1); err != nil {
		return nil, fmt.Errorf("adjust likes %s: %w", postID, err)
	}
	return &domain.LikeResponse{Success: true}, nil
}

func (s *InteractionService) CommentPost(ctx context.Context, uid, postID, content string, parentID *string) (*domain.Comment, error) {
	if uid == "" {
		return nil, domain.ErrUserNotLogin
	}
	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrContentRequired
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	c := &domain.Comment{
		ID:        id.String(),
		PostID:    postID,
		UserID:    uid,
		Content:   content,
		ParentID:  parentID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.comments.CreateComment(ctx, c); err != nil {
		return nil, err
	}

	if err := s.stats.Adjust(ctx, postID, domain.StatComments, 1); err != nil {
		return nil, fmt.Errorf("adjust comments %s: %w", postID, err)
	}
	return c, nil
}

func (s *InteractionService) ListComments(ctx context.Context, postID string, limit, offset int) ([]domain.Comment, error) {
	if limit <= 0 {
		limit = defaultCommentLimit
	}
	limit = min(limit, maxCommentLimit)
	offset = max(offset, 0)
	return s.comments.ListComments(ctx, postID, limit, offset)
}
