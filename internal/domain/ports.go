package domain

import "context"

// Persistent store.

type PostRepository interface {
	CreatePost(ctx context.Context, post *Post) error
	GetPostsByIDs(ctx context.Context, ids []string) ([]Post, error)
	GetPostStats(ctx context.Context, id string) (*Stats, error)
	UpdatePostStats(ctx context.Context, id string, stats Stats) error
}

type FeedRepository interface {
	// GetRecommendations returns posts tagged with any of tags, newest first.
	GetRecommendations(ctx context.Context, tags, excludeIDs []string, before *int64, limit int) ([]TimelineEntry, error)
}

type FollowRepository interface {
	CreateFollow(ctx context.Context, followerID, followeeID string) error
	DeleteFollow(ctx context.Context, followerID, followeeID string) error
	GetFollowerIDs(ctx context.Context, userID string) ([]string, error)
}

type UserRepository interface {
	EnsureUser(ctx context.Context, userID string) error
	GetInterests(ctx context.Context, userID string) ([]string, error)
	UpdateInterests(ctx context.Context, userID string, tags []string) error
}

type LikeRepository interface {
	// CreateLike reports whether a new like row was inserted.
	CreateLike(ctx context.Context, userID, postID string) (bool, error)
	// DeleteLike reports whether a like row was removed.
	DeleteLike(ctx context.Context, userID, postID string) (bool, error)
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *Comment) error
	ListComments(ctx context.Context, postID string, limit, offset int) ([]Comment, error)
}

type SearchRepository interface {
	SearchPostIDs(ctx context.Context, q string, limit, offset int) ([]string, error)
}

// Cache.

type PostCache interface {
	// GetContent returns cached posts keyed by id; misses are absent from the map.
	GetContent(ctx context.Context, ids []string) (map[string]Post, error)
	SetContent(ctx context.Context, posts []Post) error
}

type StatsCache interface {
	// Incr adjusts a counter of an existing hash; it reports false when absent.
	Incr(ctx context.Context, postID string, field StatField, delta int64) (int64, bool, error)
	// SeedIncr initializes an absent hash from seed, then adjusts it.
	SeedIncr(ctx context.Context, postID string, field StatField, delta int64, seed Stats) (int64, error)
	PopDirty(ctx context.Context, count int) ([]string, error)
	GetStats(ctx context.Context, ids []string) (map[string]Stats, error)
}

type TimelineCache interface {
	AddToTimelines(ctx context.Context, userIDs []string, entry TimelineEntry) error
	AddToGlobal(ctx context.Context, entry TimelineEntry) error
	Personal(ctx context.Context, userID string, before *int64, limit int) ([]TimelineEntry, error)
	Global(ctx context.Context, before *int64, limit int) ([]TimelineEntry, error)
}

type ReadCursorCache interface {
	GetReadCursor(ctx context.Context, userID string) (int64, error)
	AdvanceReadCursor(ctx context.Context, userID string, ts int64) (bool, error)
}
