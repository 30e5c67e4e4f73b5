package repository

import (
	"context"
	"time"

	"github.com/Tetsu-is/social-feed/internal/domain"
)

type FeedRepository struct {
	conn DB
}

func NewFeedRepository(conn DB) *FeedRepository {
	return &FeedRepository{conn: conn}
}

// GetRecommendations は興味タグのいずれかを持つ投稿を新しい順に取得する
// Pull型（タイムラインに載っていない投稿の補完）
func (r *FeedRepository) GetRecommendations(ctx context.Context, tags, excludeIDs []string, before *int64, limit int) ([]domain.TimelineEntry, error) {
	if len(tags) == 0 || limit <= 0 {
		return nil, nil
	}

	var upper *time.Time
	if before != nil {
		t := time.UnixMilli(*before)
		upper = &t
	}

	query := `
		SELECT post_id, created_at
		FROM posts
		WHERE tags ?| $1::text[]
		  AND NOT (post_id = ANY($2::text[]))
		  AND ($3::timestamptz IS NULL OR created_at < $3)
		ORDER BY created_at DESC, post_id DESC
		LIMIT $4
	`
	rows, err := r.conn.Query(ctx, query, tags, nonNilStrings(excludeIDs), upper, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.TimelineEntry
	for rows.Next() {
		var (
			id        string
			createdAt time.Time
		)
		if err := rows.Scan(&id, &createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, domain.TimelineEntry{PostID: id, Score: createdAt.UnixMilli()})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
