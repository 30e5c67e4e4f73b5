package repository

import (
	"context"

	"github.com/Tetsu-is/social-feed/internal/domain"
)

type CommentRepository struct {
	conn DB
}

func NewCommentRepository(conn DB) *CommentRepository {
	return &CommentRepository{conn: conn}
}

func (r *CommentRepository) CreateComment(ctx context.Context, c *domain.Comment) error {
	_, err := r.conn.Exec(ctx,
		"INSERT INTO comments (comment_id, post_id, user_id, content, parent_id, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		c.ID, c.PostID, c.UserID, c.Content, c.ParentID, c.CreatedAt,
	)
	if err != nil {
		return referenceError(err)
	}
	return nil
}

// ListComments returns comments of a post, oldest first.
func (r *CommentRepository) ListComments(ctx context.Context, postID string, limit, offset int) ([]domain.Comment, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT comment_id, post_id, user_id, content, parent_id, created_at
		 FROM comments
		 WHERE post_id = $1
		 ORDER BY created_at ASC, comment_id ASC
		 LIMIT $2 OFFSET $3`,
		postID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []domain.Comment{}
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.ParentID, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return comments, nil
}
