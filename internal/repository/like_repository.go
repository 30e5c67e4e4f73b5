package repository

import "context"

type LikeRepository struct {
	conn DB
}

func NewLikeRepository(conn DB) *LikeRepository {
	return &LikeRepository{conn: conn}
}

func (r *LikeRepository) CreateLike(ctx context.Context, userID, postID string) (bool, error) {
	ct, err := r.conn.Exec(ctx,
		"INSERT INTO likes (user_id, post_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		userID, postID,
	)
	if err != nil {
		return false, referenceError(err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *LikeRepository) DeleteLike(ctx context.Context, userID, postID string) (bool, error) {
	ct, err := r.conn.Exec(ctx,
		"DELETE FROM likes WHERE user_id = $1 AND post_id = $2",
		userID, postID,
	)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}
