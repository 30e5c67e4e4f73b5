package repository

import "context"

type FollowRepository struct {
	conn DB
}

func NewFollowRepository(conn DB) *FollowRepository {
	return &FollowRepository{conn: conn}
}

func (r *FollowRepository) CreateFollow(ctx context.Context, followerID, followeeID string) error {
	_, err := r.conn.Exec(ctx,
		"INSERT INTO follows (follower_id, followee_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		followerID, followeeID,
	)
	if err != nil {
		return referenceError(err)
	}
	return nil
}

func (r *FollowRepository) DeleteFollow(ctx context.Context, followerID, followeeID string) error {
	_, err := r.conn.Exec(ctx,
		"DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2",
		followerID, followeeID,
	)
	return err
}

// GetFollowerIDs returns every follower of userID. The result is unbounded.
func (r *FollowRepository) GetFollowerIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.conn.Query(ctx,
		"SELECT follower_id FROM follows WHERE followee_id = $1",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
