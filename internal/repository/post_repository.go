package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Tetsu-is/social-feed/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
)

const postColumns = "post_id, user_id, content, media, tags, stats, is_system, created_at"

type PostRepository struct {
	conn DB
}

func NewPostRepository(conn DB) *PostRepository {
	return &PostRepository{conn: conn}
}

func (r *PostRepository) CreatePost(ctx context.Context, post *domain.Post) error {
	content, err := json.Marshal(post.Content)
	if err != nil {
		return err
	}
	media, err := json.Marshal(nonNilMedia(post.Media))
	if err != nil {
		return err
	}
	tags, err := json.Marshal(nonNilStrings(post.Tags))
	if err != nil {
		return err
	}
	stats, err := json.Marshal(post.Stats)
	if err != nil {
		return err
	}

	_, err = r.conn.Exec(ctx,
		"INSERT INTO posts ("+postColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		post.ID, post.UserID, content, media, tags, stats, post.IsSystem, post.CreatedAt,
	)
	if err != nil {
		if code, _ := pgCode(err); code == pgerrcode.UniqueViolation {
			return ErrDuplicatePost
		}
		return err
	}
	return nil
}

// GetPostsByIDs returns the rows that exist among ids, in no particular order.
func (r *PostRepository) GetPostsByIDs(ctx context.Context, ids []string) ([]domain.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.conn.Query(ctx,
		"SELECT "+postColumns+" FROM posts WHERE post_id = ANY($1)",
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return posts, nil
}

func (r *PostRepository) GetPostStats(ctx context.Context, id string) (*domain.Stats, error) {
	var raw []byte
	err := r.conn.QueryRow(ctx, "SELECT stats FROM posts WHERE post_id = $1", id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPostNotFound
	} else if err != nil {
		return nil, err
	}

	var stats domain.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, fmt.Errorf("decode stats %s: %w", id, err)
	}
	return &stats, nil
}

func (r *PostRepository) UpdatePostStats(ctx context.Context, id string, stats domain.Stats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	ct, err := r.conn.Exec(ctx, "UPDATE posts SET stats = $2 WHERE post_id = $1", id, raw)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	var (
		post                        domain.Post
		content, media, tags, stats []byte
	)
	err := row.Scan(&post.ID, &post.UserID, &content, &media, &tags, &stats, &post.IsSystem, &post.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(content, &post.Content); err != nil {
		return nil, fmt.Errorf("decode content %s: %w", post.ID, err)
	}
	if err := json.Unmarshal(media, &post.Media); err != nil {
		return nil, fmt.Errorf("decode media %s: %w", post.ID, err)
	}
	if err := json.Unmarshal(tags, &post.Tags); err != nil {
		return nil, fmt.Errorf("decode tags %s: %w", post.ID, err)
	}
	if err := json.Unmarshal(stats, &post.Stats); err != nil {
		return nil, fmt.Errorf("decode stats %s: %w", post.ID, err)
	}
	return &post, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMedia(m []map[string]any) []map[string]any {
	if m == nil {
		return []map[string]any{}
	}
	return m
}
