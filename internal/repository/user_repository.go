package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	conn DB
}

func NewUserRepository(conn DB) *UserRepository {
	return &UserRepository{conn: conn}
}

// EnsureUser creates the user row if it does not exist yet. Ids are asserted
// upstream, so there is nothing else to fill in.
func (r *UserRepository) EnsureUser(ctx context.Context, userID string) error {
	_, err := r.conn.Exec(ctx,
		"INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING",
		userID,
	)
	return err
}

// GetInterests returns the user's interest tags; an unknown user has none.
func (r *UserRepository) GetInterests(ctx context.Context, userID string) ([]string, error) {
	var raw []byte
	err := r.conn.QueryRow(ctx, "SELECT interests FROM users WHERE id = $1", userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("decode interests %s: %w", userID, err)
	}
	return tags, nil
}

func (r *UserRepository) UpdateInterests(ctx context.Context, userID string, tags []string) error {
	raw, err := json.Marshal(nonNilStrings(tags))
	if err != nil {
		return err
	}

	_, err = r.conn.Exec(ctx,
		`INSERT INTO users (id, interests) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET interests = EXCLUDED.interests, updated_at = now()`,
		userID, raw,
	)
	return err
}
