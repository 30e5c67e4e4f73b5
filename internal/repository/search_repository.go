package repository

import (
	"context"
	"strings"
	"unicode"
)

type SearchRepository struct {
	conn DB
}

func NewSearchRepository(conn DB) *SearchRepository {
	return &SearchRepository{conn: conn}
}

// SearchPostIDs returns matching post ids, best match first. CJK queries fall
// back to substring matching since the 'simple' parser does not segment them.
func (r *SearchRepository) SearchPostIDs(ctx context.Context, q string, limit, offset int) ([]string, error) {
	var (
		query string
		arg   string
	)
	if ContainsCJK(q) {
		query = `
			SELECT post_id FROM posts
			WHERE content->>'text' ILIKE $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3
		`
		arg = "%" + escapeLike(q) + "%"
	} else {
		query = `
			SELECT post_id FROM posts
			WHERE search_vector @@ websearch_to_tsquery('simple', $1)
			ORDER BY ts_rank(search_vector, websearch_to_tsquery('simple', $1)) DESC, created_at DESC
			LIMIT $2 OFFSET $3
		`
		arg = q
	}

	rows, err := r.conn.Query(ctx, query, arg, limit, offset)
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

func ContainsCJK(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul) {
			return true
		}
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
