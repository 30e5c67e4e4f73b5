package repository

import (
	"errors"
	"strings"

	"github.com/Tetsu-is/social-feed/internal/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrDuplicatePost = errors.New("duplicate post")

// pgCode returns the SQLSTATE of err and the violated constraint, if any.
func pgCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

// referenceError maps a foreign key violation to the not-found error of the
// referenced entity.
func referenceError(err error) error {
	code, constraint := pgCode(err)
	if code != pgerrcode.ForeignKeyViolation {
		return err
	}
	switch {
	case strings.Contains(constraint, "parent"):
		return domain.ErrInvalidRequest
	case strings.Contains(constraint, "followee"), strings.Contains(constraint, "user"):
		return domain.ErrUserNotFound
	default:
		return domain.ErrPostNotFound
	}
}
