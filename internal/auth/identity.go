package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserIDKey contextKey = "userID"

// UserIDHeader carries the caller id asserted by the upstream gateway.
const UserIDHeader = "X-User-ID"

var (
	ErrNoIdentity   = errors.New("identity is not set")
	ErrInvalidToken = errors.New("invalid token")
)

// GenerateToken issues an HS256 token for userID. The service itself only
// validates tokens; issuing belongs to the upstream login flow and to
// scripts/generate_test_data.go --token.
func GenerateToken(userID string, secret []byte, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(ttl).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ValidateToken(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}

	return userID, nil
}

// Identify returns the caller id of r. A bearer token is honoured only when a
// secret is configured; otherwise the upstream header is trusted.
func Identify(r *http.Request, secret []byte) (string, error) {
	if len(secret) > 0 {
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			return ValidateToken(strings.TrimPrefix(h, "Bearer "), secret)
		}
	}

	if uid := strings.TrimSpace(r.Header.Get(UserIDHeader)); uid != "" {
		return uid, nil
	}
	return "", ErrNoIdentity
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}
