package domain

import (
	"errors"
	"net/http"
)

// Error is a caller-facing failure with a stable machine-readable code.
type Error struct {
	Code   string
	Status int
}

func (e *Error) Error() string { return e.Code }

var (
	ErrUserNotLogin       = &Error{Code: "user-not-login", Status: http.StatusUnauthorized}
	ErrContentRequired    = &Error{Code: "content-required", Status: http.StatusBadRequest}
	ErrTimestampRequired  = &Error{Code: "timestamp-required", Status: http.StatusBadRequest}
	ErrFolloweeIDRequired = &Error{Code: "followee_id-required", Status: http.StatusBadRequest}
	ErrTagsRequired       = &Error{Code: "tags-required", Status: http.StatusBadRequest}
	ErrCannotFollowSelf   = &Error{Code: "cannot-follow-self", Status: http.StatusBadRequest}
	ErrInvalidRequest     = &Error{Code: "invalid-request", Status: http.StatusBadRequest}
	ErrUserNotFound       = &Error{Code: "user-not-found", Status: http.StatusNotFound}
	ErrPostNotFound       = &Error{Code: "post-not-found", Status: http.StatusNotFound}
	ErrInternal           = &Error{Code: "internal-server-error", Status: http.StatusInternalServerError}
)

var messages = map[string]string{
	"user-not-login":        "caller identity is required",
	"content-required":      "content is required",
	"timestamp-required":    "timestamp is required",
	"followee_id-required":  "followee_id is required",
	"tags-required":         "tags are required",
	"cannot-follow-self":    "cannot follow yourself",
	"invalid-request":       "request is malformed",
	"user-not-found":        "user not found",
	"post-not-found":        "post not found",
	"internal-server-error": "internal server error",
}

// Message returns the fixed user-facing text for a code.
func Message(code string) string {
	if m, ok := messages[code]; ok {
		return m
	}
	return messages[ErrInternal.Code]
}

// AsError unwraps err into a domain error, falling back to ErrInternal.
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return ErrInternal
}
