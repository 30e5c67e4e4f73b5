package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Tetsu-is/social-feed/internal/auth"
	"github.com/Tetsu-is/social-feed/internal/domain"
	"github.com/Tetsu-is/social-feed/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

type Services struct {
	Posts        *service.PostService
	Feed         *service.FeedService
	Interactions *service.InteractionService
	Follows      *service.FollowService
	Users        *service.UserService
	Search       *service.SearchService
}

type Handler struct {
	svc      Services
	validate *validator.Validate
	logger   *slog.Logger
}

func New(svc Services, logger *slog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// ============================================
// Posts
// ============================================

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	h.publish(w, r, h.svc.Posts.CreatePost)
}

func (h *Handler) createSystemPost(w http.ResponseWriter, r *http.Request) {
	h.publish(w, r, h.svc.Posts.CreateSystemPost)
}

type publishFunc func(ctx context.Context, uid string, content domain.Content, media []map[string]any) (*domain.Post, error)

func (h *Handler) publish(w http.ResponseWriter, r *http.Request, fn publishFunc) {
	var req domain.CreatePostRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	post, err := fn(r.Context(), auth.UserIDFromContext(r.Context()), req.Content, req.Media)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeResult(w, http.StatusCreated, domain.CreatePostResponse{PostID: post.ID, CreatedAt: post.CreatedAt})
}

// ============================================
// Feed
// ============================================

func (h *Handler) getFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var cursor *int64
	if c := q.Get("cursor"); c != "" {
		v, err := strconv.ParseInt(c, 10, 64)
		if err != nil || v <= 0 {
			h.writeError(w, r, domain.ErrInvalidRequest)
			return
		}
		cursor = &v
	}
	limit, err := queryInt(q.Get("limit"), 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	page, err := h.svc.Feed.GetFeed(r.Context(), auth.UserIDFromContext(r.Context()), cursor, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, page)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	var req domain.MarkReadRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.svc.Feed.MarkRead(r.Context(), auth.UserIDFromContext(r.Context()), req.Timestamp); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, domain.SuccessResponse{Success: true})
}

// ============================================
// Interactions
// ============================================

func (h *Handler) likePost(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Interactions.LikePost(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "postID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

func (h *Handler) unlikePost(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Interactions.UnlikePost(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "postID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

func (h *Handler) commentPost(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCommentRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	c, err := h.svc.Interactions.CommentPost(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "postID"), req.Content, req.ParentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusCreated, domain.CreateCommentResponse{CommentID: c.ID, CreatedAt: c.CreatedAt})
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"), 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	comments, err := h.svc.Interactions.ListComments(r.Context(), chi.URLParam(r, "postID"), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, domain.GetCommentsResponse{Comments: comments})
}

// ============================================
// Search / Users
// ============================================

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"), 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	posts, err := h.svc.Search.Search(r.Context(), q.Get("q"), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, domain.SearchResponse{Posts: posts})
}

func (h *Handler) follow(w http.ResponseWriter, r *http.Request) {
	var req domain.FollowRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	uid := auth.UserIDFromContext(r.Context())

	if req.Action == "unfollow" {
		if err := h.svc.Follows.Unfollow(r.Context(), uid, req.FolloweeID); err != nil {
			h.writeError(w, r, err)
			return
		}
		writeResult(w, http.StatusOK, domain.FollowResponse{Unfollowed: true})
		return
	}

	if err := h.svc.Follows.Follow(r.Context(), uid, req.FolloweeID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, domain.FollowResponse{Followed: true})
}

func (h *Handler) updateTags(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateTagsRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	tags, err := h.svc.Users.UpdateInterests(r.Context(), auth.UserIDFromContext(r.Context()), req.Tags)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeResult(w, http.StatusOK, domain.UpdateTagsResponse{Tags: tags})
}

// ============================================
// Helpers
// ============================================

// decode reads a JSON body into v and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidRequest
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			h.logger.Debug("request validation failed", "path", r.URL.Path, "error", verrs.Error())
		}
		return domain.ErrInvalidRequest
	}
	return nil
}

func queryInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, domain.ErrInvalidRequest
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, map[string]any{"result": v})
}

// writeError maps err to its code. Unexpected errors are logged and reported
// as internal-server-error without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	de := domain.AsError(err)
	if de == domain.ErrInternal {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, de.Status, domain.ErrorResponse{Code: de.Code, Message: domain.Message(de.Code)})
}
