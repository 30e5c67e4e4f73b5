package domain

import "time"

// ============================================
// Domain Models
// ============================================

type Content struct {
	Text string `json:"text" validate:"max=5000"`
}

type Stats struct {
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
}

type Post struct {
	ID        string           `json:"post_id"`
	UserID    string           `json:"user_id"`
	Content   Content          `json:"content"`
	Media     []map[string]any `json:"media"`
	Tags      []string         `json:"tags"`
	Stats     Stats            `json:"stats"`
	IsSystem  bool             `json:"is_system"`
	CreatedAt time.Time        `json:"created_at"`
}

// Score はタイムライン上の並び順 (ミリ秒)
func (p *Post) Score() int64 {
	return p.CreatedAt.UnixMilli()
}

type Comment struct {
	ID        string    `json:"comment_id"`
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	ParentID  *string   `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID        string    `json:"id"`
	Interests []string  `json:"interests"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StatField string

const (
	StatLikes    StatField = "likes"
	StatComments StatField = "comments"
	StatShares   StatField = "shares"
)

func (f StatField) Valid() bool {
	switch f {
	case StatLikes, StatComments, StatShares:
		return true
	}
	return false
}

// TimelineEntry is a post reference inside a score-ordered structure.
type TimelineEntry struct {
	PostID string
	Score  int64
}

// ============================================
// Feed
// ============================================

type FeedSource int

const (
	SourcePersonal FeedSource = iota
	SourceGlobal
	SourceRecommendation
)

func (s FeedSource) String() string {
	switch s {
	case SourcePersonal:
		return "personal"
	case SourceGlobal:
		return "global"
	case SourceRecommendation:
		return "recommendation"
	}
	return "unknown"
}

// Candidate is one feed item before content resolution.
type Candidate struct {
	PostID string
	Score  int64
	Source FeedSource
}

type FeedPost struct {
	Post
	IsNew       bool `json:"is_new"`
	IsRecommend bool `json:"is_recommend"`
}

type FeedPage struct {
	Posts      []FeedPost `json:"posts"`
	NextCursor *int64     `json:"next_cursor"`
}

// ============================================
// Jobs
// ============================================

const JobFanoutPost = "fanout_post"

type FanoutJob struct {
	PostID    string `json:"post_id"`
	AuthorID  string `json:"author_id"`
	CreatedAt int64  `json:"created_at"`
}

// ============================================
// Request/Response Models
// ============================================

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreatePostRequest struct {
	Content Content          `json:"content"`
	Media   []map[string]any `json:"media" validate:"max=10"`
}

type CreatePostResponse struct {
	PostID    string    `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

type MarkReadRequest struct {
	Timestamp int64 `json:"timestamp"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type LikeResponse = SuccessResponse

type CreateCommentRequest struct {
	Content  string  `json:"content" validate:"max=2000"`
	ParentID *string `json:"parent_id" validate:"omitempty,uuid"`
}

type CreateCommentResponse struct {
	CommentID string    `json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`
}

type GetCommentsResponse struct {
	Comments []Comment `json:"comments"`
}

type SearchResponse struct {
	Posts []Post `json:"posts"`
}

type FollowRequest struct {
	FolloweeID string `json:"followee_id"`
	Action     string `json:"action" validate:"omitempty,oneof=follow unfollow"`
}

type FollowResponse struct {
	Followed   bool `json:"followed,omitempty"`
	Unfollowed bool `json:"unfollowed,omitempty"`
}

type UpdateTagsRequest struct {
	Tags []string `json:"tags" validate:"max=50,dive,max=64"`
}

type UpdateTagsResponse struct {
	Tags []string `json:"tags"`
}
