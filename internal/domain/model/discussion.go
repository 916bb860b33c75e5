package model

import "time"

type Discussion struct {
	ID           string    `json:"id"`
	ProblemID    string    `json:"problem_id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Tags         []string  `json:"tags,omitempty"`
	Views        int       `json:"views"`
	IsPinned     bool      `json:"is_pinned"`
	IsLocked     bool      `json:"is_locked"`
	VoteScore    int       `json:"vote_score"` // upvotes minus downvotes
	CommentCount int       `json:"comment_count"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	UserUsername *string   `json:"user_username,omitempty"` // For display
	ProblemTitle *string   `json:"problem_title,omitempty"` // For display
	Comments     []Comment `json:"comments,omitempty"`
}

type Comment struct {
	ID           string    `json:"id"`
	DiscussionID string    `json:"discussion_id"`
	UserID       string    `json:"user_id"`
	Content      string    `json:"content"`
	VoteScore    int       `json:"vote_score"`
	CreatedAt    time.Time `json:"created_at"`
	UserUsername *string   `json:"user_username,omitempty"` // For display
}

const (
	VoteUp   = 1
	VoteDown = -1
)

// DiscussionFilter narrows discussion listings. Zero values mean "no filter".
type DiscussionFilter struct {
	ProblemID string
	UserID    string
	Tag       string
	Page      int
	Limit     int
}
