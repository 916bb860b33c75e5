package model

import "time"

// Solution is the editorial write-up for a problem, maintained by admins.
// At most one solution exists per problem.
type Solution struct {
	ID           string     `json:"id"`
	ProblemID    string     `json:"problem_id"`
	ProblemTitle string     `json:"problem_title"`
	TextSolution string     `json:"text_solution"` // markdown
	Video        *VideoLink `json:"video,omitempty"`
	Resources    []Resource `json:"resources,omitempty"`
	IsPublished  bool       `json:"is_published"`
	Version      int        `json:"version"`
	CreatedByID  string     `json:"created_by_id"`
	UpdatedByID  *string    `json:"updated_by_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type VideoLink struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	Platform string `json:"platform,omitempty"` // youtube, vimeo, custom
	Duration string `json:"duration,omitempty"`
}

type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type,omitempty"` // article, video, documentation, github
}
