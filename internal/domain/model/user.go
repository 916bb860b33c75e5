package model

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID             string      `json:"id"`
	Username       string      `json:"username"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"-"` // Not exposed
	Role           string      `json:"role"`
	Profile        UserProfile `json:"profile"`
	Stats          UserStats   `json:"stats"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type UserProfile struct {
	Name     string `json:"name,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Location string `json:"location,omitempty"`
	Website  string `json:"website,omitempty"`
	Github   string `json:"github,omitempty"`
}

type UserStats struct {
	TotalSolved  int `json:"total_solved"`
	EasySolved   int `json:"easy_solved"`
	MediumSolved int `json:"medium_solved"`
	HardSolved   int `json:"hard_solved"`
	Reputation   int `json:"reputation"`
}

// SolvedProblem records the first accepted submission per user/problem pair.
type SolvedProblem struct {
	ProblemID    string    `json:"problem_id"`
	SubmissionID string    `json:"submission_id"`
	SolvedAt     time.Time `json:"solved_at"`
	ProblemTitle *string   `json:"problem_title,omitempty"` // For display
}
