package model

import (
	"time"
)

type ProblemDifficulty string

const (
	DifficultyEasy   ProblemDifficulty = "easy"
	DifficultyMedium ProblemDifficulty = "medium"
	DifficultyHard   ProblemDifficulty = "hard"
)

func ValidDifficulty(d ProblemDifficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

type Problem struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Slug               string            `json:"slug"`
	Description        string            `json:"description"`
	Difficulty         ProblemDifficulty `json:"difficulty"`
	Tags               []string          `json:"tags"`
	Constraints        []string          `json:"constraints,omitempty"`
	Hints              []string          `json:"hints,omitempty"`
	Examples           []Example         `json:"examples,omitempty"`
	TestCases          []TestCase        `json:"test_cases,omitempty"` // Hidden test cases (admin only view)
	InitialCode        map[string]string `json:"initial_code,omitempty"`
	TotalSubmissions   int               `json:"total_submissions"`
	CorrectSubmissions int               `json:"correct_submissions"`
	AcceptanceRate     float64           `json:"acceptance_rate"`
	IsActive           bool              `json:"is_active"`
	CreatedByID        *string           `json:"created_by_id,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

type Example struct {
	Input       string `json:"input"`
	Output      string `json:"output"`
	Explanation string `json:"explanation,omitempty"`
}

type TestCase struct {
	ID             string    `json:"id"`
	ProblemID      string    `json:"problem_id"`
	Input          string    `json:"input"`
	ExpectedOutput string    `json:"expected_output"`
	IsPublic       bool      `json:"is_public"`
	SortOrder      int       `json:"sort_order"`
	CreatedAt      time.Time `json:"created_at"`
}

// ProblemFilter narrows problem listings. Zero values mean "no filter".
type ProblemFilter struct {
	Difficulty ProblemDifficulty
	Tag        string
	Search     string
	Page       int
	Limit      int
}

// ProblemDifficultyStats is one row of the catalog breakdown, per difficulty.
type ProblemDifficultyStats struct {
	Difficulty       ProblemDifficulty `json:"difficulty"`
	Count            int               `json:"count"`
	TotalSubmissions int               `json:"total_submissions"`
	TotalAccepted    int               `json:"total_accepted"`
}

// ProblemStats summarizes the active problem catalog.
type ProblemStats struct {
	ByDifficulty     []ProblemDifficultyStats `json:"by_difficulty"`
	TotalProblems    int                      `json:"total_problems"`
	TotalSubmissions int                      `json:"total_submissions"`
}
