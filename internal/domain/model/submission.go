package model

import "time"

type SubmissionStatus string

const (
	StatusPending             SubmissionStatus = "Pending"
	StatusAccepted            SubmissionStatus = "Accepted"
	StatusWrongAnswer         SubmissionStatus = "Wrong Answer"
	StatusTimeLimitExceeded   SubmissionStatus = "Time Limit Exceeded"
	StatusMemoryLimitExceeded SubmissionStatus = "Memory Limit Exceeded"
	StatusCompilationError    SubmissionStatus = "Compilation Error"
	StatusRuntimeError        SubmissionStatus = "Runtime Error"
)

type Submission struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	ProblemID       string           `json:"problem_id"`
	Language        string           `json:"language"`
	Code            string           `json:"code"` // Might omit from general listings
	Status          SubmissionStatus `json:"status"`
	RuntimeMs       int              `json:"runtime_ms"`
	MemoryKb        int              `json:"memory_kb"`
	TestCasesPassed int              `json:"test_cases_passed"`
	TotalTestCases  int              `json:"total_test_cases"`
	ErrorMessage    *string          `json:"error_message,omitempty"`
	SubmittedAt     time.Time        `json:"submitted_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	UserUsername    *string          `json:"user_username,omitempty"` // For display
	ProblemTitle    *string          `json:"problem_title,omitempty"` // For display
}

// SubmissionFilter narrows submission listings. Zero values mean "no filter".
type SubmissionFilter struct {
	UserID    string
	ProblemID string
	Status    SubmissionStatus
	Language  string
	Page      int
	Limit     int
}

// SubmissionStats aggregates one user's submission history. Map keys are
// the grouped value (status name, language name, difficulty, or a
// YYYY-MM-DD day for recent activity).
type SubmissionStats struct {
	TotalSubmissions int            `json:"total_submissions"`
	ByStatus         map[string]int `json:"by_status"`
	ByLanguage       map[string]int `json:"by_language"`
	ByDifficulty     map[string]int `json:"by_difficulty"`
	RecentActivity   map[string]int `json:"recent_activity"`
}

// RunCodeResult is returned by the "Run Code" API, which executes a single
// ad-hoc test case without creating a submission record.
type RunCodeResult struct {
	Status            SubmissionStatus `json:"status"`
	Input             string           `json:"input"`
	ExpectedOutput    string           `json:"expected_output"`
	ActualOutput      string           `json:"actual_output"`
	RuntimeMs         int              `json:"runtime_ms"`
	MemoryKb          int              `json:"memory_kb"`
	CompilationOutput *string          `json:"compilation_output,omitempty"`
	ErrorOutput       *string          `json:"error_output,omitempty"`
}
