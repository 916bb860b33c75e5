package service

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/judge"
	"codearena/pkg/logger"

	"github.com/google/uuid"
)

// commentPattern strips line and block comments before the minimum-length
// check, so a submission that is nothing but comments is rejected.
var commentPattern = regexp.MustCompile(`//[^\n]*|(?s:/\*.*?\*/)`)

const minMeaningfulCodeLen = 10

type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	problemRepo    repository.ProblemRepository
	providers      []judge.Provider // tried in order, first success wins
	db             *sql.DB
}

func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	problemRepo repository.ProblemRepository,
	providers []judge.Provider,
	db *sql.DB,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: submissionRepo,
		problemRepo:    problemRepo,
		providers:      providers,
		db:             db,
	}
}

type SubmitRequest struct {
	ProblemID string `json:"problem_id"`
	Code      string `json:"code"`
	Language  string `json:"language"`
}

type RunCodeRequest struct {
	ProblemID string `json:"problem_id"`
	Code      string `json:"code"`
	Language  string `json:"language"`
	Input     string `json:"input"`
}

func (s *SubmissionService) Submit(ctx context.Context, userID string, req SubmitRequest) (*model.Submission, error) {
	lang, problem, err := s.validateSubmission(ctx, req.ProblemID, req.Code, req.Language)
	if err != nil {
		return nil, err
	}

	testCases, err := s.problemRepo.GetTestCasesByProblemID(ctx, problem.ID)
	if err != nil {
		return nil, err
	}
	if len(testCases) == 0 {
		return nil, fmt.Errorf("problem has no test cases: %w", common.ErrBadRequest)
	}

	tests := make([]judge.TestCase, len(testCases))
	for i, tc := range testCases {
		tests[i] = judge.TestCase{Input: tc.Input, ExpectedOutput: tc.ExpectedOutput}
	}

	sub := &model.Submission{
		ID:             uuid.NewString(),
		UserID:         userID,
		ProblemID:      problem.ID,
		Language:       lang.Slug,
		Code:           strings.TrimSpace(req.Code),
		Status:         model.StatusPending,
		TotalTestCases: len(tests),
	}
	if err := s.submissionRepo.CreateSubmission(ctx, nil, sub); err != nil {
		return nil, err
	}

	results, err := s.runProviders(ctx, sub.Code, lang, tests)
	if err != nil {
		return s.recordTotalFailure(ctx, sub, problem.ID, err)
	}

	status, passed, runtime, memory, errMsg := reduceResults(results, len(tests))
	sub.Status = status
	sub.TestCasesPassed = passed
	sub.RuntimeMs = runtime
	sub.MemoryKb = memory
	if errMsg != "" {
		sub.ErrorMessage = &errMsg
	}

	if err := s.persistResult(ctx, sub, problem); err != nil {
		return nil, err
	}
	logger.Infof("submission %s judged: %s (%d/%d)", sub.ID, sub.Status, passed, len(tests))
	return sub, nil
}

func (s *SubmissionService) validateSubmission(ctx context.Context, problemID, code, language string) (judge.Language, *model.Problem, error) {
	if strings.TrimSpace(code) == "" {
		return judge.Language{}, nil, fmt.Errorf("code cannot be empty: %w", common.ErrBadRequest)
	}
	lang, ok := judge.LookupLanguage(language)
	if !ok {
		return judge.Language{}, nil, fmt.Errorf("unsupported language, supported languages: %s: %w",
			strings.Join(judge.SupportedLanguages(), ", "), common.ErrBadRequest)
	}

	problem, err := s.problemRepo.FindProblemByID(ctx, problemID)
	if err != nil {
		return judge.Language{}, nil, err
	}
	if !problem.IsActive {
		return judge.Language{}, nil, common.ErrNotFound
	}

	meaningful := strings.TrimSpace(commentPattern.ReplaceAllString(code, ""))
	if len(meaningful) < minMeaningfulCodeLen {
		return judge.Language{}, nil, fmt.Errorf("please write meaningful code before submitting: %w", common.ErrBadRequest)
	}
	return lang, problem, nil
}

func (s *SubmissionService) runProviders(ctx context.Context, code string, lang judge.Language, tests []judge.TestCase) ([]judge.Result, error) {
	var lastErr error
	for i, provider := range s.providers {
		results, err := provider.Judge(ctx, code, lang, tests)
		if err == nil {
			return results, nil
		}
		lastErr = err
		if i < len(s.providers)-1 {
			logger.Warnf("judge provider %d failed, falling back: %v", i, err)
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no judge providers configured")
	}
	return nil, lastErr
}

// reduceResults folds per-test results into the submission verdict.
// Evaluation stops at the first failing test; runtime and memory are the
// maxima over every evaluated test.
func reduceResults(results []judge.Result, totalTests int) (status model.SubmissionStatus, passed, runtime, memory int, errMsg string) {
	status = model.StatusPending
	for i, res := range results {
		if res.TimeMs > runtime {
			runtime = res.TimeMs
		}
		if res.MemoryKB > memory {
			memory = res.MemoryKB
		}

		if res.Verdict == judge.VerdictAccepted && res.Passed {
			passed++
			continue
		}

		status = model.SubmissionStatus(res.Verdict)
		errMsg = res.Stderr
		if errMsg == "" {
			errMsg = res.CompileOutput
		}
		if errMsg == "" {
			errMsg = fmt.Sprintf("Test case %d failed", i+1)
		}
		if res.Verdict == judge.VerdictWrongAnswer {
			errMsg += fmt.Sprintf("\nExpected: %q\nGot: %q", res.ExpectedOutput, res.ActualOutput)
			errMsg += fmt.Sprintf("\nNormalized Expected: %q", judge.Normalize(res.ExpectedOutput))
			errMsg += fmt.Sprintf("\nNormalized Actual: %q", judge.Normalize(res.ActualOutput))
		}
		break
	}

	if passed == totalTests && status == model.StatusPending {
		status = model.StatusAccepted
	}
	if status == model.StatusPending {
		// A provider returned fewer results than tests without reporting a
		// failure. Count it against the submitter, not the platform.
		status = model.StatusWrongAnswer
		errMsg = fmt.Sprintf("Passed %d/%d test cases", passed, totalTests)
	}
	return status, passed, runtime, memory, errMsg
}

// persistResult writes the terminal verdict and its side effects in one
// transaction: submission fields, problem counters, and on first acceptance
// the user's solved set and per-difficulty tallies.
func (s *SubmissionService) persistResult(ctx context.Context, sub *model.Submission, problem *model.Problem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.submissionRepo.UpdateSubmissionResult(ctx, tx, sub); err != nil {
		return err
	}

	accepted := sub.Status == model.StatusAccepted
	if err := s.problemRepo.RecordSubmissionResult(ctx, tx, problem.ID, accepted); err != nil {
		return err
	}

	if accepted {
		first, err := s.submissionRepo.MarkProblemSolved(ctx, tx, sub.UserID, problem.ID, sub.ID, problem.Difficulty)
		if err != nil {
			return err
		}
		if first {
			logger.Infof("user %s solved problem %s", sub.UserID, problem.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// recordTotalFailure handles every provider failing. The submission still
// counts against the problem's totals so acceptance rates reflect reality.
func (s *SubmissionService) recordTotalFailure(ctx context.Context, sub *model.Submission, problemID string, cause error) (*model.Submission, error) {
	logger.Errorf("all judge providers failed for submission %s: %v", sub.ID, cause)

	sub.Status = model.StatusRuntimeError
	msg := "All code execution services unavailable. Please try again."
	sub.ErrorMessage = &msg

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.submissionRepo.UpdateSubmissionResult(ctx, tx, sub); err != nil {
		return nil, err
	}
	if err := s.problemRepo.RecordSubmissionResult(ctx, tx, problemID, false); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	return sub, fmt.Errorf("code execution services temporarily unavailable: %w", common.ErrInternalServer)
}

// Run executes code against a single ad-hoc test case without creating a
// submission record. When no input is given the problem's first test case
// is used.
func (s *SubmissionService) Run(ctx context.Context, req RunCodeRequest) (*model.RunCodeResult, error) {
	lang, problem, err := s.validateRun(ctx, req)
	if err != nil {
		return nil, err
	}

	testInput := req.Input
	expectedOutput := ""
	testCases, err := s.problemRepo.GetTestCasesByProblemID(ctx, problem.ID)
	if err != nil {
		return nil, err
	}
	if len(testCases) > 0 {
		if testInput == "" {
			testInput = testCases[0].Input
		}
		expectedOutput = testCases[0].ExpectedOutput
	}

	tests := []judge.TestCase{{Input: testInput, ExpectedOutput: expectedOutput}}
	results, err := s.runProviders(ctx, strings.TrimSpace(req.Code), lang, tests)
	if err != nil {
		logger.Errorf("all judge providers failed for run: %v", err)
		return nil, fmt.Errorf("code execution services temporarily unavailable: %w", common.ErrInternalServer)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("judge returned no result: %w", common.ErrInternalServer)
	}

	res := results[0]
	out := &model.RunCodeResult{
		Status:         model.SubmissionStatus(res.Verdict),
		Input:          testInput,
		ExpectedOutput: expectedOutput,
		ActualOutput:   res.ActualOutput,
		RuntimeMs:      res.TimeMs,
		MemoryKb:       res.MemoryKB,
	}
	if res.CompileOutput != "" {
		out.CompilationOutput = &res.CompileOutput
	}
	if res.Stderr != "" {
		out.ErrorOutput = &res.Stderr
	}
	return out, nil
}

func (s *SubmissionService) validateRun(ctx context.Context, req RunCodeRequest) (judge.Language, *model.Problem, error) {
	if strings.TrimSpace(req.Code) == "" {
		return judge.Language{}, nil, fmt.Errorf("code cannot be empty: %w", common.ErrBadRequest)
	}
	if req.ProblemID == "" || req.Language == "" {
		return judge.Language{}, nil, fmt.Errorf("problem id and language are required: %w", common.ErrBadRequest)
	}
	lang, ok := judge.LookupLanguage(req.Language)
	if !ok {
		return judge.Language{}, nil, fmt.Errorf("unsupported language, supported languages: %s: %w",
			strings.Join(judge.SupportedLanguages(), ", "), common.ErrBadRequest)
	}
	problem, err := s.problemRepo.FindProblemByID(ctx, req.ProblemID)
	if err != nil {
		return judge.Language{}, nil, err
	}
	if !problem.IsActive {
		return judge.Language{}, nil, common.ErrNotFound
	}
	return lang, problem, nil
}

// GetSubmission returns a submission. Code is only visible to its author
// and admins.
func (s *SubmissionService) GetSubmission(ctx context.Context, requesterID, requesterRole, id string) (*model.Submission, error) {
	sub, err := s.submissionRepo.GetSubmissionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.UserID != requesterID && requesterRole != model.RoleAdmin {
		return nil, common.ErrForbidden
	}
	return sub, nil
}

type SubmissionListResponse struct {
	Submissions []model.Submission `json:"submissions"`
	Total       int                `json:"total"`
	Page        int                `json:"page"`
	TotalPages  int                `json:"total_pages"`
}

func (s *SubmissionService) ListSubmissions(ctx context.Context, filter model.SubmissionFilter) (*SubmissionListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	subs, total, err := s.submissionRepo.ListSubmissions(ctx, filter)
	if err != nil {
		return nil, err
	}
	totalPages := (total + filter.Limit - 1) / filter.Limit
	return &SubmissionListResponse{
		Submissions: subs,
		Total:       total,
		Page:        filter.Page,
		TotalPages:  totalPages,
	}, nil
}

// GetStats returns the requesting user's submission aggregates.
func (s *SubmissionService) GetStats(ctx context.Context, userID string) (*model.SubmissionStats, error) {
	return s.submissionRepo.GetUserSubmissionStats(ctx, userID)
}
