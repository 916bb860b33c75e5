package handler

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"codearena/internal/api/middleware"
	"codearena/internal/app/service"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/judge"
)

// noopDriver satisfies the transaction plumbing; the repository fakes
// ignore the *sql.Tx they are handed.
type noopDriver struct{}

func (noopDriver) Open(string) (driver.Conn, error) { return noopConn{}, nil }

type noopConn struct{}

func (noopConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("unsupported") }
func (noopConn) Close() error                        { return nil }
func (noopConn) Begin() (driver.Tx, error)           { return noopTx{}, nil }

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

var registerOnce sync.Once

func noopDB(t *testing.T) *sql.DB {
	t.Helper()
	registerOnce.Do(func() { sql.Register("handlernoop", noopDriver{}) })
	db, err := sql.Open("handlernoop", "")
	if err != nil {
		t.Fatalf("open noop db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeProblemRepo struct {
	repository.ProblemRepository
	problem   *model.Problem
	testCases []model.TestCase
}

func (f *fakeProblemRepo) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	return f.problem, nil
}

func (f *fakeProblemRepo) GetTestCasesByProblemID(ctx context.Context, problemID string) ([]model.TestCase, error) {
	return f.testCases, nil
}

func (f *fakeProblemRepo) RecordSubmissionResult(ctx context.Context, tx *sql.Tx, problemID string, accepted bool) error {
	return nil
}

type fakeSubmissionRepo struct {
	repository.SubmissionRepository
	listFilter  model.SubmissionFilter
	statsUserID string
}

func (f *fakeSubmissionRepo) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	return nil
}

func (f *fakeSubmissionRepo) UpdateSubmissionResult(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	return nil
}

func (f *fakeSubmissionRepo) MarkProblemSolved(ctx context.Context, tx *sql.Tx, userID, problemID, submissionID string, difficulty model.ProblemDifficulty) (bool, error) {
	return true, nil
}

func (f *fakeSubmissionRepo) ListSubmissions(ctx context.Context, filter model.SubmissionFilter) ([]model.Submission, int, error) {
	f.listFilter = filter
	return []model.Submission{}, 0, nil
}

func (f *fakeSubmissionRepo) GetUserSubmissionStats(ctx context.Context, userID string) (*model.SubmissionStats, error) {
	f.statsUserID = userID
	return &model.SubmissionStats{TotalSubmissions: 3, ByLanguage: map[string]int{"python": 3}}, nil
}

type fakeProvider struct {
	results []judge.Result
}

func (f *fakeProvider) Judge(ctx context.Context, code string, lang judge.Language, tests []judge.TestCase) ([]judge.Result, error) {
	return f.results, nil
}

func authedContext(r *http.Request, userID, role string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserIDCtxKey, userID)
	ctx = context.WithValue(ctx, middleware.UserRoleCtxKey, role)
	return r.WithContext(ctx)
}

func newTestHandler(t *testing.T, problemRepo *fakeProblemRepo, subRepo *fakeSubmissionRepo, providers ...judge.Provider) *SubmissionHandler {
	t.Helper()
	svc := service.NewSubmissionService(subRepo, problemRepo, providers, noopDB(t))
	return NewSubmissionHandler(svc)
}

func TestSubmitResponseWrapsSubmission(t *testing.T) {
	problemRepo := &fakeProblemRepo{
		problem: &model.Problem{ID: "p1", Title: "Two Sum", Difficulty: model.DifficultyEasy, IsActive: true},
		testCases: []model.TestCase{
			{ID: "tc1", ProblemID: "p1", Input: "in", ExpectedOutput: "out"},
		},
	}
	subRepo := &fakeSubmissionRepo{}
	provider := &fakeProvider{results: []judge.Result{
		{Token: "t", Verdict: judge.VerdictAccepted, Passed: true, TimeMs: 12},
	}}
	h := newTestHandler(t, problemRepo, subRepo, provider)

	body := `{"problem_id": "p1", "code": "function add(a, b) { return a + b; }", "language": "javascript"}`
	req := authedContext(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), "u1", model.RoleUser)
	rec := httptest.NewRecorder()
	h.submit(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Submission *model.Submission `json:"submission"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Submission == nil {
		t.Fatal("response must wrap the submission under a submission key")
	}
	if resp.Submission.Status != model.StatusAccepted {
		t.Errorf("submission.status = %q, want Accepted", resp.Submission.Status)
	}
}

func TestListSubmissionsMapsLanguageFilter(t *testing.T) {
	subRepo := &fakeSubmissionRepo{}
	h := newTestHandler(t, &fakeProblemRepo{}, subRepo)

	req := authedContext(httptest.NewRequest(http.MethodGet, "/?language=python&status=Accepted", nil), "u1", model.RoleUser)
	rec := httptest.NewRecorder()
	h.listSubmissions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if subRepo.listFilter.Language != "python" {
		t.Errorf("filter.Language = %q, want python", subRepo.listFilter.Language)
	}
	if subRepo.listFilter.Status != model.StatusAccepted {
		t.Errorf("filter.Status = %q, want Accepted", subRepo.listFilter.Status)
	}
	if subRepo.listFilter.UserID != "u1" {
		t.Errorf("non-admin listing must be scoped to the requester, got %q", subRepo.listFilter.UserID)
	}
}

func TestSubmissionStatsScopedToRequester(t *testing.T) {
	subRepo := &fakeSubmissionRepo{}
	h := newTestHandler(t, &fakeProblemRepo{}, subRepo)

	req := authedContext(httptest.NewRequest(http.MethodGet, "/stats", nil), "u7", model.RoleUser)
	rec := httptest.NewRecorder()
	h.submissionStats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if subRepo.statsUserID != "u7" {
		t.Errorf("stats queried for %q, want u7", subRepo.statsUserID)
	}
	var resp struct {
		Stats *model.SubmissionStats `json:"stats"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Stats == nil || resp.Stats.TotalSubmissions != 3 {
		t.Errorf("stats = %+v, want total 3 under a stats key", resp.Stats)
	}
}
