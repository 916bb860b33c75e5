package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/judge"
)

// noopDriver satisfies the transaction plumbing; all real work happens in
// the repository fakes, which ignore the *sql.Tx they are handed.
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
	registerOnce.Do(func() { sql.Register("noop", noopDriver{}) })
	db, err := sql.Open("noop", "")
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

	recordedResults []bool // accepted flag per RecordSubmissionResult call
}

func (f *fakeProblemRepo) FindProblemByID(ctx context.Context, id string) (*model.Problem, error) {
	if f.problem == nil || f.problem.ID != id {
		return nil, common.ErrNotFound
	}
	return f.problem, nil
}

func (f *fakeProblemRepo) GetTestCasesByProblemID(ctx context.Context, problemID string) ([]model.TestCase, error) {
	return f.testCases, nil
}

func (f *fakeProblemRepo) RecordSubmissionResult(ctx context.Context, tx *sql.Tx, problemID string, accepted bool) error {
	f.recordedResults = append(f.recordedResults, accepted)
	return nil
}

type fakeSubmissionRepo struct {
	repository.SubmissionRepository
	created *model.Submission
	updated *model.Submission

	solvedPairs map[string]bool // userID|problemID
	solvedCalls []model.ProblemDifficulty
}

func (f *fakeSubmissionRepo) CreateSubmission(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	cp := *sub
	f.created = &cp
	return nil
}

func (f *fakeSubmissionRepo) UpdateSubmissionResult(ctx context.Context, tx *sql.Tx, sub *model.Submission) error {
	cp := *sub
	f.updated = &cp
	return nil
}

func (f *fakeSubmissionRepo) MarkProblemSolved(ctx context.Context, tx *sql.Tx, userID, problemID, submissionID string, difficulty model.ProblemDifficulty) (bool, error) {
	if f.solvedPairs == nil {
		f.solvedPairs = map[string]bool{}
	}
	key := userID + "|" + problemID
	f.solvedCalls = append(f.solvedCalls, difficulty)
	if f.solvedPairs[key] {
		return false, nil
	}
	f.solvedPairs[key] = true
	return true, nil
}

type fakeProvider struct {
	results []judge.Result
	err     error
	calls   int
}

func (f *fakeProvider) Judge(ctx context.Context, code string, lang judge.Language, tests []judge.TestCase) ([]judge.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func passResult(i int) judge.Result {
	return judge.Result{
		Token:   "t",
		Verdict: judge.VerdictAccepted,
		Passed:  true,
		TimeMs:  10 * (i + 1),
	}
}

func newTestService(t *testing.T, problemRepo *fakeProblemRepo, subRepo *fakeSubmissionRepo, providers ...judge.Provider) *SubmissionService {
	t.Helper()
	return NewSubmissionService(subRepo, problemRepo, providers, noopDB(t))
}

func testProblem() *model.Problem {
	return &model.Problem{ID: "p1", Title: "Two Sum", Difficulty: model.DifficultyEasy, IsActive: true}
}

func testCases(n int) []model.TestCase {
	tcs := make([]model.TestCase, n)
	for i := range tcs {
		tcs[i] = model.TestCase{ID: "tc", ProblemID: "p1", Input: "in", ExpectedOutput: "out"}
	}
	return tcs
}

const validCode = "function add(a, b) { return a + b; }"

func TestSubmitAccepted(t *testing.T) {
	problemRepo := &fakeProblemRepo{problem: testProblem(), testCases: testCases(2)}
	subRepo := &fakeSubmissionRepo{}
	provider := &fakeProvider{results: []judge.Result{passResult(0), passResult(1)}}
	svc := newTestService(t, problemRepo, subRepo, provider)

	sub, err := svc.Submit(context.Background(), "u1", SubmitRequest{
		ProblemID: "p1", Code: validCode, Language: "javascript",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Status != model.StatusAccepted {
		t.Errorf("status = %q, want Accepted", sub.Status)
	}
	if sub.TestCasesPassed != 2 || sub.TotalTestCases != 2 {
		t.Errorf("passed %d/%d, want 2/2", sub.TestCasesPassed, sub.TotalTestCases)
	}
	if sub.RuntimeMs != 20 {
		t.Errorf("runtime = %d, want max over tests 20", sub.RuntimeMs)
	}

	if subRepo.created == nil || subRepo.created.Status != model.StatusPending {
		t.Error("submission must be created as Pending before judging")
	}
	if len(problemRepo.recordedResults) != 1 || !problemRepo.recordedResults[0] {
		t.Errorf("problem counters recorded = %v, want one accepted", problemRepo.recordedResults)
	}
	if len(subRepo.solvedCalls) != 1 || subRepo.solvedCalls[0] != model.DifficultyEasy {
		t.Errorf("solved calls = %v", subRepo.solvedCalls)
	}
}

func TestSubmitStopsAtFirstFailure(t *testing.T) {
	problemRepo := &fakeProblemRepo{problem: testProblem(), testCases: testCases(3)}
	subRepo := &fakeSubmissionRepo{}
	provider := &fakeProvider{results: []judge.Result{
		passResult(0),
		{
			Verdict:        judge.VerdictWrongAnswer,
			ExpectedOutput: "out",
			ActualOutput:   "wrong",
			TimeMs:         50,
		},
		passResult(2),
	}}
	svc := newTestService(t, problemRepo, subRepo, provider)

	sub, err := svc.Submit(context.Background(), "u1", SubmitRequest{
		ProblemID: "p1", Code: validCode, Language: "javascript",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Status != model.StatusWrongAnswer {
		t.Errorf("status = %q, want Wrong Answer", sub.Status)
	}
	if sub.TestCasesPassed != 1 {
		t.Errorf("passed = %d, want 1 (evaluation stops at first failure)", sub.TestCasesPassed)
	}
	if sub.ErrorMessage == nil {
		t.Fatal("expected error message on wrong answer")
	}
	if !strings.Contains(*sub.ErrorMessage, `Expected: "out"`) || !strings.Contains(*sub.ErrorMessage, `Got: "wrong"`) {
		t.Errorf("error message missing diff details: %q", *sub.ErrorMessage)
	}
	if len(subRepo.solvedCalls) != 0 {
		t.Error("rejected submission must not touch the solved set")
	}
	if len(problemRepo.recordedResults) != 1 || problemRepo.recordedResults[0] {
		t.Errorf("problem counters recorded = %v, want one rejected", problemRepo.recordedResults)
	}
}

func TestSubmitRejectsTrivialCode(t *testing.T) {
	problemRepo := &fakeProblemRepo{problem: testProblem(), testCases: testCases(1)}
	subRepo := &fakeSubmissionRepo{}
	provider := &fakeProvider{}
	svc := newTestService(t, problemRepo, subRepo, provider)

	// Comments are stripped before the length check.
	_, err := svc.Submit(context.Background(), "u1", SubmitRequest{
		ProblemID: "p1",
		Code:      "// this is a long comment that should not count\n/* neither\nshould this */x",
		Language:  "javascript",
	})
	if !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("err = %v, want bad request", err)
	}
	if provider.calls != 0 {
		t.Error("trivial code must be rejected before judging")
	}
	if subRepo.created != nil {
		t.Error("trivial code must not create a submission")
	}
}

func TestSubmitRejectsUnknownLanguage(t *testing.T) {
	problemRepo := &fakeProblemRepo{problem: testProblem(), testCases: testCases(1)}
	svc := newTestService(t, problemRepo, &fakeSubmissionRepo{}, &fakeProvider{})

	_, err := svc.Submit(context.Background(), "u1", SubmitRequest{
		ProblemID: "p1", Code: validCode, Language: "cobol",
	})
	if !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("err = %v, want bad request", err)
	}
	if !strings.Contains(err.Error(), "javascript") {
		t.Errorf("error should list supported languages: %v", err)
	}
}

func TestSubmitUnknownProblem(t *testing.T) {
	svc := newTestService(t, &fakeProblemRepo{}, &fakeSubmissionRepo{}, &fakeProvider{})

	_, err := svc.Submit(context.Background(), "u1", SubmitRequest{
		ProblemID: "missing", Code: validCode, Language: "python",
	})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestSubmitFallsBackToSecondProvider(t *testing.T) {
	problemRepo := &fakeProblemRepo{problem: testProblem(), testCases: testCases(1)}
	subRepo := &fakeSubmissionRepo{}
	broken := &fakeProvider{err: errors.New("connection refused")}
	working := &fakeProvider{results: []judge.Result{passResult(0)}}
	svc := newTestService(t, problemRepo, subRepo, broken, working)

	sub, err := svc.Submit(context.Background(), "u1", SubmitRequest{
		ProblemID: "p1", Code: validCode, Language: "python",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Status != model.StatusAccepted {
		t.Errorf("status = %q, want Accepted via fallback", sub.Status)
	}
	if broken.calls != 1 || working.calls != 1 {
		t.Errorf("provider calls = %d/%d, want 1/1", broken.calls, working.calls)
	}
}

func TestSubmitTotalProviderFailure(t *testing.T) {
	problemRepo := &fakeProblemRepo{problem: testProblem(), testCases: testCases(1)}
	subRepo := &fakeSubmissionRepo{}
	svc := newTestService(t, problemRepo, subRepo,
		&fakeProvider{err: errors.New("down")},
		&fakeProvider{err: errors.New("also down")})

	sub, err := svc.Submit(context.Background(), "u1", SubmitRequest{
		ProblemID: "p1", Code: validCode, Language: "python",
	})
	if err == nil {
		t.Fatal("expected error when every provider fails")
	}
	if sub == nil {
		t.Fatal("submission should still be returned for client inspection")
	}
	if sub.Status != model.StatusRuntimeError {
		t.Errorf("status = %q, want Runtime Error", sub.Status)
	}
	if sub.ErrorMessage == nil || !strings.Contains(*sub.ErrorMessage, "unavailable") {
		t.Errorf("error message = %v", sub.ErrorMessage)
	}
	// Counters still move so acceptance rates reflect the attempt.
	if len(problemRepo.recordedResults) != 1 || problemRepo.recordedResults[0] {
		t.Errorf("problem counters recorded = %v, want one rejected", problemRepo.recordedResults)
	}
}

func TestSubmitResolveIsIdempotent(t *testing.T) {
	problemRepo := &fakeProblemRepo{problem: testProblem(), testCases: testCases(1)}
	subRepo := &fakeSubmissionRepo{}
	provider := &fakeProvider{results: []judge.Result{passResult(0)}}
	svc := newTestService(t, problemRepo, subRepo, provider)

	for i := 0; i < 2; i++ {
		if _, err := svc.Submit(context.Background(), "u1", SubmitRequest{
			ProblemID: "p1", Code: validCode, Language: "python",
		}); err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
	}
	// Both acceptances reach the repo; the repo decides first-vs-repeat.
	if len(subRepo.solvedCalls) != 2 {
		t.Fatalf("solved calls = %d, want 2", len(subRepo.solvedCalls))
	}
	if len(problemRepo.recordedResults) != 2 {
		t.Errorf("counter updates = %d, want 2", len(problemRepo.recordedResults))
	}
}

func TestRunUsesFirstTestCaseWhenNoInput(t *testing.T) {
	problemRepo := &fakeProblemRepo{
		problem: testProblem(),
		testCases: []model.TestCase{
			{Input: "first-input", ExpectedOutput: "first-output"},
			{Input: "second-input", ExpectedOutput: "second-output"},
		},
	}
	provider := &fakeProvider{results: []judge.Result{{
		Verdict:      judge.VerdictAccepted,
		Passed:       true,
		ActualOutput: "first-output",
		TimeMs:       5,
	}}}
	svc := newTestService(t, problemRepo, &fakeSubmissionRepo{}, provider)

	res, err := svc.Run(context.Background(), RunCodeRequest{
		ProblemID: "p1", Code: validCode, Language: "python",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Input != "first-input" || res.ExpectedOutput != "first-output" {
		t.Errorf("run used input %q expected %q", res.Input, res.ExpectedOutput)
	}
	if res.Status != model.StatusAccepted {
		t.Errorf("status = %q", res.Status)
	}
}

func TestRunRequiresCode(t *testing.T) {
	svc := newTestService(t, &fakeProblemRepo{problem: testProblem()}, &fakeSubmissionRepo{}, &fakeProvider{})

	_, err := svc.Run(context.Background(), RunCodeRequest{ProblemID: "p1", Language: "python", Code: "   "})
	if !errors.Is(err, common.ErrBadRequest) {
		t.Fatalf("err = %v, want bad request", err)
	}
}

func TestReduceResultsPartialResults(t *testing.T) {
	// Provider returned fewer results than tests without flagging a failure.
	status, passed, _, _, msg := reduceResults([]judge.Result{passResult(0)}, 3)
	if status != model.StatusWrongAnswer {
		t.Errorf("status = %q, want Wrong Answer", status)
	}
	if passed != 1 {
		t.Errorf("passed = %d, want 1", passed)
	}
	if msg != "Passed 1/3 test cases" {
		t.Errorf("msg = %q", msg)
	}
}
