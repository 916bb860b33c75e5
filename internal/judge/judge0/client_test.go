package judge0

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codearena/internal/judge"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewClient(server.URL, "test-key", "test-host")
	c.PollInterval = time.Millisecond
	c.MaxPollAttempts = 3
	return c
}

func submitThenPoll(t *testing.T, pollBody batchResultResponse) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			if got := r.Header.Get("X-RapidAPI-Key"); got != "test-key" {
				t.Errorf("missing RapidAPI key header, got %q", got)
			}
			var req batchSubmitRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode submit body: %v", err)
			}
			tokens := make([]tokenResponse, len(req.Submissions))
			for i := range tokens {
				tokens[i] = tokenResponse{Token: "tok"}
			}
			json.NewEncoder(w).Encode(tokens)
		case http.MethodGet:
			json.NewEncoder(w).Encode(pollBody)
		}
	})
}

func strPtr(s string) *string { return &s }

func TestJudgeAcceptedResult(t *testing.T) {
	c := testClient(t, submitThenPoll(t, batchResultResponse{
		Submissions: []rawResult{{
			Token:  "tok",
			Status: rawStatus{ID: 3, Description: "Accepted"},
			Stdout: strPtr("42\n"),
			Time:   strPtr("0.025"),
			Memory: floatPtr(2048),
		}},
	}))

	lang, _ := judge.LookupLanguage("python")
	results, err := c.Judge(context.Background(), "print(42)", lang, []judge.TestCase{
		{Input: "", ExpectedOutput: "42"},
	})
	if err != nil {
		t.Fatalf("Judge returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	res := results[0]
	if res.Verdict != judge.VerdictAccepted || !res.Passed {
		t.Errorf("got verdict %q passed=%v, want Accepted passed", res.Verdict, res.Passed)
	}
	if res.TimeMs != 25 {
		t.Errorf("TimeMs = %d, want 25", res.TimeMs)
	}
	if res.MemoryKB != 2048 {
		t.Errorf("MemoryKB = %d, want 2048", res.MemoryKB)
	}
}

func TestJudgeDowngradesMismatchedAccept(t *testing.T) {
	c := testClient(t, submitThenPoll(t, batchResultResponse{
		Submissions: []rawResult{{
			Token:  "tok",
			Status: rawStatus{ID: 3, Description: "Accepted"},
			Stdout: strPtr("41"),
			Time:   strPtr("0.01"),
			Memory: floatPtr(1024),
		}},
	}))

	lang, _ := judge.LookupLanguage("python")
	results, err := c.Judge(context.Background(), "print(41)", lang, []judge.TestCase{
		{Input: "", ExpectedOutput: "42"},
	})
	if err != nil {
		t.Fatalf("Judge returned error: %v", err)
	}
	res := results[0]
	if res.Verdict != judge.VerdictWrongAnswer {
		t.Errorf("verdict = %q, want Wrong Answer", res.Verdict)
	}
	if res.Passed {
		t.Error("mismatched output must not count as passed")
	}
	if res.ExpectedOutput != "42" || res.ActualOutput != "41" {
		t.Errorf("expected/actual = %q/%q", res.ExpectedOutput, res.ActualOutput)
	}
}

func TestJudgeEmptyExpectedOutputStillCompared(t *testing.T) {
	c := testClient(t, submitThenPoll(t, batchResultResponse{
		Submissions: []rawResult{{
			Token:  "tok",
			Status: rawStatus{ID: 3, Description: "Accepted"},
			Stdout: strPtr("stray output\n"),
			Time:   strPtr("0.01"),
			Memory: floatPtr(1024),
		}},
	}))

	lang, _ := judge.LookupLanguage("python")
	results, err := c.Judge(context.Background(), "print('stray output')", lang, []judge.TestCase{
		{Input: "", ExpectedOutput: ""},
	})
	if err != nil {
		t.Fatalf("Judge returned error: %v", err)
	}
	res := results[0]
	if res.Verdict != judge.VerdictWrongAnswer || res.Passed {
		t.Errorf("got verdict %q passed=%v, want Wrong Answer for output against empty expectation", res.Verdict, res.Passed)
	}
}

func TestJudgeMapsTerminalStatuses(t *testing.T) {
	tests := []struct {
		statusID int
		want     judge.Verdict
	}{
		{4, judge.VerdictWrongAnswer},
		{5, judge.VerdictTimeLimitExceeded},
		{6, judge.VerdictCompilationError},
		{7, judge.VerdictRuntimeError},
		{8, judge.VerdictMemoryLimitExceeded},
		{13, judge.VerdictWrongAnswer},
		{99, judge.VerdictRuntimeError},
	}
	for _, tt := range tests {
		if got := mapStatus(tt.statusID); got != tt.want {
			t.Errorf("mapStatus(%d) = %q, want %q", tt.statusID, got, tt.want)
		}
	}
}

func TestJudgeSubmitFailureFallsBackToMockResults(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))

	lang, _ := judge.LookupLanguage("javascript")
	tests := []judge.TestCase{
		{Input: "1", ExpectedOutput: "one"},
		{Input: "2", ExpectedOutput: "two"},
	}
	results, err := c.Judge(context.Background(), "console.log('x')", lang, tests)
	if err != nil {
		t.Fatalf("Judge returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, res := range results {
		if res.Verdict != judge.VerdictAccepted || !res.Passed {
			t.Errorf("result %d: got %q passed=%v, want synthetic accept", i, res.Verdict, res.Passed)
		}
		if res.ActualOutput != tests[i].ExpectedOutput {
			t.Errorf("result %d: synthetic output %q should echo expected %q", i, res.ActualOutput, tests[i].ExpectedOutput)
		}
	}
}

func TestJudgePollTimeoutYieldsSyntheticError(t *testing.T) {
	c := testClient(t, submitThenPoll(t, batchResultResponse{
		Submissions: []rawResult{{
			Token:  "tok",
			Status: rawStatus{ID: statusProcessing},
		}},
	}))

	lang, _ := judge.LookupLanguage("cpp")
	results, err := c.Judge(context.Background(), "int main(){}", lang, []judge.TestCase{
		{Input: "", ExpectedOutput: "x"},
	})
	if err != nil {
		t.Fatalf("Judge returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	res := results[0]
	if res.Verdict != judge.VerdictCompilationError {
		t.Errorf("verdict = %q, want Compilation Error", res.Verdict)
	}
	if res.Stderr != "Execution timeout" {
		t.Errorf("stderr = %q, want timeout message", res.Stderr)
	}
	if res.Passed {
		t.Error("synthetic error result must not pass")
	}
}

func TestParseSecondsToMs(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"0.001", 1},
		{"1.5", 1500},
		{"not-a-number", 0},
	}
	for _, tt := range tests {
		if got := parseSecondsToMs(tt.in); got != tt.want {
			t.Errorf("parseSecondsToMs(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
