package runner

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"codearena/internal/judge"
)

func newTestRunner(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return l
}

func requireInterpreter(t *testing.T, name string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not installed", name)
	}
}

func TestRunPythonEcho(t *testing.T) {
	requireInterpreter(t, "python3")
	l := newTestRunner(t)

	lang, _ := judge.LookupLanguage("python")
	res := l.Run(context.Background(), "print(input())", lang, "hello\n")
	if !res.Success {
		t.Fatalf("run failed: %+v", res)
	}
	if res.Output != "hello" {
		t.Errorf("output = %q, want %q", res.Output, "hello")
	}
}

func TestRunPythonRuntimeError(t *testing.T) {
	requireInterpreter(t, "python3")
	l := newTestRunner(t)

	lang, _ := judge.LookupLanguage("python")
	res := l.Run(context.Background(), "raise ValueError('boom')", lang, "")
	if res.Success {
		t.Fatal("expected failure for raising code")
	}
	if res.Error == "" {
		t.Error("expected stderr to be captured")
	}
}

func TestRunPythonTimeout(t *testing.T) {
	requireInterpreter(t, "python3")
	l := newTestRunner(t)
	l.RunTimeout = 200 * time.Millisecond

	lang, _ := judge.LookupLanguage("python")
	res := l.Run(context.Background(), "while True:\n    pass", lang, "")
	if !res.TimedOut {
		t.Fatalf("expected timeout, got %+v", res)
	}
	if res.RuntimeMs != 200 {
		t.Errorf("RuntimeMs = %d, want the timeout value 200", res.RuntimeMs)
	}
}

func TestRunNodeEcho(t *testing.T) {
	requireInterpreter(t, "node")
	l := newTestRunner(t)

	lang, _ := judge.LookupLanguage("javascript")
	res := l.Run(context.Background(), "console.log('hi')", lang, "")
	if !res.Success {
		t.Fatalf("run failed: %+v", res)
	}
	if res.Output != "hi" {
		t.Errorf("output = %q, want %q", res.Output, "hi")
	}
}

func TestRunJavaRequiresPublicClass(t *testing.T) {
	// No toolchain needed; the check happens before any process spawns.
	l := newTestRunner(t)

	lang, _ := judge.LookupLanguage("java")
	res := l.Run(context.Background(), "class hidden {}", lang, "")
	if !res.CompileFailed {
		t.Fatalf("expected compile failure, got %+v", res)
	}
	if res.Error != "No public class found in Java code" {
		t.Errorf("error = %q", res.Error)
	}
}

func TestJudgeSequentialVerdicts(t *testing.T) {
	requireInterpreter(t, "python3")
	l := newTestRunner(t)

	lang, _ := judge.LookupLanguage("python")
	code := "print(int(input()) * 2)"
	tests := []judge.TestCase{
		{Input: "2\n", ExpectedOutput: "4"},
		{Input: "5\n", ExpectedOutput: "10"},
		{Input: "3\n", ExpectedOutput: "7"}, // wrong on purpose
	}

	results, err := l.Judge(context.Background(), code, lang, tests)
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	for i := 0; i < 2; i++ {
		if results[i].Verdict != judge.VerdictAccepted || !results[i].Passed {
			t.Errorf("result %d: got %q passed=%v", i, results[i].Verdict, results[i].Passed)
		}
	}
	if results[2].Verdict != judge.VerdictWrongAnswer {
		t.Errorf("result 2 verdict = %q, want Wrong Answer", results[2].Verdict)
	}
	if results[2].ActualOutput != "6" {
		t.Errorf("result 2 actual = %q, want 6", results[2].ActualOutput)
	}
	if results[0].Token != "local-run-0" {
		t.Errorf("token = %q", results[0].Token)
	}
}

func TestJudgeEmptyExpectedOutputStillCompared(t *testing.T) {
	requireInterpreter(t, "python3")
	l := newTestRunner(t)

	lang, _ := judge.LookupLanguage("python")
	results, err := l.Judge(context.Background(), "print('noise')", lang, []judge.TestCase{
		{Input: "", ExpectedOutput: ""},
	})
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if results[0].Verdict != judge.VerdictWrongAnswer || results[0].Passed {
		t.Errorf("got verdict %q passed=%v, want Wrong Answer for output against empty expectation",
			results[0].Verdict, results[0].Passed)
	}
}

func TestJudgeRuntimeErrorVerdict(t *testing.T) {
	requireInterpreter(t, "python3")
	l := newTestRunner(t)

	lang, _ := judge.LookupLanguage("python")
	results, err := l.Judge(context.Background(), "import sys\nsys.exit(1)", lang, []judge.TestCase{
		{Input: "", ExpectedOutput: "x"},
	})
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if results[0].Verdict != judge.VerdictRuntimeError {
		t.Errorf("verdict = %q, want Runtime Error", results[0].Verdict)
	}
	if results[0].Passed {
		t.Error("failed run must not pass")
	}
}
