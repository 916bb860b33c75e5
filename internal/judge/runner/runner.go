// Package runner executes submitted code in short-lived local processes.
// It is the fallback provider when the remote judging service is
// unreachable.
//
// Processes are spawned without sandboxing: no namespace, cgroup, or
// seccomp confinement beyond a wall-clock deadline. The server must run
// inside a restricted container when this provider is enabled.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"codearena/internal/judge"
)

const (
	defaultRunTimeout     = 5 * time.Second
	defaultCompileTimeout = 10 * time.Second
)

var javaClassPattern = regexp.MustCompile(`public\s+class\s+(\w+)`)

type Local struct {
	tempDir string

	// Overridable for tests.
	RunTimeout     time.Duration
	CompileTimeout time.Duration
}

var _ judge.Provider = (*Local)(nil)

// NewLocal creates a runner rooted at tempDir; an empty tempDir places
// artifacts under the system temp directory.
func NewLocal(tempDir string) (*Local, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "codearena-runner")
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("runner: create temp dir: %w", err)
	}
	return &Local{
		tempDir:        tempDir,
		RunTimeout:     defaultRunTimeout,
		CompileTimeout: defaultCompileTimeout,
	}, nil
}

// Judge evaluates each test case sequentially, one process per test case,
// and applies the comparator to successful runs.
func (l *Local) Judge(ctx context.Context, code string, lang judge.Language, tests []judge.TestCase) ([]judge.Result, error) {
	results := make([]judge.Result, 0, len(tests))
	for i, tc := range tests {
		run := l.Run(ctx, code, lang, tc.Input)

		verdict := judge.VerdictAccepted
		passed := false
		switch {
		case run.TimedOut:
			verdict = judge.VerdictTimeLimitExceeded
		case run.CompileFailed:
			verdict = judge.VerdictCompilationError
		case !run.Success:
			verdict = judge.VerdictRuntimeError
		}

		if verdict == judge.VerdictAccepted {
			passed = judge.Equivalent(run.Output, tc.ExpectedOutput)
			if !passed {
				verdict = judge.VerdictWrongAnswer
			}
		}

		results = append(results, judge.Result{
			Token:          fmt.Sprintf("local-run-%d", i),
			Verdict:        verdict,
			Stdout:         run.Output,
			Stderr:         run.Error,
			CompileOutput:  run.CompileOutput,
			TimeMs:         run.RuntimeMs,
			MemoryKB:       run.MemoryKB,
			Passed:         passed,
			ExpectedOutput: tc.ExpectedOutput,
			ActualOutput:   run.Output,
		})
	}
	return results, nil
}

// RunResult is the structured outcome of one process invocation. Every
// failure path resolves to a RunResult; Run never panics on bad input.
type RunResult struct {
	Success       bool
	Output        string
	Error         string
	CompileOutput string
	RuntimeMs     int
	MemoryKB      int
	TimedOut      bool
	CompileFailed bool
}

// Run writes the source to a uniquely named file, compiles it if the
// language requires, executes it with input on stdin, and cleans up all
// artifacts regardless of outcome.
func (l *Local) Run(ctx context.Context, code string, lang judge.Language, input string) RunResult {
	srcName := fmt.Sprintf("code_%d%s", time.Now().UnixNano(), lang.Extension)
	var className string
	if lang.MainClass {
		m := javaClassPattern.FindStringSubmatch(code)
		if m == nil {
			return RunResult{
				Error:         "No public class found in Java code",
				CompileOutput: "No public class found in Java code",
				CompileFailed: true,
			}
		}
		className = m[1]
		srcName = className + lang.Extension
	}

	srcPath := filepath.Join(l.tempDir, srcName)
	if err := os.WriteFile(srcPath, []byte(code), 0o600); err != nil {
		return RunResult{Error: fmt.Sprintf("failed to write source file: %v", err)}
	}
	defer removeQuietly(srcPath)

	if !lang.Compiled {
		return l.execute(ctx, lang.Interpreter, []string{srcPath}, "", input)
	}

	binPath := strings.TrimSuffix(srcPath, lang.Extension)
	var compileArgs []string
	switch {
	case lang.MainClass:
		compileArgs = []string{srcPath}
		defer removeQuietly(filepath.Join(l.tempDir, className+".class"))
	default:
		compileArgs = []string{srcPath, "-o", binPath}
		defer removeQuietly(binPath)
	}

	if res, ok := l.compile(ctx, lang.Compiler, compileArgs); !ok {
		return res
	}

	if lang.MainClass {
		return l.execute(ctx, "java", []string{className}, l.tempDir, input)
	}
	return l.execute(ctx, binPath, nil, "", input)
}

func (l *Local) compile(ctx context.Context, compiler string, args []string) (RunResult, bool) {
	cctx, cancel := context.WithTimeout(ctx, l.CompileTimeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, compiler, args...)
	cmd.Dir = l.tempDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return RunResult{
			Error:         "Compilation Error: " + msg,
			CompileOutput: msg,
			CompileFailed: true,
		}, false
	}
	return RunResult{}, true
}

func (l *Local) execute(ctx context.Context, name string, args []string, dir, input string) RunResult {
	rctx, cancel := context.WithTimeout(ctx, l.RunTimeout)
	defer cancel()

	cmd := exec.CommandContext(rctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Stdin = strings.NewReader(input)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	err := cmd.Run()
	elapsed := int(time.Since(start).Milliseconds())

	if rctx.Err() == context.DeadlineExceeded {
		return RunResult{
			Error:     "Time Limit Exceeded",
			RuntimeMs: int(l.RunTimeout.Milliseconds()),
			TimedOut:  true,
		}
	}

	memoryKB := peakRSSKb(cmd)

	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return RunResult{
			Output:    stdout.String(),
			Error:     msg,
			RuntimeMs: elapsed,
			MemoryKB:  memoryKB,
		}
	}

	if stderr.Len() > 0 {
		return RunResult{
			Output:    stdout.String(),
			Error:     strings.TrimSpace(stderr.String()),
			RuntimeMs: elapsed,
			MemoryKB:  memoryKB,
		}
	}

	return RunResult{
		Success:   true,
		Output:    strings.TrimSpace(stdout.String()),
		RuntimeMs: elapsed,
		MemoryKB:  memoryKB,
	}
}

func removeQuietly(path string) {
	_ = os.Remove(path)
}
