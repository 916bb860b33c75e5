// Package judge contains the code-execution core: the verdict vocabulary,
// the language registry, output comparison, and the Provider interface
// implemented by the remote Judge0 client and the local process runner.
package judge

import (
	"context"
	"sort"
	"strings"
)

// Verdict is the classification of one test case or a whole submission.
type Verdict string

const (
	VerdictPending             Verdict = "Pending"
	VerdictAccepted            Verdict = "Accepted"
	VerdictWrongAnswer         Verdict = "Wrong Answer"
	VerdictTimeLimitExceeded   Verdict = "Time Limit Exceeded"
	VerdictRuntimeError        Verdict = "Runtime Error"
	VerdictCompilationError    Verdict = "Compilation Error"
	VerdictMemoryLimitExceeded Verdict = "Memory Limit Exceeded"
)

// TestCase is one (input, expected output) pair fed to a provider.
type TestCase struct {
	Input          string
	ExpectedOutput string
}

// Result is the outcome of running submitted code against one test case.
// Passed is true only when the verdict is Accepted and the comparator
// confirmed the output match.
type Result struct {
	Token          string
	Verdict        Verdict
	Stdout         string
	Stderr         string
	CompileOutput  string
	TimeMs         int
	MemoryKB       int
	Passed         bool
	ExpectedOutput string
	ActualOutput   string
}

// Provider executes code against a set of test cases and reports one Result
// per test case, in order. Implementations must not panic on untrusted
// input; infrastructure failures are returned as errors so the caller can
// fall back to another provider.
type Provider interface {
	Judge(ctx context.Context, code string, lang Language, tests []TestCase) ([]Result, error)
}

// Language describes one supported language: how the remote service
// identifies it and how the local runner compiles/executes it. Adding a
// language is a single new entry in the registry below.
type Language struct {
	Slug        string
	Name        string
	Judge0ID    int
	Extension   string
	Compiled    bool
	Interpreter string // argv[0] for interpreted languages
	Compiler    string // argv[0] for compiled languages
	// MainClass is true when the source file must be named after the
	// public class it declares (Java toolchain convention).
	MainClass bool
}

var registry = map[string]Language{
	"javascript": {Slug: "javascript", Name: "JavaScript (Node.js)", Judge0ID: 63, Extension: ".js", Interpreter: "node"},
	"python":     {Slug: "python", Name: "Python 3", Judge0ID: 71, Extension: ".py", Interpreter: "python3"},
	"java":       {Slug: "java", Name: "Java", Judge0ID: 62, Extension: ".java", Compiled: true, Compiler: "javac", MainClass: true},
	"cpp":        {Slug: "cpp", Name: "C++ (GCC)", Judge0ID: 54, Extension: ".cpp", Compiled: true, Compiler: "g++"},
	"c":          {Slug: "c", Name: "C (GCC)", Judge0ID: 50, Extension: ".c", Compiled: true, Compiler: "gcc"},
}

// LookupLanguage resolves a language slug against the registry.
func LookupLanguage(slug string) (Language, bool) {
	lang, ok := registry[strings.ToLower(strings.TrimSpace(slug))]
	return lang, ok
}

// SupportedLanguages returns the registered slugs in stable order, for
// validation error messages.
func SupportedLanguages() []string {
	slugs := make([]string, 0, len(registry))
	for slug := range registry {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}
