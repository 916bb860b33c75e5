package judge

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	newlineRuns    = regexp.MustCompile(`\n+`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes program output so incidental formatting does not
// affect comparison: CRLF/CR become LF, newline runs collapse to one,
// whitespace runs collapse to a single space, and the result is trimmed.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = newlineRuns.ReplaceAllString(s, "\n")
	s = whitespaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Equivalent reports whether actual output matches expected output. The
// checks run in order, each a weaker notion of equality than the last:
// exact match after normalization, numeric equality (handles "8" vs "8.0"),
// then a blank-line-insensitive line-by-line comparison. Order of
// non-blank lines is always significant.
func Equivalent(actual, expected string) bool {
	if actual == "" && expected == "" {
		return true
	}
	if actual == "" || expected == "" {
		return false
	}

	normActual := Normalize(actual)
	normExpected := Normalize(expected)

	if normActual == normExpected {
		return true
	}

	if a, errA := strconv.ParseFloat(normActual, 64); errA == nil {
		if e, errE := strconv.ParseFloat(normExpected, 64); errE == nil {
			return a == e
		}
	}

	actualLines := nonBlankLines(normActual)
	expectedLines := nonBlankLines(normExpected)
	if len(actualLines) != len(expectedLines) {
		return false
	}
	for i := range actualLines {
		if actualLines[i] != expectedLines[i] {
			return false
		}
	}
	return true
}

func nonBlankLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
