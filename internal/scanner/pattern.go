package scanner

import (
	"errors"
	"fmt"
	"regexp"
)

// DefaultHeaderPattern matches the head of an error record:
// date, time with milliseconds and a bracketed thread id, then the level.
const DefaultHeaderPattern = `(\d{4}-\d{2}-\d{2}) (\d{2}:\d{2}:\d{2},\d{3} \[\d+\] )(ERROR|WARN|FATAL)`

// ErrPatternGroups is returned when a header pattern does not have exactly
// three capture groups (date, metadata, level).
var ErrPatternGroups = errors.New("header pattern must have exactly 3 capture groups")

const (
	groupDate  = 1
	groupLevel = 3
)

// HeaderPattern is a compiled, case-insensitive header matcher.
// It is safe for concurrent use.
type HeaderPattern struct {
	expr  string
	regex *regexp.Regexp
}

var defaultPattern = mustCompile(DefaultHeaderPattern)

// DefaultPattern returns the built-in header pattern.
func DefaultPattern() *HeaderPattern {
	return defaultPattern
}

// Compile compiles a header pattern. An empty expression yields the default.
func Compile(expr string) (*HeaderPattern, error) {
	if expr == "" {
		return defaultPattern, nil
	}
	return compile(expr)
}

func compile(expr string) (*HeaderPattern, error) {
	regex, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, fmt.Errorf("invalid header pattern: %w", err)
	}
	if n := regex.NumSubexp(); n != 3 {
		return nil, fmt.Errorf("%w: got %d", ErrPatternGroups, n)
	}

	return &HeaderPattern{expr: expr, regex: regex}, nil
}

func mustCompile(expr string) *HeaderPattern {
	p, err := compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the expression the pattern was compiled from.
func (p *HeaderPattern) String() string {
	return p.expr
}

// Match searches line for a header and returns its date and level groups.
// The level keeps the casing found in the line.
func (p *HeaderPattern) Match(line string) (date, level string, ok bool) {
	m := p.regex.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[groupDate], m[groupLevel], true
}
