// Package rules evaluates expr-lang conditions against scan reports.
package rules

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/good-yellow-bee/errtally/internal/report"
)

// ErrCheckFailed is returned by callers when a check condition holds.
var ErrCheckFailed = errors.New("check condition met")

// Check is a compiled boolean condition over a report, for example
//
//	levels["FATAL"] > 0 || total > 100
type Check struct {
	expression string
	program    *vm.Program
}

// Compile type-checks expression against the report environment.
func Compile(expression string) (*Check, error) {
	program, err := expr.Compile(expression,
		expr.Env(sampleEnv()),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	return &Check{expression: expression, program: program}, nil
}

// Eval reports whether the condition holds for r.
func (c *Check) Eval(r *report.Report) (bool, error) {
	result, err := expr.Run(c.program, envFromReport(r))
	if err != nil {
		return false, fmt.Errorf("evaluate expression: %w", err)
	}

	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("expression did not return bool: got %T", result)
	}
	return matched, nil
}

// Expression returns the original expression string.
func (c *Check) Expression() string {
	return c.expression
}

func sampleEnv() map[string]any {
	return map[string]any{
		"levels":            map[string]int{},
		"messages":          map[string]int{},
		"total":             0,
		"distinct_messages": 0,
		"lines":             0,
		"headers":           0,
		"qualifying":        0,
		"file":              "",
	}
}

// envFromReport uses int values so expressions can compare against plain
// integer literals.
func envFromReport(r *report.Report) map[string]any {
	levels := make(map[string]int, len(r.Levels))
	for k, v := range r.Levels {
		levels[k] = int(v)
	}
	messages := make(map[string]int, len(r.Messages))
	for k, v := range r.Messages {
		messages[k] = int(v)
	}

	return map[string]any{
		"levels":            levels,
		"messages":          messages,
		"total":             int(r.Levels.Total()),
		"distinct_messages": len(r.Messages),
		"lines":             int(r.Lines),
		"headers":           int(r.Headers),
		"qualifying":        int(r.Qualifying),
		"file":              r.File,
	}
}
