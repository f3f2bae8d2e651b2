package rules

import (
	"testing"

	"github.com/good-yellow-bee/errtally/internal/report"
	"github.com/good-yellow-bee/errtally/internal/scanner"
)

func testReport() *report.Report {
	return &report.Report{
		File:       "/var/log/app.log",
		Lines:      120,
		Headers:    6,
		Qualifying: 5,
		Levels:     scanner.Counts{"ERROR": 3, "FATAL": 1, "WARN": 1},
		Messages:   scanner.Counts{"connection refused": 2, "disk full": 1},
	}
}

func TestCheck_Eval(t *testing.T) {
	tests := []struct {
		expression string
		want       bool
	}{
		{`levels["FATAL"] > 0`, true},
		{`levels["ERROR"] >= 5`, false},
		{`total == 5`, true},
		{`distinct_messages > 2`, false},
		{`messages["connection refused"] == 2`, true},
		{`levels["DEBUG"] == 0`, true},
		{`lines > 100 && qualifying < headers`, true},
		{`file endsWith "app.log"`, true},
	}

	r := testReport()
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			check, err := Compile(tt.expression)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			got, err := check.Eval(r)
			if err != nil {
				t.Fatalf("Eval() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Eval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompile_Invalid(t *testing.T) {
	tests := []string{
		`total +`,
		`total + 1`,
		`unknown_var > 0`,
	}

	for _, expression := range tests {
		if _, err := Compile(expression); err == nil {
			t.Errorf("Compile(%q) should fail", expression)
		}
	}
}
