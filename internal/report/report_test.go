package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/errtally/internal/scanner"
)

func sampleReport(t *testing.T) *Report {
	t.Helper()

	input := "2024-01-02 10:00:00,000 [1] ERROR\nconnection refused\n" +
		"2024-01-02 10:00:01,000 [1] ERROR\nconnection refused\n" +
		"2024-01-02 10:00:02,000 [2] WARN\nslow query, 5s\n" +
		"2024-01-02 10:00:03,000 [2] FATAL\n"

	res, err := scanner.Scan(strings.NewReader(input), scanner.Options{Threshold: "2024-01-01"})
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	return New("app.log", scanner.DefaultHeaderPattern, "2024-01-01", time.Now().Add(-time.Second), res)
}

func TestNew(t *testing.T) {
	r := sampleReport(t)

	if r.Lines != 7 {
		t.Errorf("Lines = %d, want 7", r.Lines)
	}
	if r.Qualifying != 4 {
		t.Errorf("Qualifying = %d, want 4", r.Qualifying)
	}
	if r.Duration < time.Second {
		t.Errorf("Duration = %v, want >= 1s", r.Duration)
	}
	if !r.EndTime.After(r.StartTime) {
		t.Error("EndTime should be after StartTime")
	}
}

func TestReport_LevelPercentage(t *testing.T) {
	r := sampleReport(t)

	if got := r.LevelPercentage("ERROR"); got != 50 {
		t.Errorf("LevelPercentage(ERROR) = %v, want 50", got)
	}
	if got := r.LevelPercentage("DEBUG"); got != 0 {
		t.Errorf("LevelPercentage(DEBUG) = %v, want 0", got)
	}

	empty := &Report{Levels: scanner.Counts{}}
	if got := empty.LevelPercentage("ERROR"); got != 0 {
		t.Errorf("empty LevelPercentage = %v, want 0", got)
	}
}

func TestReport_TopMessages(t *testing.T) {
	r := sampleReport(t)

	top := r.TopMessages(1)
	if len(top) != 1 {
		t.Fatalf("TopMessages(1) len = %d", len(top))
	}
	if top[0].Key != "connection refused" || top[0].Count != 2 {
		t.Errorf("TopMessages(1) = %+v", top[0])
	}
}

func TestParseExportFormat(t *testing.T) {
	tests := []struct {
		input string
		want  ExportFormat
		ok    bool
	}{
		{"json", ExportJSON, true},
		{"csv", ExportCSV, true},
		{"xml", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseExportFormat(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseExportFormat(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestExporter_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExporter(ExportJSON, &buf).ExportReport(sampleReport(t)); err != nil {
		t.Fatalf("ExportReport() error = %v", err)
	}

	var decoded struct {
		File     string           `json:"file"`
		Levels   map[string]int64 `json:"levels"`
		Messages map[string]int64 `json:"messages"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.File != "app.log" {
		t.Errorf("file = %q", decoded.File)
	}
	if decoded.Levels["ERROR"] != 2 {
		t.Errorf("levels[ERROR] = %d, want 2", decoded.Levels["ERROR"])
	}
	if decoded.Messages["slow query, 5s"] != 1 {
		t.Errorf("messages = %v", decoded.Messages)
	}
}

func TestExporter_CSV(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExporter(ExportCSV, &buf).ExportReport(sampleReport(t)); err != nil {
		t.Fatalf("ExportReport() error = %v", err)
	}

	reader := csv.NewReader(&buf)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}

	found := map[string]string{}
	for _, row := range rows {
		if len(row) == 2 {
			found[row[0]] = row[1]
		}
	}
	if found["ERROR"] != "2" {
		t.Errorf("ERROR row = %q, want 2", found["ERROR"])
	}
	if found["slow query, 5s"] != "1" {
		t.Errorf("message row with comma not round-tripped: %v", found)
	}
	if found["qualifying"] != "4" {
		t.Errorf("qualifying row = %q, want 4", found["qualifying"])
	}
}
