package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
)

// ExportFormat defines the output format for exports.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// ParseExportFormat parses a string to ExportFormat.
func ParseExportFormat(s string) (ExportFormat, bool) {
	switch s {
	case "json":
		return ExportJSON, true
	case "csv":
		return ExportCSV, true
	default:
		return "", false
	}
}

// Exporter writes reports in a machine-readable format.
type Exporter struct {
	format ExportFormat
	writer io.Writer
}

// NewExporter creates an exporter for the given format.
func NewExporter(format ExportFormat, w io.Writer) *Exporter {
	return &Exporter{
		format: format,
		writer: w,
	}
}

// ExportReport writes the report in the configured format.
func (e *Exporter) ExportReport(r *Report) error {
	switch e.format {
	case ExportCSV:
		return e.exportCSV(r)
	default:
		return e.exportJSON(r)
	}
}

func (e *Exporter) exportJSON(r *Report) error {
	encoder := json.NewEncoder(e.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

func (e *Exporter) exportCSV(r *Report) error {
	w := csv.NewWriter(e.writer)

	rows := [][]string{
		{"# Summary"},
		{"file", r.File},
		{"threshold", r.Threshold},
		{"lines", strconv.FormatInt(r.Lines, 10)},
		{"headers", strconv.FormatInt(r.Headers, 10)},
		{"qualifying", strconv.FormatInt(r.Qualifying, 10)},
		{"duration_ms", strconv.FormatInt(r.Duration.Milliseconds(), 10)},
		{},
		{"# Level Counts"},
		{"level", "count"},
	}
	for _, level := range r.SortedLevels() {
		rows = append(rows, []string{level, strconv.FormatInt(r.Levels[level], 10)})
	}
	rows = append(rows, []string{}, []string{"# Message Counts"}, []string{"message", "count"})
	for _, m := range r.TopMessages(0) {
		rows = append(rows, []string{m.Key, strconv.FormatInt(m.Count, 10)})
	}

	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
