// Package report turns scan results into presentable, exportable reports.
package report

import (
	"time"

	"github.com/good-yellow-bee/errtally/internal/scanner"
)

// Report contains the results of a single scan and how it was run.
type Report struct {
	ID        string        `json:"id,omitempty"`
	File      string        `json:"file"`
	Pattern   string        `json:"pattern"`
	Threshold string        `json:"threshold,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration_ms"`

	Lines      int64 `json:"lines"`
	Headers    int64 `json:"headers"`
	Qualifying int64 `json:"qualifying"`

	Levels   scanner.Counts `json:"levels"`
	Messages scanner.Counts `json:"messages"`
}

// New builds a report for a scan of file that began at start and just finished.
func New(file, pattern, threshold string, start time.Time, res *scanner.Result) *Report {
	end := time.Now()
	return &Report{
		File:       file,
		Pattern:    pattern,
		Threshold:  threshold,
		StartTime:  start,
		EndTime:    end,
		Duration:   end.Sub(start),
		Lines:      res.Lines,
		Headers:    res.Headers,
		Qualifying: res.Qualifying,
		Levels:     res.Levels,
		Messages:   res.Messages,
	}
}

// SortedLevels returns the level keys in lexical order.
func (r *Report) SortedLevels() []string {
	return r.Levels.Keys()
}

// TopMessages returns the n most frequent messages. n <= 0 returns all.
func (r *Report) TopMessages(n int) []scanner.Entry {
	return r.Messages.Top(n)
}

// LevelPercentage returns the share of counted headers with the given level.
func (r *Report) LevelPercentage(level string) float64 {
	total := r.Levels.Total()
	if total == 0 {
		return 0
	}
	return float64(r.Levels.Get(level)) / float64(total) * 100
}
