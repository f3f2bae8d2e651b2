// Package scanner tallies error records in structured text logs.
//
// A record starts with a header line (see DefaultHeaderPattern). Headers dated
// on or after a threshold are counted per level, and the single line that
// follows a counted header, if it is not itself a header, is counted as the
// record's message.
package scanner

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// MaxMessageLength is the number of characters of a message line used as its key.
const MaxMessageLength = 250

// Options configures a scan.
type Options struct {
	// Pattern classifies header lines. Nil means DefaultPattern.
	Pattern *HeaderPattern
	// Threshold is the earliest header date counted, compared as a string.
	// Empty counts every header.
	Threshold string
}

// Result holds the tallies of one scan.
type Result struct {
	Levels   Counts `json:"levels"`
	Messages Counts `json:"messages"`

	Lines      int64 `json:"lines"`      // lines read
	Headers    int64 `json:"headers"`    // lines matching the header pattern
	Qualifying int64 `json:"qualifying"` // headers on or after the threshold
}

func newResult() *Result {
	return &Result{
		Levels:   make(Counts),
		Messages: make(Counts),
	}
}

// ScanFile opens path and scans it. The file is closed before returning.
func ScanFile(path string, opts Options) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	res, err := Scan(file, opts)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return res, nil
}

// Scan reads r line by line in a single pass and returns the tallies.
// Line terminators are stripped before matching and before message keys are
// truncated to MaxMessageLength characters. A read error discards the result.
func Scan(r io.Reader, opts Options) (*Result, error) {
	pattern := opts.Pattern
	if pattern == nil {
		pattern = defaultPattern
	}

	res := newResult()
	reader := bufio.NewReader(r)
	pending := false

	for {
		raw, err := reader.ReadString('\n')
		if len(raw) > 0 {
			res.Lines++
			line := trimEOL(raw)

			if date, level, ok := pattern.Match(line); ok {
				res.Headers++
				if date >= opts.Threshold {
					res.Qualifying++
					res.Levels.Inc(level)
					pending = true
				} else {
					pending = false
				}
			} else if pending {
				res.Messages.Inc(truncate(line, MaxMessageLength))
				pending = false
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", res.Lines+1, err)
		}
	}

	return res, nil
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// truncate cuts s to at most n characters without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
