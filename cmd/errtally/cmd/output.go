package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/good-yellow-bee/errtally/internal/report"
)

// maxMessageWidth limits message columns in table output.
const maxMessageWidth = 100

func printReport(w io.Writer, rep *report.Report, top int) {
	switch GetOutput() {
	case "json":
		printReportJSON(w, rep)
	case "plain":
		printReportPlain(w, rep)
	default:
		printReportTable(w, rep, top)
	}
}

func printReportJSON(w io.Writer, rep *report.Report) {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		PrintError(fmt.Sprintf("failed to marshal JSON: %v", err), false)
		return
	}
	fmt.Fprintln(w, string(data))
}

func printReportPlain(w io.Writer, rep *report.Report) {
	fmt.Fprintf(w, "File: %s | Lines: %d | Headers: %d | Counted: %d | Messages: %d\n",
		rep.File, rep.Lines, rep.Headers, rep.Qualifying, len(rep.Messages))
	for _, level := range rep.SortedLevels() {
		fmt.Fprintf(w, "level\t%s\t%d\n", level, rep.Levels[level])
	}
	for _, m := range rep.TopMessages(0) {
		fmt.Fprintf(w, "message\t%d\t%s\n", m.Count, m.Key)
	}
}

func printReportTable(w io.Writer, rep *report.Report, top int) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Error Record Report")
	fmt.Fprintln(w, "===================")
	fmt.Fprintf(w, "File: %s\n", rep.File)
	if rep.Threshold != "" {
		fmt.Fprintf(w, "Since: %s\n", rep.Threshold)
	}
	fmt.Fprintf(w, "Lines: %d | Headers: %d | Counted: %d | Duration: %v\n",
		rep.Lines, rep.Headers, rep.Qualifying, rep.Duration.Round(1e6))
	fmt.Fprintln(w)

	if len(rep.Levels) > 0 {
		fmt.Fprintln(w, "By Level:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "  LEVEL\tCOUNT\t%%\n")
		fmt.Fprintf(tw, "  -----\t-----\t-\n")
		for _, level := range rep.SortedLevels() {
			fmt.Fprintf(tw, "  %s\t%d\t%.1f%%\n", level, rep.Levels[level], rep.LevelPercentage(level))
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	if len(rep.Messages) > 0 {
		messages := rep.TopMessages(top)
		fmt.Fprintf(w, "Top Messages (%d of %d):\n", len(messages), len(rep.Messages))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "  COUNT\tMESSAGE\n")
		fmt.Fprintf(tw, "  -----\t-------\n")
		for _, m := range messages {
			fmt.Fprintf(tw, "  %d\t%s\n", m.Count, shorten(m.Key, maxMessageWidth))
		}
		tw.Flush()
		fmt.Fprintln(w)
	}
}

// shorten trims s for display, marking cut text with "...".
func shorten(s string, n int) string {
	s = strings.ReplaceAll(s, "\t", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
