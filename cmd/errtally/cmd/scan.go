package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/errtally/internal/config"
	"github.com/good-yellow-bee/errtally/internal/metrics"
	"github.com/good-yellow-bee/errtally/internal/report"
	"github.com/good-yellow-bee/errtally/internal/rules"
	"github.com/good-yellow-bee/errtally/internal/scanner"
	"github.com/good-yellow-bee/errtally/internal/storage"
)

var (
	scanSince       string
	scanPattern     string
	scanProfile     string
	scanTop         int
	scanFailIf      string
	scanStore       string
	scanMetricsFile string
	scanExport      string
	scanExportTo    string
)

var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Count error records in a log file",
	Long: `Scan a log file once and report error records per level and the
messages that followed them.

Headers dated before --since are ignored, along with the line after them.
Dates are compared as text, so --since must use the YYYY-MM-DD layout.

Examples:
  # Errors since January 2024
  errtally scan /var/log/app.log --since 2024-01-01

  # Custom header: date, metadata and level groups are required
  errtally scan worker.log --pattern '^\[(\d{4}-\d{2}-\d{2})(T\S+)\] (ERR|CRIT)'

  # Export as CSV and keep a copy in the history database
  errtally scan app.log --export csv --export-to app.csv --store ~/.errtally/history.db

  # Exit non-zero when any FATAL record is found
  errtally scan app.log --fail-if 'levels["FATAL"] > 0'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	addScanFlags(scanCmd)
	scanCmd.Flags().StringVar(&scanExport, "export", "", "export format (json, csv)")
	scanCmd.Flags().StringVar(&scanExportTo, "export-to", "", "export file path (default: stdout)")
}

// addScanFlags registers the flags shared by scan and watch.
func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&scanTop, "top", "n", 10, "number of messages shown in table output (0 = all)")
	cmd.Flags().StringVar(&scanMetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	cmd.Flags().StringVarP(&scanSince, "since", "s", "", "count headers dated on or after this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&scanPattern, "pattern", "", "header regex with date, metadata and level groups (default: built-in)")
	cmd.Flags().StringVarP(&scanProfile, "profile", "p", "", "scan profile from the config file")
	cmd.Flags().StringVar(&scanFailIf, "fail-if", "", "expression that marks the scan as failed, e.g. 'levels[\"FATAL\"] > 0'")
	cmd.Flags().StringVar(&scanStore, "store", "", "save reports to this history database")
}

// scanSettings is the merged result of config profile and flags.
type scanSettings struct {
	File      string
	Pattern   string
	Threshold string
	FailIf    string
	Top       int
	Store     string
	Textfile  string
	Export    string
	ExportTo  string
}

// resolveScanSettings applies config defaults, then the selected profile,
// then any flags set on the command line.
func resolveScanSettings(cmd *cobra.Command, args []string, cfg *config.Config) (*scanSettings, error) {
	s := &scanSettings{
		Top:      scanTop,
		Store:    cfg.Store,
		Textfile: cfg.Metrics.Textfile,
		Export:   scanExport,
		ExportTo: scanExportTo,
	}

	if scanProfile != "" {
		p, err := cfg.Profile(scanProfile)
		if err != nil {
			return nil, err
		}
		s.File = p.File
		s.Pattern = p.Pattern
		s.Threshold = p.Threshold
		s.FailIf = p.FailIf
		if !cmd.Flags().Changed("top") {
			s.Top = p.Top
		}
	}

	flags := cmd.Flags()
	if len(args) > 0 {
		s.File = args[0]
	}
	if flags.Changed("since") {
		s.Threshold = scanSince
	}
	if flags.Changed("pattern") {
		s.Pattern = scanPattern
	}
	if flags.Changed("fail-if") {
		s.FailIf = scanFailIf
	}
	if flags.Changed("store") {
		s.Store = config.ExpandHome(scanStore)
	}
	if flags.Changed("metrics-file") {
		s.Textfile = config.ExpandHome(scanMetricsFile)
	}

	if s.File == "" {
		return nil, fmt.Errorf("no log file given (pass a file or --profile)")
	}
	if err := config.ValidateThreshold(s.Threshold); err != nil {
		return nil, fmt.Errorf("invalid --since: %w", err)
	}
	if s.Export != "" {
		if _, ok := report.ParseExportFormat(s.Export); !ok {
			return nil, fmt.Errorf("invalid export format: %s (use json or csv)", s.Export)
		}
	}

	return s, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := resolveScanSettings(cmd, args, cfg)
	if err != nil {
		return err
	}

	return executeScan(cmd.Context(), s, cmd.OutOrStdout())
}

// executeScan runs one scan with s and writes the report to w.
func executeScan(ctx context.Context, s *scanSettings, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	pattern, err := scanner.Compile(s.Pattern)
	if err != nil {
		return err
	}

	var check *rules.Check
	if s.FailIf != "" {
		if check, err = rules.Compile(s.FailIf); err != nil {
			return fmt.Errorf("invalid --fail-if: %w", err)
		}
	}

	var collector *metrics.Collector
	if s.Textfile != "" {
		collector = metrics.NewCollector()
	}

	PrintVerbose("Scanning %s (since %q)...", s.File, s.Threshold)

	start := time.Now()
	res, err := scanner.ScanFile(s.File, scanner.Options{
		Pattern:   pattern,
		Threshold: s.Threshold,
	})
	if err != nil {
		if collector != nil {
			collector.ObserveError()
			if werr := collector.WriteTextfile(s.Textfile); werr != nil {
				PrintVerbose("metrics: %v", werr)
			}
		}
		return err
	}

	rep := report.New(s.File, pattern.String(), s.Threshold, start, res)

	if collector != nil {
		collector.Observe(rep)
		if err := collector.WriteTextfile(s.Textfile); err != nil {
			return err
		}
	}

	if s.Store != "" {
		if err := saveReport(ctx, s.Store, rep); err != nil {
			return err
		}
		PrintVerbose("Saved scan %s to %s", rep.ID, s.Store)
	}

	if s.Export != "" {
		if err := exportReport(rep, s, w); err != nil {
			return err
		}
	} else {
		printReport(w, rep, s.Top)
	}

	if check != nil {
		failed, err := check.Eval(rep)
		if err != nil {
			return err
		}
		if failed {
			return fmt.Errorf("%w: %s", rules.ErrCheckFailed, check.Expression())
		}
	}

	return nil
}

func exportReport(rep *report.Report, s *scanSettings, w io.Writer) error {
	format, _ := report.ParseExportFormat(s.Export)

	if s.ExportTo != "" {
		file, err := os.Create(s.ExportTo)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer file.Close()
		w = file
	}

	if err := report.NewExporter(format, w).ExportReport(rep); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if s.ExportTo != "" {
		PrintVerbose("Report exported to %s", s.ExportTo)
	}
	return nil
}

func saveReport(ctx context.Context, path string, rep *report.Report) error {
	store, err := openStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Scans().Save(ctx, rep); err != nil {
		return fmt.Errorf("save scan: %w", err)
	}
	return nil
}

// openStore opens and migrates the history database at path.
func openStore(path string) (storage.Storage, error) {
	var store storage.Storage = storage.NewSQLiteStorage(path)
	if err := store.Open(); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	return store, nil
}
