package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/errtally/internal/config"
	"github.com/good-yellow-bee/errtally/internal/storage"
)

// DefaultStorePath is used by history commands when no store is configured.
const DefaultStorePath = "~/.errtally/history.db"

var (
	historyStore string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history [file]",
	Short: "List saved scans",
	Long: `List scans saved with --store, newest first.

Examples:
  # All saved scans
  errtally history

  # The last 5 scans of one file
  errtally history /var/log/app.log --limit 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved scan report",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	historyCmd.PersistentFlags().StringVar(&historyStore, "store", "", "history database (default: config store or "+DefaultStorePath+")")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum scans to list (0 = all)")
}

// historyStorePath resolves the database from flag, then config, then default.
func historyStorePath() (string, error) {
	if historyStore != "" {
		return config.ExpandHome(historyStore), nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.Store != "" {
		return cfg.Store, nil
	}
	return config.ExpandHome(DefaultStorePath), nil
}

func withHistory(fn func(storage.Storage) error) error {
	path, err := historyStorePath()
	if err != nil {
		return err
	}
	PrintVerbose("Using history database %s", path)

	store, err := openStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(store)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	// Files are matched exactly as they were passed to scan.
	file := ""
	if len(args) > 0 {
		file = args[0]
	}

	return withHistory(func(store storage.Storage) error {
		scans, err := store.Scans().List(cmd.Context(), file, historyLimit)
		if err != nil {
			return err
		}
		printScanList(cmd.OutOrStdout(), scans)
		return nil
	})
}

func printScanList(w io.Writer, scans []*storage.ScanSummary) {
	if GetOutput() == "json" {
		data, err := json.MarshalIndent(scans, "", "  ")
		if err != nil {
			PrintError(fmt.Sprintf("failed to marshal JSON: %v", err), false)
			return
		}
		fmt.Fprintln(w, string(data))
		return
	}

	if len(scans) == 0 {
		fmt.Fprintln(w, "No saved scans.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tSTARTED\tFILE\tSINCE\tLINES\tCOUNTED\tMESSAGES\n")
	for _, s := range scans {
		since := s.Threshold
		if since == "" {
			since = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			s.ID, s.StartedAt.Format("2006-01-02 15:04:05"), s.File, since,
			s.Lines, s.Qualifying, s.Messages)
	}
	tw.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	return withHistory(func(store storage.Storage) error {
		rep, err := store.Scans().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), rep, 0)
		return nil
	})
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	return withHistory(func(store storage.Storage) error {
		if err := store.Scans().Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted scan %s\n", args[0])
		return nil
	})
}
