// Package cmd contains the CLI commands for errtally.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/good-yellow-bee/errtally/internal/config"
)

var (
	// Used for flags
	verbose bool
	output  string
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "errtally",
	Short: "errtally - error record statistics for structured logs",
	Long: `errtally scans structured text logs for error records and reports
how many records of each level occurred since a date, and which messages
followed them most often.

A record starts with a header line such as:
  2024-01-02 10:00:00,000 [12] ERROR ...
The line right after a counted header is taken as its message.

Examples:
  # Count errors since the start of the year
  errtally scan /var/log/app.log --since 2024-01-01

  # Use a profile from a config file and fail on any FATAL record
  errtally scan --config errtally.yaml --profile app --fail-if 'levels["FATAL"] > 0'

  # Rescan whenever the file changes, serving Prometheus metrics
  errtally watch /var/log/app.log --metrics-listen :9464`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("output") {
			output = defaultOutput()
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json, plain)")
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file with scan profiles")
}

// defaultOutput picks table output for terminals and plain output for pipes.
func defaultOutput() string {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "table"
	}
	return "plain"
}

// loadConfig reads --config, or returns defaults when it is not set.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.Load(cfgFile)
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintError prints an error message and exits if fatal is true.
func PrintError(msg string, fatal bool) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	if fatal {
		os.Exit(1)
	}
}

// PrintVerbose prints a message to stderr only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
