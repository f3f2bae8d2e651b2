package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/errtally/internal/metrics"
	"github.com/good-yellow-bee/errtally/internal/report"
	"github.com/good-yellow-bee/errtally/internal/rules"
	"github.com/good-yellow-bee/errtally/internal/scanner"
	"github.com/good-yellow-bee/errtally/internal/storage"
	"github.com/good-yellow-bee/errtally/internal/watch"
)

var (
	watchInterval      time.Duration
	watchMetricsListen string
)

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Rescan a log file whenever it changes",
	Long: `Watch a log file and run a fresh scan each time it is written or
rotated. Every scan reads the whole file again; nothing is carried over
between scans.

Examples:
  # Print a summary after every change, at most once every 5 seconds
  errtally watch /var/log/app.log --since 2024-01-01 --interval 5s

  # Serve scan metrics for Prometheus
  errtally watch /var/log/app.log --metrics-listen :9464`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	addScanFlags(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "minimum time between scans (default: config or 1s)")
	watchCmd.Flags().StringVar(&watchMetricsListen, "metrics-listen", "", "serve /metrics on this address")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := resolveScanSettings(cmd, args, cfg)
	if err != nil {
		return err
	}

	interval := cfg.Watch.Interval
	if watchInterval > 0 {
		interval = watchInterval
	}
	listen := cfg.Metrics.Listen
	if cmd.Flags().Changed("metrics-listen") {
		listen = watchMetricsListen
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

	w, err := watch.New(s.File, scanner.Options{Pattern: pattern, Threshold: s.Threshold}, interval)
	if err != nil {
		return err
	}

	var store storage.Storage
	if s.Store != "" {
		if store, err = openStore(s.Store); err != nil {
			w.Close()
			return err
		}
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()
	out := cmd.OutOrStdout()

	handle := func(sc watch.Scan) {
		if sc.Err != nil {
			collector.ObserveError()
			log.Printf("scan %s: %v", s.File, sc.Err)
			return
		}

		rep := report.New(s.File, pattern.String(), s.Threshold, sc.Started, sc.Result)
		collector.Observe(rep)
		if IsVerbose() {
			log.Printf("scanned %s in %v: %d lines, %d counted headers", s.File, rep.Duration, rep.Lines, rep.Qualifying)
		}

		if s.Textfile != "" {
			if err := collector.WriteTextfile(s.Textfile); err != nil {
				log.Printf("%v", err)
			}
		}
		if store != nil {
			if err := store.Scans().Save(ctx, rep); err != nil {
				log.Printf("save scan: %v", err)
			}
		}

		printReport(out, rep, s.Top)

		if check != nil {
			if failed, err := check.Eval(rep); err != nil {
				log.Printf("check: %v", err)
			} else if failed {
				log.Printf("%v: %s", rules.ErrCheckFailed, check.Expression())
			}
		}
	}

	PrintVerbose("Watching %s (every %v at most)...", w.Path(), interval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx, handle)
	})

	if listen != "" {
		srv := metrics.NewServer(listen, collector)
		PrintVerbose("Serving metrics on http://%s/metrics", srv.Addr())
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
