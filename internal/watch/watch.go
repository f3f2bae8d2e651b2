// Package watch rescans a log file whenever it changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/good-yellow-bee/errtally/internal/scanner"
)

// ErrClosed is returned by Run when the underlying watcher stops delivering
// events before ctx is cancelled.
var ErrClosed = errors.New("watcher closed")

// Scan is the outcome of one rescan. Exactly one of Result and Err is set.
type Scan struct {
	Started time.Time
	Result  *scanner.Result
	Err     error
}

// ScanFunc receives each scan as it completes.
type ScanFunc func(Scan)

// Watcher runs an independent scan of a file each time it is written or
// recreated. Rescans are limited to one per interval; changes seen while
// waiting are folded into the next scan.
type Watcher struct {
	path    string
	opts    scanner.Options
	limiter *rate.Limiter
	watcher *fsnotify.Watcher
}

// New creates a Watcher for path. The file's directory is watched so that
// rotation (remove and recreate) is noticed.
func New(path string, opts scanner.Options, interval time.Duration) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if interval <= 0 {
		interval = time.Second
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	return &Watcher{
		path:    absPath,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		watcher: watcher,
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Run scans once, then rescans on every change until ctx is cancelled.
// The watcher is closed when Run returns. Run returns ErrClosed if the
// watcher is closed first.
func (w *Watcher) Run(ctx context.Context, fn ScanFunc) error {
	defer w.watcher.Close()

	var delayed <-chan time.Time

	scan := func() {
		started := time.Now()
		res, err := scanner.ScanFile(w.path, w.opts)
		fn(Scan{Started: started, Result: res, Err: err})
	}
	trigger := func() {
		if delayed != nil {
			return // a rescan is already scheduled
		}
		if d := w.limiter.Reserve().Delay(); d > 0 {
			delayed = time.After(d)
			return
		}
		scan()
	}

	trigger()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return ErrClosed
			}
			if event.Name != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				trigger()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return ErrClosed
			}
			log.Printf("watcher error on %s: %v", w.path, err)
		case <-delayed:
			delayed = nil
			scan()
		}
	}
}

// Close releases the underlying watcher. A running Run returns ErrClosed.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
