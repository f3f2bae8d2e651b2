// Package storage persists scan reports so runs can be compared over time.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/good-yellow-bee/errtally/internal/report"
)

// ErrNotFound is returned when a requested scan does not exist.
var ErrNotFound = errors.New("scan not found")

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	Scans() ScanRepository
}

// ScanRepository stores and retrieves scan reports.
type ScanRepository interface {
	// Save stores r, assigning r.ID if it is empty.
	Save(ctx context.Context, r *report.Report) error
	// Get returns the full report with the given ID.
	Get(ctx context.Context, id string) (*report.Report, error)
	// List returns the most recent scans first. An empty file lists all files;
	// limit <= 0 means no limit.
	List(ctx context.Context, file string, limit int) ([]*ScanSummary, error)
	// Delete removes a scan and its counts.
	Delete(ctx context.Context, id string) error
}

// ScanSummary is a stored scan without its level and message tallies.
type ScanSummary struct {
	ID         string        `json:"id"`
	File       string        `json:"file"`
	Threshold  string        `json:"threshold,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ms"`
	Lines      int64         `json:"lines"`
	Qualifying int64         `json:"qualifying"`
	Messages   int64         `json:"distinct_messages"`
}
