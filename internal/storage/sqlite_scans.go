package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/errtally/internal/report"
	"github.com/good-yellow-bee/errtally/internal/scanner"
)

type sqliteScanRepo struct {
	db *sql.DB
}

func (r *sqliteScanRepo) Save(ctx context.Context, rep *report.Report) error {
	if rep.ID == "" {
		rep.ID = uuid.New().String()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scans (id, file, pattern, threshold, started_at_ns, ended_at_ns,
			duration_ns, lines, headers, qualifying)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rep.ID, rep.File, rep.Pattern, rep.Threshold,
		rep.StartTime.UnixNano(), rep.EndTime.UnixNano(), int64(rep.Duration),
		rep.Lines, rep.Headers, rep.Qualifying,
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}

	if err := insertCounts(ctx, tx, "scan_levels", "level", rep.ID, rep.Levels); err != nil {
		return err
	}
	if err := insertCounts(ctx, tx, "scan_messages", "message", rep.ID, rep.Messages); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit scan: %w", err)
	}
	return nil
}

// insertCounts writes counts into table; table and column are package constants.
func insertCounts(ctx context.Context, tx *sql.Tx, table, column, scanID string, counts scanner.Counts) error {
	if len(counts) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx,
		fmt.Sprintf("INSERT INTO %s (scan_id, %s, hits) VALUES (?, ?, ?)", table, column))
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	for key, n := range counts {
		if _, err := stmt.ExecContext(ctx, scanID, key, n); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

func (r *sqliteScanRepo) Get(ctx context.Context, id string) (*report.Report, error) {
	rep := &report.Report{}
	var startedNs, endedNs, durationNs int64

	err := r.db.QueryRowContext(ctx, `
		SELECT id, file, pattern, threshold, started_at_ns, ended_at_ns, duration_ns,
			lines, headers, qualifying
		FROM scans WHERE id = ?
	`, id).Scan(
		&rep.ID, &rep.File, &rep.Pattern, &rep.Threshold,
		&startedNs, &endedNs, &durationNs,
		&rep.Lines, &rep.Headers, &rep.Qualifying,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get scan: %w", err)
	}
	rep.StartTime = time.Unix(0, startedNs)
	rep.EndTime = time.Unix(0, endedNs)
	rep.Duration = time.Duration(durationNs)

	if rep.Levels, err = r.counts(ctx, "SELECT level, hits FROM scan_levels WHERE scan_id = ?", id); err != nil {
		return nil, err
	}
	if rep.Messages, err = r.counts(ctx, "SELECT message, hits FROM scan_messages WHERE scan_id = ?", id); err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *sqliteScanRepo) counts(ctx context.Context, query, id string) (scanner.Counts, error) {
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	counts := make(scanner.Counts)
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scan counts: %w", err)
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

func (r *sqliteScanRepo) List(ctx context.Context, file string, limit int) ([]*ScanSummary, error) {
	query := `
		SELECT s.id, s.file, s.threshold, s.started_at_ns, s.duration_ns, s.lines, s.qualifying,
			(SELECT COUNT(*) FROM scan_messages m WHERE m.scan_id = s.id)
		FROM scans s
	`
	var args []any
	if file != "" {
		query += " WHERE s.file = ?"
		args = append(args, file)
	}
	query += " ORDER BY s.started_at_ns DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var scans []*ScanSummary
	for rows.Next() {
		s := &ScanSummary{}
		var startedNs, durationNs int64
		if err := rows.Scan(&s.ID, &s.File, &s.Threshold, &startedNs, &durationNs,
			&s.Lines, &s.Qualifying, &s.Messages); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		s.StartedAt = time.Unix(0, startedNs)
		s.Duration = time.Duration(durationNs)
		scans = append(scans, s)
	}
	return scans, rows.Err()
}

func (r *sqliteScanRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM scans WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete scan: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
