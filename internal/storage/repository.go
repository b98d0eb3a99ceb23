package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// CSVRepository owns the transaction file. Every call goes back to disk; there
// is no cache and no locking, so concurrent writers race and the last rewrite wins.
type CSVRepository struct {
	path string
}

func NewCSVRepository(path string) *CSVRepository {
	return &CSVRepository{path: path}
}

// Path returns the transaction file location.
func (r *CSVRepository) Path() string {
	return r.path
}

// EnsureInitialized creates the file with its header row if it does not exist.
func (r *CSVRepository) EnsureInitialized(ctx context.Context) error {
	if _, err := os.Stat(r.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat transactions file: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create transactions directory: %w", err)
		}
	}

	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return fmt.Errorf("create transactions file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(core.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush header: %w", err)
	}

	slog.InfoContext(ctx, "Transactions file created", "path", r.path)
	return nil
}

// ReadAll returns every data row in file order, header excluded.
func (r *CSVRepository) ReadAll(ctx context.Context) ([]core.Row, error) {
	if err := r.EnsureInitialized(ctx); err != nil {
		return nil, err
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open transactions file: %w", err)
	}
	defer f.Close()

	records, err := newReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read transactions file: %w", err)
	}
	if len(records) <= 1 {
		return []core.Row{}, nil
	}

	rows := make([]core.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, core.Row(rec))
	}
	return rows, nil
}

// WriteAll replaces the file content with the header followed by rows. The
// new content is written to a sibling temp file and renamed over the original.
func (r *CSVRepository) WriteAll(ctx context.Context, rows []core.Row) error {
	if err := r.EnsureInitialized(ctx); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(core.Header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush rows: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace transactions file: %w", err)
	}

	slog.DebugContext(ctx, "Transactions file rewritten", "path", r.path, "rows", len(rows))
	return nil
}

// Append writes a single row at the end of the file.
func (r *CSVRepository) Append(ctx context.Context, row core.Row) error {
	if err := r.EnsureInitialized(ctx); err != nil {
		return err
	}

	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open transactions file for append: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush appended row: %w", err)
	}

	slog.InfoContext(ctx, "Transaction appended", "id", row.Field(core.ColID), "path", r.path)
	return nil
}

// NextID returns one more than the largest valid ID, or 1 for an empty or
// missing file. Rows without an integer ID are ignored.
func (r *CSVRepository) NextID(ctx context.Context) (int64, error) {
	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open transactions file: %w", err)
	}
	defer f.Close()

	records, err := newReader(f).ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read transactions file: %w", err)
	}
	var rows []core.Row
	if len(records) > 1 {
		rows = make([]core.Row, 0, len(records)-1)
		for _, rec := range records[1:] {
			rows = append(rows, core.Row(rec))
		}
	}

	ids, skipped := ScanIDs(rows)
	if len(skipped) > 0 {
		slog.DebugContext(ctx, "Rows without a valid ID ignored", "count", len(skipped))
	}

	var max int64
	for _, id := range ids {
		if id > max {
			max = id
		}
	}
	return max + 1, nil
}

// GetByID returns the first row whose ID field equals the decimal form of id.
func (r *CSVRepository) GetByID(ctx context.Context, id int64) (core.Row, error) {
	rows, err := r.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.MatchesID(id) {
			return row, nil
		}
	}
	return nil, &core.NotFoundError{ID: strconv.FormatInt(id, 10)}
}

// ScanIDs parses the ID column of each row. Rows with a missing or non-integer
// ID are left out of ids and reported in skipped.
func ScanIDs(rows []core.Row) (ids []int64, skipped []core.Diagnostic) {
	ids = make([]int64, 0, len(rows))
	for i, row := range rows {
		if !row.Has(core.ColID) {
			skipped = append(skipped, core.Diagnostic{Line: i + 1, Row: row, Reason: "missing id"})
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(row[core.ColID]), 10, 64)
		if err != nil {
			skipped = append(skipped, core.Diagnostic{Line: i + 1, Row: row, Reason: "invalid id " + strconv.Quote(row[core.ColID])})
			continue
		}
		ids = append(ids, id)
	}
	return ids, skipped
}

func newReader(f *os.File) *csv.Reader {
	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}
