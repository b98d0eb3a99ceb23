package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

var _ ports.LedgerMirror = (*Store)(nil)

// Store is an in-process mirror used in development and tests.
type Store struct {
	mu       sync.Mutex
	header   []string
	rows     []core.Row
	replaces int
}

func New() *Store {
	return &Store{}
}

// ReplaceAll stores copies of header and rows.
func (s *Store) ReplaceAll(_ context.Context, header []string, rows []core.Row) error {
	cp := make([]core.Row, len(rows))
	for i, r := range rows {
		cp[i] = r.Clone()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header = append([]string(nil), header...)
	s.rows = cp
	s.replaces++
	return nil
}

// Snapshot returns the current content.
func (s *Store) Snapshot() (header []string, rows []core.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	header = append([]string(nil), s.header...)
	rows = make([]core.Row, len(s.rows))
	for i, r := range s.rows {
		rows[i] = r.Clone()
	}
	return header, rows
}

// Replaces returns how many times the mirror was rewritten.
func (s *Store) Replaces() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaces
}
