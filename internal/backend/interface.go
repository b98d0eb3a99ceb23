package backend

import (
	"context"

	"fintrack/internal/sheets"
)

// MirrorResult contains the mirror instance
type MirrorResult struct {
	Mirror sheets.LedgerMirror
}

// Factory creates ledger mirrors based on configuration
type Factory interface {
	CreateMirror(ctx context.Context, config Config) (*MirrorResult, error)
}

// Config holds configuration for mirror creation
type Config struct {
	Type MirrorType

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// MirrorType represents where the ledger copy is kept
type MirrorType string

const (
	SheetsMirror MirrorType = "sheets"
	MemoryMirror MirrorType = "memory"
)

// String implements fmt.Stringer
func (mt MirrorType) String() string {
	return string(mt)
}

// IsValid returns true if the mirror type is valid
func (mt MirrorType) IsValid() bool {
	switch mt {
	case SheetsMirror, MemoryMirror:
		return true
	default:
		return false
	}
}
