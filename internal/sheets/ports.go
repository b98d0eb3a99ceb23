package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerMirror holds a read-only copy of the transaction file.
	LedgerMirror interface {
		// ReplaceAll overwrites the mirror with header followed by rows.
		ReplaceAll(ctx context.Context, header []string, rows []core.Row) error
	}
)
