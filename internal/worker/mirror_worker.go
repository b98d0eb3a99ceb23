package worker

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/sheets"
)

// RowReader is the read side of the record store.
type RowReader interface {
	ReadAll(ctx context.Context) ([]core.Row, error)
}

// MirrorWorker keeps a LedgerMirror in step with the transaction file. Events
// carry only an ID, so every event triggers a full re-read and replace.
type MirrorWorker struct {
	rows   RowReader
	mirror sheets.LedgerMirror
}

func NewMirrorWorker(rows RowReader, mirror sheets.LedgerMirror) *MirrorWorker {
	return &MirrorWorker{rows: rows, mirror: mirror}
}

// HandleEvent processes a single transaction event from AMQP
func (w *MirrorWorker) HandleEvent(ctx context.Context, evt *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldEventID, evt.EventID,
		applog.FieldTransactionID, evt.TransactionID,
		"kind", evt.Kind)

	if err := w.Resync(ctx); err != nil {
		return fmt.Errorf("mirror after %s event: %w", evt.Kind, err)
	}
	return nil
}

// Resync copies the whole file to the mirror. Malformed rows are copied as-is.
func (w *MirrorWorker) Resync(ctx context.Context) error {
	rows, err := w.rows.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read transactions: %w", err)
	}
	if err := w.mirror.ReplaceAll(ctx, core.Header, rows); err != nil {
		return fmt.Errorf("replace mirror: %w", err)
	}

	slog.InfoContext(ctx, "Mirror synchronized",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldOperation, applog.OpMirror,
		applog.FieldCount, len(rows))
	return nil
}
