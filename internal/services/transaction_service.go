package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// Repository is the record store as seen by the service.
type Repository interface {
	ReadAll(ctx context.Context) ([]core.Row, error)
	WriteAll(ctx context.Context, rows []core.Row) error
	Append(ctx context.Context, row core.Row) error
	NextID(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id int64) (core.Row, error)
}

// EventPublisher announces committed changes. It may be nil.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, kind amqp.EventKind, id int64) error
}

// Update warnings, reported when a submitted value is rejected and the stored
// one is kept.
const (
	WarnInvalidDate   = "Invalid date format. Keeping previous date"
	WarnInvalidAmount = "Invalid amount. Keeping previous value"
	WarnInvalidType   = "Invalid type. Keeping previous type"
)

// CreateInput holds the raw submitted fields of a new transaction.
type CreateInput struct {
	Date          string
	Type          string
	Category      string
	Amount        string
	PaymentMethod string
	Description   string
}

// UpdateInput holds optional overrides; an empty field keeps the stored value.
type UpdateInput struct {
	Date          string
	Type          string
	Category      string
	Amount        string
	PaymentMethod string
	Description   string
}

// UpdateResult is the row as written and any values that were rejected.
type UpdateResult struct {
	Row      core.Row
	Warnings []string
}

// TransactionService validates mutations and applies them to the record store
type TransactionService struct {
	repo      Repository
	publisher EventPublisher
	now       func() time.Time
}

type Option func(*TransactionService)

// WithClock overrides the time source used for default dates.
func WithClock(now func() time.Time) Option {
	return func(s *TransactionService) { s.now = now }
}

func NewTransactionService(repo Repository, publisher EventPublisher, opts ...Option) *TransactionService {
	s := &TransactionService{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates in, assigns the next ID and appends the row.
func (s *TransactionService) Create(ctx context.Context, in CreateInput) (core.Transaction, error) {
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = core.Today(s.now())
	}
	if _, err := core.ParseDate(date); err != nil {
		return core.Transaction{}, core.NewValidationError("date", "Invalid date format. Use YYYY-MM-DD")
	}

	txType, ok := core.ParseTransactionType(in.Type)
	if !ok {
		return core.Transaction{}, core.NewValidationError("type", "Type must be 'Income' or 'Expense'")
	}

	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, core.NewValidationError("amount", "Invalid amount")
	}

	id, err := s.repo.NextID(ctx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("next id: %w", err)
	}

	tx := core.Transaction{
		ID:            strconv.FormatInt(id, 10),
		Date:          date,
		Type:          txType,
		Category:      strings.TrimSpace(in.Category),
		Amount:        amount,
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		Description:   strings.TrimSpace(in.Description),
	}
	if err := s.repo.Append(ctx, tx.Row()); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).LogTransactionChanged(ctx,
		applog.OpCreate, tx.ID, string(tx.Type), tx.Category, core.FormatAmount(tx.Amount))

	s.publish(ctx, amqp.EventCreated, id)
	return tx, nil
}

// Update applies the non-empty fields of in to the row with the given ID.
// Invalid date, type or amount values keep the stored value and add a warning.
func (s *TransactionService) Update(ctx context.Context, id int64, in UpdateInput) (UpdateResult, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return UpdateResult{}, err
	}

	row := make(core.Row, core.NumColumns)
	for i := range row {
		row[i] = current.Field(i)
	}
	var warnings []string

	if v := strings.TrimSpace(in.Date); v != "" {
		if _, err := core.ParseDate(v); err != nil {
			warnings = append(warnings, WarnInvalidDate)
		} else {
			row[core.ColDate] = v
		}
	}
	if v := strings.TrimSpace(in.Type); v != "" {
		if t, ok := core.ParseTransactionType(v); ok {
			row[core.ColType] = string(t)
		} else {
			warnings = append(warnings, WarnInvalidType)
		}
	}
	if v := strings.TrimSpace(in.Category); v != "" {
		row[core.ColCategory] = v
	}
	if v := strings.TrimSpace(in.Amount); v != "" {
		if amount, err := core.ParseAmount(v); err != nil {
			warnings = append(warnings, WarnInvalidAmount)
		} else {
			row[core.ColAmount] = core.FormatAmount(amount)
		}
	}
	if v := strings.TrimSpace(in.PaymentMethod); v != "" {
		row[core.ColPaymentMethod] = v
	}
	if v := strings.TrimSpace(in.Description); v != "" {
		row[core.ColDescription] = v
	}

	rows, err := s.repo.ReadAll(ctx)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("read transactions: %w", err)
	}
	for i := range rows {
		if rows[i].MatchesID(id) {
			rows[i] = row
		}
	}
	if err := s.repo.WriteAll(ctx, rows); err != nil {
		return UpdateResult{}, fmt.Errorf("rewrite transactions: %w", err)
	}

	if len(warnings) > 0 {
		slog.WarnContext(ctx, "Transaction updated with rejected values",
			applog.FieldComponent, applog.ComponentService,
			applog.FieldTransactionID, id,
			"warnings", warnings)
	}
	applog.NewStructuredLogger(applog.FromContext(ctx)).LogTransactionChanged(ctx,
		applog.OpUpdate, row[core.ColID], row[core.ColType], row[core.ColCategory], row[core.ColAmount])

	s.publish(ctx, amqp.EventUpdated, id)
	return UpdateResult{Row: row, Warnings: warnings}, nil
}

// Delete rewrites the file without the rows matching id. Unknown IDs are not
// an error; removed reports whether anything was dropped.
func (s *TransactionService) Delete(ctx context.Context, id int64) (removed bool, err error) {
	rows, err := s.repo.ReadAll(ctx)
	if err != nil {
		return false, fmt.Errorf("read transactions: %w", err)
	}

	kept := make([]core.Row, 0, len(rows))
	for _, row := range rows {
		if row.MatchesID(id) {
			removed = true
			continue
		}
		kept = append(kept, row)
	}
	if err := s.repo.WriteAll(ctx, kept); err != nil {
		return false, fmt.Errorf("rewrite transactions: %w", err)
	}

	if !removed {
		slog.DebugContext(ctx, "Delete matched no transaction",
			applog.FieldComponent, applog.ComponentService,
			applog.FieldTransactionID, id)
		return false, nil
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).LogTransactionChanged(ctx,
		applog.OpDelete, strconv.FormatInt(id, 10), "", "", "")
	s.publish(ctx, amqp.EventDeleted, id)
	return true, nil
}

func (s *TransactionService) publish(ctx context.Context, kind amqp.EventKind, id int64) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, kind, id); err != nil {
		// The change is already on disk.
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			applog.FieldComponent, applog.ComponentService,
			applog.FieldOperation, applog.OpPublish,
			applog.FieldTransactionID, id,
			"kind", kind,
			applog.FieldError, err)
	}
}

// Close releases the publisher connection, if any.
func (s *TransactionService) Close() error {
	var errs []error

	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	return errors.Join(errs...)
}
