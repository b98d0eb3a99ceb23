// Package query derives read-side views over the transaction file: the typed
// listing, the income/expense summary and the filtered search.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// RowReader is the part of the record store the engine needs.
type RowReader interface {
	ReadAll(ctx context.Context) ([]core.Row, error)
}

// Search modes.
const (
	ModeDate     = "date"
	ModeCategory = "category"
	ModeAmount   = "amount"
)

// SearchParams carries the raw search inputs; only the fields of the chosen
// mode are looked at.
type SearchParams struct {
	Mode     string
	Date     string
	Category string
	Min      string
	Max      string
}

// SearchResult holds matching rows in file order and the rows the scan skipped.
type SearchResult struct {
	Rows    []core.Row
	Skipped []core.Diagnostic
}

type Engine struct {
	rows RowReader
}

func NewEngine(rows RowReader) *Engine {
	return &Engine{rows: rows}
}

// ListAll converts every stored row. The first malformed row aborts the call
// with a *core.ParseError.
func (e *Engine) ListAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := e.rows.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for i, row := range rows {
		tx, err := core.TransactionFromRow(i+1, row)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// Summarize totals income and expenses and groups expenses by category.
func (e *Engine) Summarize(ctx context.Context) (core.Summary, error) {
	rows, err := e.rows.ReadAll(ctx)
	if err != nil {
		return core.Summary{}, fmt.Errorf("read transactions: %w", err)
	}

	entries, skipped := scanEntries(rows)

	income := decimal.Zero
	expense := decimal.Zero
	byCategory := map[string]decimal.Decimal{}
	for _, en := range entries {
		amt := decimal.NewFromFloat(en.amount)
		switch strings.ToLower(en.row[core.ColType]) {
		case "income":
			income = income.Add(amt)
		case "expense":
			expense = expense.Add(amt)
			cat := en.row[core.ColCategory]
			byCategory[cat] = byCategory[cat].Add(amt)
		}
	}

	s := core.Summary{
		TotalIncome:      income.InexactFloat64(),
		TotalExpense:     expense.InexactFloat64(),
		CategoryExpenses: make(map[string]float64, len(byCategory)),
		Skipped:          skipped,
	}
	s.Balance = s.TotalIncome - s.TotalExpense
	for cat, total := range byCategory {
		s.CategoryExpenses[cat] = total.InexactFloat64()
	}

	if len(skipped) > 0 {
		slog.DebugContext(ctx, "Summary skipped malformed rows", "count", len(skipped))
	}
	return s, nil
}

// Search filters rows by exactly one mode. An unknown mode or a malformed
// amount bound is a *core.ValidationError.
func (e *Engine) Search(ctx context.Context, p SearchParams) (SearchResult, error) {
	var match func(core.Row) (bool, string)

	switch p.Mode {
	case ModeDate:
		date := strings.TrimSpace(p.Date)
		match = func(r core.Row) (bool, string) {
			if !r.Has(core.ColDate) {
				return false, "missing date"
			}
			return r[core.ColDate] == date, ""
		}
	case ModeCategory:
		cat := strings.TrimSpace(p.Category)
		match = func(r core.Row) (bool, string) {
			if !r.Has(core.ColCategory) {
				return false, "missing category"
			}
			return strings.EqualFold(r[core.ColCategory], cat), ""
		}
	case ModeAmount:
		lo, err := core.ParseAmount(p.Min)
		if err != nil {
			return SearchResult{}, core.NewValidationError("min_amt", "Invalid amount inputs")
		}
		hi, err := core.ParseAmount(p.Max)
		if err != nil {
			return SearchResult{}, core.NewValidationError("max_amt", "Invalid amount inputs")
		}
		match = func(r core.Row) (bool, string) {
			amt, reason := rowAmount(r)
			if reason != "" {
				return false, reason
			}
			return lo <= amt && amt <= hi, ""
		}
	default:
		return SearchResult{}, core.NewValidationError("mode", "Invalid search mode")
	}

	rows, err := e.rows.ReadAll(ctx)
	if err != nil {
		return SearchResult{}, fmt.Errorf("read transactions: %w", err)
	}

	res := SearchResult{Rows: []core.Row{}}
	for i, r := range rows {
		ok, reason := match(r)
		if reason != "" {
			res.Skipped = append(res.Skipped, core.Diagnostic{Line: i + 1, Row: r, Reason: reason})
			continue
		}
		if ok {
			res.Rows = append(res.Rows, r)
		}
	}
	return res, nil
}
