// Package export renders transactions as an Excel workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
)

// Sheet names in the generated workbook.
const (
	TransactionsSheet = "Transactions"
	SummarySheet      = "Summary"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteXLSX writes a workbook with one row per transaction and a summary sheet.
// Amounts are stored as numbers so the sheet can be totalled in Excel.
func WriteXLSX(w io.Writer, txs []core.Transaction, summary core.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), TransactionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeTransactions(f, txs, bold); err != nil {
		return err
	}
	if err := writeSummary(f, summary, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTransactions(f *excelize.File, txs []core.Transaction, bold int) error {
	header := make([]interface{}, len(core.Header))
	for i, h := range core.Header {
		header[i] = h
	}
	if err := setRow(f, TransactionsSheet, 1, header); err != nil {
		return err
	}
	if err := f.SetCellStyle(TransactionsSheet, "A1", "G1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, tx := range txs {
		row := []interface{}{tx.ID, tx.Date, string(tx.Type), tx.Category, tx.Amount, tx.PaymentMethod, tx.Description}
		if err := setRow(f, TransactionsSheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, s core.Summary, bold int) error {
	rows := [][]interface{}{
		{"Total income", s.TotalIncome},
		{"Total expense", s.TotalExpense},
		{"Balance", s.Balance},
		{},
		{"Category", "Expense"},
	}
	for _, c := range s.Categories() {
		rows = append(rows, []interface{}{c.Name, c.Amount})
	}

	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		if err := setRow(f, SummarySheet, i+1, r); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "A3", bold); err != nil {
		return fmt.Errorf("style totals: %w", err)
	}
	if err := f.SetCellStyle(SummarySheet, "A5", "B5", bold); err != nil {
		return fmt.Errorf("style category header: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
