package export

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
)

func TestWriteXLSX(t *testing.T) {
	txs := []core.Transaction{
		{ID: "1", Date: "2024-01-05", Type: core.Income, Category: "Salary", Amount: 2000, PaymentMethod: "Bank", Description: "Jan"},
		{ID: "2", Date: "2024-01-06", Type: core.Expense, Category: "Food", Amount: 12.5},
	}
	summary := core.Summary{
		TotalIncome:      2000,
		TotalExpense:     32.5,
		Balance:          1967.5,
		CategoryExpenses: map[string]float64{"Food": 12.5, "Rent": 20},
	}

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, txs, summary); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{TransactionsSheet, SummarySheet}) {
		t.Fatalf("sheets = %v", got)
	}

	rows, err := f.GetRows(TransactionsSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if !reflect.DeepEqual(rows[0], core.Header) {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][4] != "2000" || rows[2][3] != "Food" || rows[2][4] != "12.5" {
		t.Errorf("data rows = %v", rows[1:])
	}

	typ, err := f.GetCellType(TransactionsSheet, "E3")
	if err != nil {
		t.Fatalf("GetCellType: %v", err)
	}
	if typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString {
		t.Errorf("amount stored as text")
	}

	srows, err := f.GetRows(SummarySheet)
	if err != nil {
		t.Fatalf("GetRows summary: %v", err)
	}
	want := [][]string{
		{"Total income", "2000"},
		{"Total expense", "32.5"},
		{"Balance", "1967.5"},
		nil,
		{"Category", "Expense"},
		{"Rent", "20"},
		{"Food", "12.5"},
	}
	if len(srows) != len(want) {
		t.Fatalf("summary rows = %v", srows)
	}
	for i := range want {
		if len(want[i]) == 0 {
			if len(srows[i]) != 0 {
				t.Errorf("row %d = %v, want empty", i+1, srows[i])
			}
			continue
		}
		if !reflect.DeepEqual(srows[i], want[i]) {
			t.Errorf("summary row %d = %v, want %v", i+1, srows[i], want[i])
		}
	}
}

func TestWriteXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, nil, core.Summary{}); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows(TransactionsSheet)
	if len(rows) != 1 {
		t.Errorf("expected header only, got %v", rows)
	}
}
