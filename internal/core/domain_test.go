package core

import (
	"errors"
	"testing"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"income", Income, true},
		{" Expense ", Expense, true},
		{"EXPENSE", Expense, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseTransactionType(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("%q: got (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("2024-02-29"); err != nil {
		t.Fatalf("expected leap day to parse, got %v", err)
	}
	for _, bad := range []string{"2023-02-29", "2024-13-01", "01/02/2024", ""} {
		if _, err := ParseDate(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestTransactionFromRow(t *testing.T) {
	row := Row{"1", "2024-01-01", "Expense", "Food", "12.5", "Card", "lunch"}
	tx, err := TransactionFromRow(1, row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.ID != "1" || tx.Amount != 12.5 || tx.Type != Expense || tx.Description != "lunch" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}

	_, err = TransactionFromRow(3, Row{"2", "2024-01-01", "Expense", "Food", "abc", "", ""})
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Line != 3 || pe.Field != "amount" {
		t.Fatalf("unexpected parse error detail: %+v", pe)
	}

	if _, err := TransactionFromRow(1, Row{"3", "2024-01-01"}); !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse for short row, got %v", err)
	}
}

func TestRowHelpers(t *testing.T) {
	r := Row{"7", "2024-01-01"}
	if !r.MatchesID(7) || r.MatchesID(70) {
		t.Fatalf("MatchesID mismatch")
	}
	if (Row{"07"}).MatchesID(7) {
		t.Fatalf("zero-padded ID must not match")
	}
	if r.Field(ColCategory) != "" || r.Has(ColCategory) {
		t.Fatalf("short row should report missing category")
	}
	c := r.Clone()
	c[0] = "8"
	if r[0] != "7" {
		t.Fatalf("Clone shares storage")
	}
}

func TestErrorMatching(t *testing.T) {
	var err error = NewValidationError("date", "invalid date format, use YYYY-MM-DD")
	if !errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) {
		t.Fatalf("validation error matching failed")
	}
	err = &NotFoundError{ID: "9"}
	if !errors.Is(err, ErrNotFound) || err.Error() != "transaction 9 not found" {
		t.Fatalf("not found error mismatch: %v", err)
	}
}

func TestSummaryCategories(t *testing.T) {
	s := Summary{CategoryExpenses: map[string]float64{"Rent": 800, "Food": 12.5, "Bills": 12.5}}
	got := s.Categories()
	if len(got) != 3 || got[0].Name != "Rent" || got[1].Name != "Bills" || got[2].Name != "Food" {
		t.Fatalf("unexpected order: %+v", got)
	}
}
