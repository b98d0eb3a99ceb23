package core

import (
	"strconv"
	"strings"
	"time"
)

// Column positions in a stored row.
const (
	ColID = iota
	ColDate
	ColType
	ColCategory
	ColAmount
	ColPaymentMethod
	ColDescription

	NumColumns
)

// DateLayout is the ISO-8601 calendar date form used in the file.
const DateLayout = "2006-01-02"

const (
	Income  TransactionType = "Income"
	Expense TransactionType = "Expense"
)

type (
	TransactionType string

	// Row is a raw record as stored in the transaction file. Rows read back
	// from disk are not guaranteed to have NumColumns fields.
	Row []string

	Transaction struct {
		ID            string          `json:"id"`
		Date          string          `json:"date"`
		Type          TransactionType `json:"type"`
		Category      string          `json:"category"`
		Amount        float64         `json:"amount"`
		PaymentMethod string          `json:"paymentMethod"`
		Description   string          `json:"description"`
	}
)

// Header is the first line of every non-empty transaction file.
var Header = []string{"ID", "Date", "Type", "Category", "Amount", "PaymentMethod", "Description"}

// ParseTransactionType accepts income/expense in any case and surrounding space.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income":
		return Income, true
	case "expense":
		return Expense, true
	}
	return "", false
}

// ParseDate validates a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Today returns the current date in file form.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}

// Field returns the i-th field or "" when the row is too short.
func (r Row) Field(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Has reports whether the row carries column i.
func (r Row) Has(i int) bool {
	return i >= 0 && i < len(r)
}

// MatchesID compares the first field against the decimal form of id.
func (r Row) MatchesID(id int64) bool {
	return len(r) > 0 && r[ColID] == strconv.FormatInt(id, 10)
}

// Clone returns a copy that does not share the backing array.
func (r Row) Clone() Row {
	return append(Row(nil), r...)
}

// Row renders the transaction in fixed column order.
func (t Transaction) Row() Row {
	return Row{
		t.ID,
		t.Date,
		string(t.Type),
		t.Category,
		FormatAmount(t.Amount),
		t.PaymentMethod,
		t.Description,
	}
}

// TransactionFromRow converts a stored row. Short rows and non-numeric amounts
// yield a ParseError; line is the 1-based data row position used in the error.
func TransactionFromRow(line int, r Row) (Transaction, error) {
	if len(r) < NumColumns {
		return Transaction{}, &ParseError{Line: line, Field: "row", Value: strings.Join(r, ","), Err: errShortRow}
	}
	amount, err := ParseAmount(r[ColAmount])
	if err != nil {
		return Transaction{}, &ParseError{Line: line, Field: "amount", Value: r[ColAmount], Err: err}
	}
	return Transaction{
		ID:            r[ColID],
		Date:          r[ColDate],
		Type:          TransactionType(r[ColType]),
		Category:      r[ColCategory],
		Amount:        amount,
		PaymentMethod: r[ColPaymentMethod],
		Description:   r[ColDescription],
	}, nil
}
