package core

import "sort"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Diagnostic describes a row skipped by a tolerant scan.
type Diagnostic struct {
	Line   int    `json:"line"` // 1-based data row position, header excluded
	Row    Row    `json:"row"`
	Reason string `json:"reason"`
}

// Summary is the income/expense aggregate over the whole file.
type Summary struct {
	TotalIncome      float64            `json:"totalIncome"`
	TotalExpense     float64            `json:"totalExpense"`
	Balance          float64            `json:"balance"`
	CategoryExpenses map[string]float64 `json:"categoryExpenses"`
	Skipped          []Diagnostic       `json:"skipped,omitempty"`
}

// Categories returns the expense totals ordered by amount, largest first.
// Ties are broken by name.
func (s Summary) Categories() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(s.CategoryExpenses))
	for name, amt := range s.CategoryExpenses {
		out = append(out, CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	return out
}
