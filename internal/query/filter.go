package query

import "fintrack/internal/core"

// entry is a row that carries a type, a category and a numeric amount.
type entry struct {
	row    core.Row
	amount float64
}

// scanEntries splits rows into those usable for aggregation and diagnostics
// for the rest.
func scanEntries(rows []core.Row) ([]entry, []core.Diagnostic) {
	clean := make([]entry, 0, len(rows))
	var skipped []core.Diagnostic
	for i, r := range rows {
		if !r.Has(core.ColType) {
			skipped = append(skipped, core.Diagnostic{Line: i + 1, Row: r, Reason: "missing type"})
			continue
		}
		amt, reason := rowAmount(r)
		if reason != "" {
			skipped = append(skipped, core.Diagnostic{Line: i + 1, Row: r, Reason: reason})
			continue
		}
		clean = append(clean, entry{row: r, amount: amt})
	}
	return clean, skipped
}

func rowAmount(r core.Row) (float64, string) {
	if !r.Has(core.ColAmount) {
		return 0, "missing amount"
	}
	amt, err := core.ParseAmount(r[core.ColAmount])
	if err != nil {
		return 0, "invalid amount: " + err.Error()
	}
	return amt, ""
}
