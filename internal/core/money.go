package core

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	errNotANumber = errors.New("not a number")
	errNotFinite  = errors.New("not a finite number")
	errShortRow   = errors.New("row has fewer than 7 fields")
)

// ParseAmount parses a stored or submitted amount. Surrounding space is
// ignored; NaN and infinities are rejected.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errNotANumber
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errNotANumber
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

// FormatAmount renders an amount with the fewest digits that round-trip.
//
//	FormatAmount(12.5) -> "12.5"
//	FormatAmount(2000) -> "2000"
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
