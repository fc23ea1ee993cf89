package domain

import "fmt"

// Formula selects how monthly usage is derived from cumulative readings.
type Formula string

const (
	// FormulaBoundary subtracts the previous month's latest reading from
	// this month's latest, falling back to this month's earliest reading.
	FormulaBoundary Formula = "boundary"
	// FormulaIntraMonth compares only the first and last readings inside
	// the month and needs at least two of them.
	FormulaIntraMonth Formula = "intra_month"
)

func ParseFormula(s string) (Formula, error) {
	switch Formula(s) {
	case "", FormulaBoundary:
		return FormulaBoundary, nil
	case FormulaIntraMonth:
		return FormulaIntraMonth, nil
	default:
		return "", fmt.Errorf("unknown usage formula %q", s)
	}
}

// Extractor turns a reading history into monthly consumption. Results are
// never negative; missing data yields 0.
type Extractor interface {
	MonthlyUsage(history History, month MonthKey, kind Kind) float64
	UsageByKind(history History, month MonthKey, kinds []Kind) map[Kind]float64
}

// DailyDelta is the consumption between two consecutive recorded dates.
type DailyDelta struct {
	Date  string  `json:"date"`
	Label string  `json:"label"`
	Usage float64 `json:"usage"`
}
