package core

import (
	"math"
	"strconv"
	"time"
)

// baseWeeklyBudget anchors the per-group message budget at 56 headers for a
// 7-day window (8 per day). The budget scales linearly with the day count,
// so month/week budgets keep the exact 30/7 ratio.
const baseWeeklyBudget = 56

// PeriodDays maps a period keyword or integer day count to days.
// Recognized keywords are "week" (7) and "month" (30).
func PeriodDays(period string) (int, error) {
	switch period {
	case "week":
		return 7, nil
	case "month":
		return 30, nil
	}
	days, err := strconv.Atoi(period)
	if err != nil {
		return 0, NewValidationError("invalid period %q: want week, month or a day count", period)
	}
	if days <= 0 {
		return 0, NewValidationError("invalid period %q: day count must be positive", period)
	}
	return days, nil
}

// ResolveWindow turns a period into a cutoff timestamp and a per-group
// message budget relative to now.
func ResolveWindow(period string, now time.Time) (SearchWindow, error) {
	days, err := PeriodDays(period)
	if err != nil {
		return SearchWindow{}, err
	}
	return SearchWindow{
		Cutoff:         now.AddDate(0, 0, -days),
		PerGroupBudget: int(math.Round(baseWeeklyBudget * float64(days) / 7.0)),
		Days:           days,
	}, nil
}
