package core

import "fmt"

// OtherCategory names the synthetic bucket that absorbs low-ranked categories.
const OtherCategory = "Other"

// UncategorizedCategory names the bucket used under UncategorizedBucket.
const UncategorizedCategory = "Uncategorized"

// TopCategories is how many categories the rollup keeps before folding into Other.
const TopCategories = 3

// UncategorizedPolicy decides what the category breakdown does with
// expenses that carry no category.
type UncategorizedPolicy string

const (
	UncategorizedExclude UncategorizedPolicy = "exclude"
	UncategorizedBucket  UncategorizedPolicy = "bucket"
)

// ParseUncategorizedPolicy accepts "exclude" or "bucket".
func ParseUncategorizedPolicy(s string) (UncategorizedPolicy, error) {
	switch p := UncategorizedPolicy(s); p {
	case UncategorizedExclude, UncategorizedBucket:
		return p, nil
	default:
		return "", fmt.Errorf("unknown uncategorized policy %q", s)
	}
}

type (
	// Totals for one window. Income is never negative, Expenses never positive.
	Totals struct {
		Income    int64
		Expenses  int64
		Remaining int64
	}

	// DailyBucket holds one day of activity. Missing days are zero-filled.
	DailyBucket struct {
		Date     Date
		Income   int64
		Expenses int64
	}

	// CategoryValue is a category's expense magnitude in cents.
	CategoryValue struct {
		Name  string
		Value int64
	}

	// Summary is the composed result for a window and its predecessor.
	Summary struct {
		Window          Window
		PreviousWindow  Window
		Current         Totals
		Previous        Totals
		IncomeChange    float64
		ExpensesChange  float64
		RemainingChange float64
		Categories      []CategoryValue
		Days            []DailyBucket
	}
)

// ChangePct returns the signed percentage change from previous to current.
// A zero baseline yields 0 when nothing changed and 100 otherwise.
func ChangePct(current, previous int64) float64 {
	if previous == 0 {
		if current == previous {
			return 0
		}
		return 100
	}
	return float64(current-previous) / float64(previous) * 100
}

// RollupCategories keeps the first TopCategories rows of a list already
// ordered by descending value and folds the rest into an Other row.
func RollupCategories(rows []CategoryValue) []CategoryValue {
	if len(rows) <= TopCategories {
		out := make([]CategoryValue, len(rows))
		copy(out, rows)
		return out
	}

	out := make([]CategoryValue, 0, TopCategories+1)
	out = append(out, rows[:TopCategories]...)

	var rest int64
	for _, r := range rows[TopCategories:] {
		rest += r.Value
	}
	return append(out, CategoryValue{Name: OtherCategory, Value: rest})
}

// FillDays expands sparse per-day rows into one bucket per day of w.
// No activity at all yields an empty series rather than a run of zero days.
func FillDays(sparse []DailyBucket, w Window) []DailyBucket {
	if len(sparse) == 0 {
		return []DailyBucket{}
	}

	byDay := make(map[string]DailyBucket, len(sparse))
	for _, b := range sparse {
		byDay[b.Date.String()] = b
	}

	days := w.Days()
	out := make([]DailyBucket, 0, len(days))
	for _, d := range days {
		if b, ok := byDay[d.String()]; ok {
			b.Date = d
			out = append(out, b)
			continue
		}
		out = append(out, DailyBucket{Date: d})
	}
	return out
}

// Compose assembles a Summary from the four aggregate reads.
func Compose(w Window, current, previous Totals, categories []CategoryValue, days []DailyBucket) Summary {
	return Summary{
		Window:          w,
		PreviousWindow:  w.Previous(),
		Current:         current,
		Previous:        previous,
		IncomeChange:    ChangePct(current.Income, previous.Income),
		ExpensesChange:  ChangePct(current.Expenses, previous.Expenses),
		RemainingChange: ChangePct(current.Remaining, previous.Remaining),
		Categories:      RollupCategories(categories),
		Days:            FillDays(days, w),
	}
}
