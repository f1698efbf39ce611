package domain

import "time"

// DateLayout is the calendar-date format used across all workbook sheets.
const DateLayout = "02/01/2006"

// Horizon is the ordered list of planning days. Index 0 is the first day of
// the plan; the state of the day before index 0 is carried separately as
// initial inventory on each record.
type Horizon struct {
	dates []time.Time
	index map[time.Time]int
}

// NewHorizon builds a horizon from an ordered list of days.
func NewHorizon(dates []time.Time) Horizon {
	idx := make(map[time.Time]int, len(dates))
	normalized := make([]time.Time, len(dates))
	for i, d := range dates {
		day := d.Truncate(24 * time.Hour)
		normalized[i] = day
		idx[day] = i
	}
	return Horizon{dates: normalized, index: idx}
}

// NewDailyHorizon builds a horizon of n consecutive days starting at start.
func NewDailyHorizon(start time.Time, n int) Horizon {
	dates := make([]time.Time, n)
	day := start.Truncate(24 * time.Hour)
	for i := range dates {
		dates[i] = day
		day = day.AddDate(0, 0, 1)
	}
	return NewHorizon(dates)
}

// Len returns the number of periods in the horizon.
func (h Horizon) Len() int { return len(h.dates) }

// Date returns the calendar date of period t.
func (h Horizon) Date(t int) time.Time { return h.dates[t] }

// Dates returns the ordered period dates.
func (h Horizon) Dates() []time.Time { return h.dates }

// Index returns the period index of a date and whether the date falls
// inside the horizon.
func (h Horizon) Index(d time.Time) (int, bool) {
	t, ok := h.index[d.Truncate(24*time.Hour)]
	return t, ok
}
