package models

import "time"

// Period is a quincena: the 1st through the 15th of a month, or the
// 16th through the last day. Periods are derived from dates, never
// stored as rows. Start is the first day at 00:00; End is exclusive
// (00:00 of the day after the last day).
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PeriodForDate returns the quincena containing t.
func PeriodForDate(t time.Time) Period {
	y, m, d := t.Date()
	loc := t.Location()
	if d <= 15 {
		return Period{
			Start: time.Date(y, m, 1, 0, 0, 0, 0, loc),
			End:   time.Date(y, m, 16, 0, 0, 0, 0, loc),
		}
	}
	return Period{
		Start: time.Date(y, m, 16, 0, 0, 0, 0, loc),
		End:   time.Date(y, m, 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0),
	}
}

// PeriodStartingAt returns the quincena whose first day contains t.
// Callers pass an arbitrary date; it is normalized to the period it
// falls in, so "2025-03-03" and "2025-03-15" name the same period.
func PeriodStartingAt(t time.Time) Period {
	return PeriodForDate(t)
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Next returns the quincena immediately after p.
func (p Period) Next() Period {
	return PeriodForDate(p.End)
}

// Equal reports whether two periods cover the same date range.
func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End)
}
