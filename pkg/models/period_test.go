package models

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodForDate_FirstHalf(t *testing.T) {
	p := PeriodForDate(date(2026, time.March, 10))

	if !p.Start.Equal(date(2026, time.March, 1)) {
		t.Errorf("Expected start March 1, got %s", p.Start)
	}
	if !p.End.Equal(date(2026, time.March, 16)) {
		t.Errorf("Expected end March 16, got %s", p.End)
	}
}

func TestPeriodForDate_SecondHalf(t *testing.T) {
	p := PeriodForDate(date(2026, time.March, 16))

	if !p.Start.Equal(date(2026, time.March, 16)) {
		t.Errorf("Expected start March 16, got %s", p.Start)
	}
	if !p.End.Equal(date(2026, time.April, 1)) {
		t.Errorf("Expected end April 1, got %s", p.End)
	}
}

func TestPeriodForDate_February(t *testing.T) {
	p := PeriodForDate(date(2026, time.February, 28))

	if !p.Start.Equal(date(2026, time.February, 16)) {
		t.Errorf("Expected start February 16, got %s", p.Start)
	}
	if !p.End.Equal(date(2026, time.March, 1)) {
		t.Errorf("Expected end March 1, got %s", p.End)
	}

	// leap year
	p = PeriodForDate(date(2028, time.February, 29))
	if !p.End.Equal(date(2028, time.March, 1)) {
		t.Errorf("Expected end March 1, got %s", p.End)
	}
}

func TestPeriodContains(t *testing.T) {
	p := PeriodForDate(date(2026, time.March, 10))

	if !p.Contains(p.Start) {
		t.Error("Expected start to be contained")
	}
	if !p.Contains(date(2026, time.March, 15)) {
		t.Error("Expected March 15 to be contained")
	}
	if p.Contains(p.End) {
		t.Error("Expected end to be exclusive")
	}
	if p.Contains(date(2026, time.February, 28)) {
		t.Error("Expected February 28 to be outside")
	}

	// the last instant of the 15th still belongs to the first half
	lastInstant := time.Date(2026, time.March, 15, 23, 59, 59, 0, time.UTC)
	if !p.Contains(lastInstant) {
		t.Error("Expected end of March 15 to be contained")
	}
}

func TestPeriodNext(t *testing.T) {
	p := PeriodForDate(date(2026, time.March, 10))

	next := p.Next()
	if !next.Start.Equal(date(2026, time.March, 16)) {
		t.Errorf("Expected next start March 16, got %s", next.Start)
	}

	// crossing a year boundary
	p = PeriodForDate(date(2026, time.December, 20))
	next = p.Next()
	if !next.Start.Equal(date(2027, time.January, 1)) {
		t.Errorf("Expected next start January 1, got %s", next.Start)
	}
	if !next.End.Equal(date(2027, time.January, 16)) {
		t.Errorf("Expected next end January 16, got %s", next.End)
	}
}

func TestPeriodEqual(t *testing.T) {
	a := PeriodForDate(date(2026, time.March, 3))
	b := PeriodForDate(date(2026, time.March, 15))
	c := PeriodForDate(date(2026, time.March, 16))

	if !a.Equal(b) {
		t.Error("Expected dates in the same quincena to share a period")
	}
	if a.Equal(c) {
		t.Error("Expected different halves to differ")
	}
}
