package watch

import (
	"fmt"
	"sync"
	"time"
)

// Day is a calendar date in the configured timezone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar date of t in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

func (d Day) String() string { return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day) }

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool { return d == Day{} }

// DayTracker holds the current local day and detects rollovers.
type DayTracker struct {
	loc *time.Location

	mu      sync.RWMutex
	current Day
}

// NewDayTracker starts tracking at the day containing now.
func NewDayTracker(loc *time.Location, now time.Time) *DayTracker {
	if loc == nil {
		loc = time.UTC
	}
	return &DayTracker{loc: loc, current: DayOf(now, loc)}
}

// Check moves the tracker to the day containing now. It returns the current day
// and whether it differs from the previous one.
func (d *DayTracker) Check(now time.Time) (Day, bool) {
	today := DayOf(now, d.loc)
	d.mu.Lock()
	defer d.mu.Unlock()
	if today == d.current {
		return today, false
	}
	d.current = today
	return today, true
}

// Today returns the current day without evaluating the clock.
func (d *DayTracker) Today() Day {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

// Location returns the tracker's timezone.
func (d *DayTracker) Location() *time.Location { return d.loc }

// DailyCounter counts changes for one resource on one day.
type DailyCounter struct {
	Date  Day
	Count uint
}

// On returns the counter as seen on today: a counter dated another day reads as zero.
func (c DailyCounter) On(today Day) DailyCounter {
	if c.Date != today {
		return DailyCounter{Date: today}
	}
	return c
}
