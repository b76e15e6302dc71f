// Package period computes the half-open time windows that budget spend is measured over.
package period

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"spendsmart/internal/logger"
)

const (
	minYear = 2000
	maxYear = 2100
)

var monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ErrInvalidMonth is returned by ParseMonth for malformed or out-of-range months.
var ErrInvalidMonth = errors.New("month must be YYYY-MM with year 2000-2100 and month 01-12")

// Month is a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	if !monthPattern.MatchString(s) {
		return Month{}, ErrInvalidMonth
	}
	year, _ := strconv.Atoi(s[:4])
	mon, _ := strconv.Atoi(s[5:])
	if year < minYear || year > maxYear || mon < 1 || mon > 12 {
		return Month{}, ErrInvalidMonth
	}
	return Month{Year: year, Month: time.Month(mon)}, nil
}

// String formats m as "YYYY-MM".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Calculator resolves months to windows in a fixed location.
type Calculator struct {
	loc *time.Location
}

// NewCalculator returns a Calculator for loc. A nil loc means UTC.
func NewCalculator(loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{loc: loc}
}

// Location returns the calculator's time zone.
func (c *Calculator) Location() *time.Location {
	return c.loc
}

// MonthOf returns the calendar month t falls in.
func (c *Calculator) MonthOf(t time.Time) Month {
	local := t.In(c.loc)
	return Month{Year: local.Year(), Month: local.Month()}
}

// MonthWindow returns the full calendar month as a window.
func (c *Calculator) MonthWindow(m Month) Window {
	return Window{
		Start: time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, c.loc),
		End:   time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, c.loc),
	}
}

// Window returns the spend window for m. When anchor lies inside the month the
// window starts at the anchor instant; otherwise it starts at the month start.
// A nil anchor is absent. A zero anchor is malformed and is ignored with a warning.
func (c *Calculator) Window(m Month, anchor *time.Time) Window {
	w := c.MonthWindow(m)
	if anchor == nil {
		return w
	}
	if anchor.IsZero() {
		logger.Get().Warnw("ignoring malformed period anchor", "month", m.String())
		return w
	}
	if w.Contains(*anchor) {
		w.Start = *anchor
	}
	return w
}
