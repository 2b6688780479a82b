package weather

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the canonical date representation in every row store.
	DateLayout = "2006-01-02"

	// CompactDateLayout is used in week partition file names.
	CompactDateLayout = "20060102"
)

// MasterColumns is the header of the master CSV produced by the scraper.
var MasterColumns = []string{
	"date",
	"temp_morning",
	"pressure_morning",
	"wind_morning",
	"temp_evening",
	"pressure_evening",
	"wind_evening",
}

// DiaryRecord is one day of the weather diary as published by the site.
// Values are kept as the text shown on the page.
type DiaryRecord struct {
	Date            time.Time `json:"date"` // always UTC midnight
	TempMorning     string    `json:"tempMorning"`
	PressureMorning string    `json:"pressureMorning"`
	WindMorning     string    `json:"windMorning"`
	TempEvening     string    `json:"tempEvening"`
	PressureEvening string    `json:"pressureEvening"`
	WindEvening     string    `json:"windEvening"`
}

// Fields returns the measurement values in master column order.
func (r DiaryRecord) Fields() []string {
	return []string{
		r.TempMorning,
		r.PressureMorning,
		r.WindMorning,
		r.TempEvening,
		r.PressureEvening,
		r.WindEvening,
	}
}

// Month identifies one diary page.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

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

// After reports whether m is strictly later than o.
func (m Month) After(o Month) bool {
	if m.Year != o.Year {
		return m.Year > o.Year
	}
	return m.Month > o.Month
}

// Day builds the UTC date for a day of this month.
func (m Month) Day(day int) time.Time {
	return time.Date(m.Year, m.Month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a canonical YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders t in the canonical layout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Truncate drops the time of day, keeping the calendar date in UTC.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b string) (int, error) {
	from, err := ParseDate(a)
	if err != nil {
		return 0, err
	}
	to, err := ParseDate(b)
	if err != nil {
		return 0, err
	}
	return int(to.Sub(from).Hours() / 24), nil
}
