package partition

import (
	"fmt"
	"strconv"
	"time"

	"github.com/i474232898/weather-diary/internal/store"
	"github.com/i474232898/weather-diary/internal/weather"
)

// Group is a set of rows that land in the same partition file.
type Group struct {
	Key   string
	Start time.Time // earliest date in the group
	End   time.Time // latest date in the group
	Rows  []store.Row
}

// YearFileName is named so that its first four characters are the year.
func (g Group) YearFileName() string {
	return g.Key + ".csv"
}

// WeekFileName encodes the span of dates seen in the group.
func (g Group) WeekFileName() string {
	return g.Start.Format(weather.CompactDateLayout) + "_" + g.End.Format(weather.CompactDateLayout) + ".csv"
}

// ByYear groups rows by calendar year, in first-seen order.
func ByYear(rows []store.Row) ([]Group, error) {
	return groupBy(rows, func(d time.Time) string {
		return strconv.Itoa(d.Year())
	})
}

// ByWeek groups rows by ISO year and ISO week, in first-seen order. Keying on
// the ISO year keeps week 1 of different years apart.
func ByWeek(rows []store.Row) ([]Group, error) {
	return groupBy(rows, func(d time.Time) string {
		y, w := d.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	})
}

func groupBy(rows []store.Row, key func(time.Time) string) ([]Group, error) {
	var groups []Group
	pos := make(map[string]int)

	for i, row := range rows {
		d, err := weather.ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date %q: %w", i, row.Date, err)
		}
		row.Date = weather.FormatDate(d)

		k := key(d)
		idx, ok := pos[k]
		if !ok {
			idx = len(groups)
			pos[k] = idx
			groups = append(groups, Group{Key: k, Start: d, End: d})
		}

		g := &groups[idx]
		if d.Before(g.Start) {
			g.Start = d
		}
		if d.After(g.End) {
			g.End = d
		}
		g.Rows = append(g.Rows, row)
	}

	return groups, nil
}
