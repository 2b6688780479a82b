package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aclements/go-moremath/stats"

	"github.com/i474232898/weather-diary/internal/weather"
)

// ColumnStats is the descriptive summary of one numeric column. Cells that
// are not numbers are not counted. With fewer than two values Std is 0
// rather than NaN, so the summary always encodes as JSON; with no values
// every statistic is 0. Quartiles interpolate linearly between the closest
// ranks.
type ColumnStats struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Q50    float64 `json:"q50"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

func (t *Table) values(col int) []float64 {
	var xs []float64
	for _, row := range t.Rows {
		if v, ok := ParseNumber(t.cell(row, col)); ok {
			xs = append(xs, v)
		}
	}
	return xs
}

func describe(name string, xs []float64) ColumnStats {
	cs := ColumnStats{Column: name, Count: len(xs)}
	if len(xs) == 0 {
		return cs
	}

	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	s := stats.Sample{Xs: sorted, Sorted: true}

	cs.Mean = s.Mean()
	if len(xs) > 1 {
		cs.Std = s.StdDev()
	}
	cs.Min, cs.Max = s.Bounds()
	cs.Q25 = quantile(sorted, 0.25)
	cs.Q50 = quantile(sorted, 0.5)
	cs.Q75 = quantile(sorted, 0.75)
	return cs
}

// quantile returns the p-quantile of the sorted, non-empty xs using linear
// interpolation at rank (n-1)*p.
func quantile(xs []float64, p float64) float64 {
	h := float64(len(xs)-1) * p
	lo := math.Floor(h)
	hi := math.Ceil(h)
	return xs[int(lo)] + (h-lo)*(xs[int(hi)]-xs[int(lo)])
}

// Describe computes descriptive statistics for the given columns.
func (t *Table) Describe(columns ...string) ([]ColumnStats, error) {
	out := make([]ColumnStats, 0, len(columns))
	for _, name := range columns {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		out = append(out, describe(name, t.values(col)))
	}
	return out, nil
}

// MonthlyMean holds the mean of each requested column for one calendar month.
type MonthlyMean struct {
	Month time.Month         `json:"month"`
	Means map[string]float64 `json:"means"`
}

// MonthlyMeans groups rows by calendar month of dateColumn (across years)
// and averages the given columns. Months come out in calendar order.
func (t *Table) MonthlyMeans(dateColumn string, columns ...string) ([]MonthlyMean, error) {
	dcol, err := t.Column(dateColumn)
	if err != nil {
		return nil, err
	}
	cols := make([]int, len(columns))
	for i, name := range columns {
		if cols[i], err = t.Column(name); err != nil {
			return nil, err
		}
	}

	type acc struct {
		sum []float64
		n   []int
	}
	groups := make(map[time.Month]*acc)

	for _, row := range t.Rows {
		d, err := weather.ParseDate(t.cell(row, dcol))
		if err != nil {
			return nil, fmt.Errorf("monthly means: %w", err)
		}
		a, ok := groups[d.Month()]
		if !ok {
			a = &acc{sum: make([]float64, len(cols)), n: make([]int, len(cols))}
			groups[d.Month()] = a
		}
		for i, c := range cols {
			if v, ok := ParseNumber(t.cell(row, c)); ok {
				a.sum[i] += v
				a.n[i]++
			}
		}
	}

	var out []MonthlyMean
	for m := time.January; m <= time.December; m++ {
		a, ok := groups[m]
		if !ok {
			continue
		}
		mm := MonthlyMean{Month: m, Means: make(map[string]float64, len(columns))}
		for i, name := range columns {
			if a.n[i] > 0 {
				mm.Means[name] = a.sum[i] / float64(a.n[i])
			}
		}
		out = append(out, mm)
	}
	return out, nil
}

// MonthSummary is the mean and median of one column over one month of one year.
type MonthSummary struct {
	Year   int        `json:"year"`
	Month  time.Month `json:"month"`
	Column string     `json:"column"`
	Days   int        `json:"days"`
	Mean   float64    `json:"mean"`
	Median float64    `json:"median"`
}

// SummarizeMonth computes the mean and median of column for the rows of
// dateColumn falling in the given month.
func (t *Table) SummarizeMonth(dateColumn, column string, year int, month time.Month) (MonthSummary, error) {
	m := weather.Month{Year: year, Month: month}
	start := m.Day(1)
	end := m.Next().Day(1).AddDate(0, 0, -1)

	sub, err := t.FilterDateRange(dateColumn, start, end)
	if err != nil {
		return MonthSummary{}, err
	}
	col, err := sub.Column(column)
	if err != nil {
		return MonthSummary{}, err
	}

	cs := describe(column, sub.values(col))
	return MonthSummary{
		Year:   year,
		Month:  month,
		Column: column,
		Days:   cs.Count,
		Mean:   cs.Mean,
		Median: cs.Q50,
	}, nil
}
