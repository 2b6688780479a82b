// Package analytics holds pure transformations over the full master table.
// None of them touch the disk or mutate their input.
package analytics

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-diary/internal/store"
	"github.com/i474232898/weather-diary/internal/weather"
)

// ErrNoHeader is returned when a table is built from a row store without a header row.
var ErrNoHeader = errors.New("row store has no header row")

// Table is an in-memory copy of a CSV table with named columns.
type Table struct {
	Columns []string
	Rows    [][]string
}

// FromStore builds a table from a row store whose first row is the header.
func FromStore(rs *store.RowStore) (*Table, error) {
	header, rows := rs.SplitHeader()
	if header == nil {
		return nil, fmt.Errorf("%s: %w", rs.Path, ErrNoHeader)
	}
	t := &Table{Columns: header.Record()}
	for _, row := range rows {
		t.Rows = append(t.Rows, row.Record())
	}
	return t, nil
}

// Column returns the position of name.
func (t *Table) Column(name string) (int, error) {
	for i, c := range t.Columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("unknown column %q", name)
}

func (t *Table) cell(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}

func (t *Table) clone() *Table {
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

func (t *Table) filter(keep func(row []string) (bool, error)) (*Table, error) {
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for _, row := range t.Rows {
		ok, err := keep(row)
		if err != nil {
			return nil, err
		}
		if ok {
			out.Rows = append(out.Rows, append([]string(nil), row...))
		}
	}
	return out, nil
}

// Rename replaces the header positionally.
func (t *Table) Rename(names []string) (*Table, error) {
	if len(names) != len(t.Columns) {
		return nil, fmt.Errorf("rename: got %d names for %d columns", len(names), len(t.Columns))
	}
	out := t.clone()
	copy(out.Columns, names)
	return out, nil
}

// missing reports cells the site leaves blank or marks with a dash.
func missing(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == "-" || v == "—"
}

// FillForward replaces missing cells with the last present value above them
// in the same column. Leading missing cells stay as they are.
func (t *Table) FillForward() *Table {
	out := t.clone()
	last := make([]string, len(out.Columns))
	seen := make([]bool, len(out.Columns))

	for _, row := range out.Rows {
		for c := range out.Columns {
			if c >= len(row) {
				break
			}
			if missing(row[c]) {
				if seen[c] {
					row[c] = last[c]
				}
				continue
			}
			last[c] = row[c]
			seen[c] = true
		}
	}
	return out
}

// ParseNumber reads a measurement cell. The site prints negatives with a
// unicode minus and sometimes a leading plus.
func ParseNumber(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if missing(v) {
		return 0, false
	}
	v = strings.ReplaceAll(v, "−", "-")
	v = strings.TrimPrefix(v, "+")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// CelsiusToFahrenheit converts one temperature.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// WithFahrenheit appends a column named name holding celsiusColumn converted
// to Fahrenheit. Rows whose Celsius cell is not a number get an empty cell.
func (t *Table) WithFahrenheit(celsiusColumn, name string) (*Table, error) {
	col, err := t.Column(celsiusColumn)
	if err != nil {
		return nil, err
	}

	out := t.clone()
	out.Columns = append(out.Columns, name)
	for i, row := range out.Rows {
		for len(row) < len(t.Columns) {
			row = append(row, "")
		}
		v := ""
		if c, ok := ParseNumber(t.cell(t.Rows[i], col)); ok {
			v = formatNumber(CelsiusToFahrenheit(c))
		}
		out.Rows[i] = append(row, v)
	}
	return out, nil
}

// FilterEqual keeps rows whose column equals value. Numbers compare by value,
// anything else as text.
func (t *Table) FilterEqual(column, value string) (*Table, error) {
	col, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	want, wantNum := ParseNumber(value)

	return t.filter(func(row []string) (bool, error) {
		v := t.cell(row, col)
		if wantNum {
			if got, ok := ParseNumber(v); ok {
				return got == want, nil
			}
		}
		return v == value, nil
	})
}

// FilterDateRange keeps rows whose date column lies in [start, end].
func (t *Table) FilterDateRange(column string, start, end time.Time) (*Table, error) {
	col, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	from, to := weather.Truncate(start), weather.Truncate(end)

	return t.filter(func(row []string) (bool, error) {
		d, err := weather.ParseDate(t.cell(row, col))
		if err != nil {
			return false, fmt.Errorf("filter by date: %w", err)
		}
		return !d.Before(from) && !d.After(to), nil
	})
}
