// Package lookup finds the row of a given date in the master row store or in
// one of its partitionings. Every call re-reads the files it needs.
//
// All lookups report a missing date as found == false with a nil error;
// errors are reserved for IO failures, malformed files and misaligned
// column splits.
package lookup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-diary/internal/partition"
	"github.com/i474232898/weather-diary/internal/store"
	"github.com/i474232898/weather-diary/internal/weather"
)

// ErrDesync is returned when the date and data halves of a column split no
// longer describe the same rows.
var ErrDesync = errors.New("date and data partitions are out of sync")

// Finder looks up the measurement fields of one date.
type Finder func(date time.Time) ([]string, bool, error)

// Linear scans the row store at path top to bottom.
func Linear(path string, date time.Time) ([]string, bool, error) {
	rs, err := store.Load(path)
	if err != nil {
		return nil, false, err
	}
	row, ok := rs.Find(weather.FormatDate(date))
	if !ok {
		return nil, false, nil
	}
	return row.Fields, true, nil
}

// Index returns the zero-based position of date in the row store at path.
func Index(path string, date time.Time) (int, bool, error) {
	rs, err := store.Load(path)
	if err != nil {
		return -1, false, err
	}
	i, ok := rs.IndexOf(weather.FormatDate(date))
	return i, ok, nil
}

// ByYear looks date up in the year partitions stored in dir.
func ByYear(dir string, date time.Time) ([]string, bool, error) {
	year := strconv.Itoa(date.Year())
	return byPartition(dir, date, func(name string) bool {
		return len(name) >= 4 && name[:4] == year
	})
}

// ByWeek looks date up in the week partitions stored in dir.
func ByWeek(dir string, date time.Time) ([]string, bool, error) {
	day := weather.Truncate(date)
	return byPartition(dir, date, func(name string) bool {
		start, end, ok := parseWeekName(name)
		return ok && !day.Before(start) && !day.After(end)
	})
}

// byPartition selects the partition holding date through the directory
// manifest. Directories without a manifest fall back to the first file, in
// name order, accepted by match.
func byPartition(dir string, date time.Time, match func(name string) bool) ([]string, bool, error) {
	m, ok, err := partition.LoadManifest(dir)
	if err != nil {
		return nil, false, err
	}

	var file string
	if ok {
		file, ok = m.Locate(weather.FormatDate(date))
	} else {
		file, ok, err = scan(dir, match)
		if err != nil {
			return nil, false, err
		}
	}
	if !ok {
		return nil, false, nil
	}

	return Linear(filepath.Join(dir, file), date)
}

func scan(dir string, match func(name string) bool) (string, bool, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("list partitions: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if match(name) {
			return name, true, nil
		}
	}
	return "", false, nil
}

// parseWeekName decodes <start:YYYYMMDD>_<end:YYYYMMDD>.csv.
func parseWeekName(name string) (time.Time, time.Time, bool) {
	if len(name) < 17 || name[8] != '_' {
		return time.Time{}, time.Time{}, false
	}
	start, err := time.Parse(weather.CompactDateLayout, name[:8])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(weather.CompactDateLayout, name[9:17])
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// SplitColumns finds date in the date half of a column split and returns the
// data row at the same position. Both halves carry the row sequence number
// in their first column; any mismatch is reported as ErrDesync.
func SplitColumns(layout partition.Layout, date time.Time) ([]string, bool, error) {
	dates, err := store.Load(layout.DatePath())
	if err != nil {
		return nil, false, err
	}

	want := weather.FormatDate(date)
	pos := -1
	for i, row := range dates.Rows {
		if len(row.Fields) == 0 {
			return nil, false, &store.ParseError{Path: dates.Path, Line: i + 1, Err: errors.New("missing date components")}
		}
		if strings.Join(row.Fields, "-") == want {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, false, nil
	}

	data, err := store.Load(layout.DataPath())
	if err != nil {
		return nil, false, err
	}
	if len(data.Rows) != len(dates.Rows) {
		return nil, false, fmt.Errorf("%w: %d date rows, %d data rows", ErrDesync, len(dates.Rows), len(data.Rows))
	}
	if got, exp := data.Rows[pos].Date, dates.Rows[pos].Date; got != exp {
		return nil, false, fmt.Errorf("%w: row %d has sequence %q in %s and %q in %s",
			ErrDesync, pos, exp, partition.DateFile, got, partition.DataFile)
	}
	return data.Rows[pos].Fields, true, nil
}
