package lookup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-diary/internal/partition"
	"github.com/i474232898/weather-diary/internal/store"
	"github.com/i474232898/weather-diary/internal/weather"
)

func day(s string) time.Time {
	d, err := weather.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func masterRows() []store.Row {
	return []store.Row{
		{Date: "date", Fields: []string{"temp", "pressure"}},
		{Date: "2022-12-30", Fields: []string{"-3", "750"}},
		{Date: "2023-01-01", Fields: []string{"10", "745"}},
		{Date: "2023-01-02", Fields: []string{"11", "746"}},
		{Date: "2023-01-08", Fields: []string{"12", "748"}},
	}
}

// setup writes a master CSV, partitions it and returns the master path and layout.
func setup(t *testing.T) (string, partition.Layout) {
	t.Helper()
	root := t.TempDir()
	masterPath := filepath.Join(root, "dataset.csv")

	rows := masterRows()
	records := make([][]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		records = append(records, r.Record())
	}
	require.NoError(t, store.WriteFile(masterPath, rows[0].Record(), records))

	layout := partition.Layout{Root: root}
	rs, err := store.Load(masterPath)
	require.NoError(t, err)
	_, err = partition.New(layout, nil).Rebuild(rs)
	require.NoError(t, err)
	return masterPath, layout
}

func TestLinearAndIndex(t *testing.T) {
	masterPath, _ := setup(t)

	fields, ok, err := Linear(masterPath, day("2023-01-02"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"11", "746"}, fields)

	i, ok, err := Index(masterPath, day("2023-01-02"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, i)

	_, ok, err = Linear(masterPath, day("2023-01-03"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLinear_MissingFileIsError(t *testing.T) {
	_, _, err := Linear(filepath.Join(t.TempDir(), "missing.csv"), day("2023-01-01"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestEveryStrategyReturnsTheMasterFields(t *testing.T) {
	masterPath, layout := setup(t)

	for _, s := range []Strategy{StrategyMaster, StrategyYear, StrategyWeek, StrategySplit} {
		find := s.Finder(masterPath, layout)
		for _, r := range masterRows()[1:] {
			fields, ok, err := find(day(r.Date))
			require.NoError(t, err, "%s %s", s, r.Date)
			require.True(t, ok, "%s %s", s, r.Date)
			assert.Equal(t, r.Fields, fields, "%s %s", s, r.Date)
		}

		_, ok, err := find(day("2023-01-05"))
		require.NoError(t, err)
		assert.False(t, ok, "%s found a date that is not stored", s)
	}
}

func TestByYear_NoPartitionForYear(t *testing.T) {
	_, layout := setup(t)

	_, ok, err := ByYear(layout.YearDir(), day("2019-07-01"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPartitionsAreNotLive(t *testing.T) {
	masterPath, layout := setup(t)
	require.NoError(t, store.Append(masterPath, nil, []store.Row{{Date: "2023-01-09", Fields: []string{"13", "749"}}}))

	_, ok, err := Linear(masterPath, day("2023-01-09"))
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = ByYear(layout.YearDir(), day("2023-01-09"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = ByWeek(layout.WeekDir(), day("2023-01-09"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = SplitColumns(layout, day("2023-01-09"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestByWeek_ScansNamesWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, store.WriteFile(filepath.Join(dir, "20230102_20230108.csv"), nil,
		[][]string{{"2023-01-04", "w1"}}))
	require.NoError(t, store.WriteFile(filepath.Join(dir, "20230109_20230115.csv"), nil,
		[][]string{{"2023-01-09", "w2"}}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))

	fields, ok, err := ByWeek(dir, day("2023-01-04"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"w1"}, fields)

	fields, ok, err = ByWeek(dir, day("2023-01-09"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"w2"}, fields)

	// In range of the first file but not stored there.
	_, ok, err = ByWeek(dir, day("2023-01-08"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestByWeek_SelectedFileContainsDate(t *testing.T) {
	_, layout := setup(t)

	m, ok, err := partition.LoadManifest(layout.WeekDir())
	require.NoError(t, err)
	require.True(t, ok)

	for _, e := range m.Index {
		start, end, ok := parseWeekName(e.File)
		require.True(t, ok, e.File)
		d := day(e.Date)
		assert.False(t, d.Before(start), e.File)
		assert.False(t, d.After(end), e.File)
	}
}

func TestByYear_ScansNamesWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, store.WriteFile(filepath.Join(dir, "2021_diary.csv"), []string{"date", "t"},
		[][]string{{"2021-03-01", "7"}}))

	fields, ok, err := ByYear(dir, day("2021-03-01"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"7"}, fields)
}

func TestByYear_MissingDirectoryIsNotFound(t *testing.T) {
	_, ok, err := ByYear(filepath.Join(t.TempDir(), "absent"), day("2021-03-01"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSplitColumns_DetectsLengthMismatch(t *testing.T) {
	_, layout := setup(t)
	require.NoError(t, store.WriteFile(layout.DataPath(), nil, [][]string{{"0", "-3", "750"}}))

	_, _, err := SplitColumns(layout, day("2023-01-01"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDesync))
}

func TestSplitColumns_DetectsSequenceMismatch(t *testing.T) {
	_, layout := setup(t)
	require.NoError(t, store.WriteFile(layout.DataPath(), nil, [][]string{
		{"0", "-3", "750"},
		{"2", "11", "746"},
		{"1", "10", "745"},
		{"3", "12", "748"},
	}))

	_, _, err := SplitColumns(layout, day("2023-01-01"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDesync))
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyMaster, s)

	s, err = ParseStrategy("week")
	require.NoError(t, err)
	assert.Equal(t, StrategyWeek, s)

	_, err = ParseStrategy("month")
	assert.Error(t, err)
}

func TestParseWeekName(t *testing.T) {
	start, end, ok := parseWeekName("20230102_20230108.csv")
	require.True(t, ok)
	assert.Equal(t, day("2023-01-02"), start)
	assert.Equal(t, day("2023-01-08"), end)

	for _, name := range []string{"2023.csv", "20230102-20230108.csv", "2023010x_20230108.csv", "index.json"} {
		_, _, ok := parseWeekName(name)
		assert.False(t, ok, name)
	}
}
