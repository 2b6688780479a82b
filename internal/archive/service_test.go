package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-diary/internal/lookup"
	"github.com/i474232898/weather-diary/internal/partition"
	"github.com/i474232898/weather-diary/internal/weather"
)

// fakeSource serves canned records per month and fails for months listed in fail.
type fakeSource struct {
	months map[weather.Month][]weather.DiaryRecord
	fail   map[weather.Month]bool
	calls  []weather.Month
	during func()
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchMonth(ctx context.Context, m weather.Month) ([]weather.DiaryRecord, error) {
	f.calls = append(f.calls, m)
	if f.during != nil {
		f.during()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.fail[m] {
		return nil, errors.New("upstream unavailable")
	}
	return f.months[m], nil
}

func record(m weather.Month, day int, temp string) weather.DiaryRecord {
	return weather.DiaryRecord{
		Date:            m.Day(day),
		TempMorning:     temp,
		PressureMorning: "750",
		WindMorning:     "С 1м/с",
		TempEvening:     temp,
		PressureEvening: "751",
		WindEvening:     "Ш",
	}
}

var (
	jan = weather.Month{Year: 2023, Month: time.January}
	feb = weather.Month{Year: 2023, Month: time.February}
	mar = weather.Month{Year: 2023, Month: time.March}
)

func newTestService(t *testing.T, src weather.Source) *Service {
	t.Helper()
	root := t.TempDir()
	return NewService(src, filepath.Join(root, "dataset.csv"), partition.Layout{Root: root}, nil)
}

func TestScrape_AppendsInDateOrderAndSkipsFailedMonths(t *testing.T) {
	src := &fakeSource{
		months: map[weather.Month][]weather.DiaryRecord{
			jan: {record(jan, 2, "-4"), record(jan, 1, "-3")},
			mar: {record(mar, 1, "2")},
		},
		fail: map[weather.Month]bool{feb: true},
	}
	s := newTestService(t, src)

	report, err := s.Scrape(context.Background(), jan, mar)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Months)
	assert.Equal(t, 3, report.Appended)
	assert.Equal(t, []string{"2023-02"}, report.Failed)
	assert.Equal(t, []weather.Month{jan, feb, mar}, src.calls)

	b, err := os.ReadFile(s.MasterPath())
	require.NoError(t, err)
	assert.Equal(t,
		"date,temp_morning,pressure_morning,wind_morning,temp_evening,pressure_evening,wind_evening\n"+
			"2023-01-01,-3,750,С 1м/с,-3,751,Ш\n"+
			"2023-01-02,-4,750,С 1м/с,-4,751,Ш\n"+
			"2023-03-01,2,750,С 1м/с,2,751,Ш\n",
		string(b))
}

func TestScrape_RerunDoesNotDuplicate(t *testing.T) {
	src := &fakeSource{months: map[weather.Month][]weather.DiaryRecord{jan: {record(jan, 1, "1")}}}
	s := newTestService(t, src)

	_, err := s.Scrape(context.Background(), jan, jan)
	require.NoError(t, err)

	src.months[jan] = append(src.months[jan], record(jan, 2, "2"))
	report, err := s.Scrape(context.Background(), jan, jan)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Appended)
	assert.Equal(t, 1, report.Skipped)

	table, err := s.Table()
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)
}

func TestScrape_InvalidInput(t *testing.T) {
	_, err := newTestService(t, nil).Scrape(context.Background(), jan, jan)
	assert.Error(t, err)

	_, err = newTestService(t, &fakeSource{}).Scrape(context.Background(), mar, jan)
	assert.Error(t, err)
}

func TestScrape_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestService(t, &fakeSource{}).Scrape(ctx, jan, mar)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRefresh_RebuildsPartitions(t *testing.T) {
	src := &fakeSource{months: map[weather.Month][]weather.DiaryRecord{
		jan: {record(jan, 1, "-3"), record(jan, 9, "-8")},
	}}
	s := newTestService(t, src)

	_, err := s.Refresh(context.Background(), jan, jan)
	require.NoError(t, err)

	date := jan.Day(9)
	for _, strategy := range []lookup.Strategy{lookup.StrategyMaster, lookup.StrategyYear, lookup.StrategyWeek, lookup.StrategySplit} {
		fields, ok, err := s.Lookup(date, strategy)
		require.NoError(t, err, strategy)
		require.True(t, ok, strategy)
		assert.Equal(t, "-8", fields[0], strategy)
	}

	days, err := s.Range(jan.Day(1), jan.Day(31), lookup.StrategyWeek)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, jan.Day(1), days[0].Date)
	assert.Equal(t, jan.Day(9), days[1].Date)
}

func TestLookup_BeforeAnyScrape(t *testing.T) {
	s := newTestService(t, nil)

	_, _, err := s.Lookup(jan.Day(1), lookup.StrategyMaster)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, ok, err := s.Lookup(jan.Day(1), lookup.StrategyWeek)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Partition()
	assert.Error(t, err)
}

func TestScrape_LookupsAreServedWhileFetching(t *testing.T) {
	src := &fakeSource{months: map[weather.Month][]weather.DiaryRecord{
		jan: {record(jan, 1, "1")},
		feb: {record(feb, 1, "2")},
	}}
	s := newTestService(t, src)
	_, err := s.Scrape(context.Background(), jan, jan)
	require.NoError(t, err)

	var served int
	src.during = func() {
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, ok, err := s.Lookup(jan.Day(1), lookup.StrategyMaster)
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
		select {
		case <-done:
			served++
		case <-time.After(2 * time.Second):
			t.Error("lookup blocked while the diary was being fetched")
		}
	}

	report, err := s.Scrape(context.Background(), jan, feb)
	require.NoError(t, err)
	assert.Equal(t, 2, served)
	assert.Equal(t, 1, report.Appended)
	assert.Equal(t, 1, report.Skipped)
}
