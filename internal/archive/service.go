package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/weather-diary/internal/analytics"
	"github.com/i474232898/weather-diary/internal/lookup"
	"github.com/i474232898/weather-diary/internal/partition"
	"github.com/i474232898/weather-diary/internal/store"
	"github.com/i474232898/weather-diary/internal/weather"
)

// Service owns the master row store and its partitions. Writers (the append
// step of a scrape, rebuild) hold the write lock; lookups and analytics hold
// the read lock.
type Service struct {
	mu sync.RWMutex

	source      weather.Source
	masterPath  string
	layout      partition.Layout
	partitioner *partition.Partitioner
	logger      *zap.Logger
}

// NewService creates a new Service. source may be nil when the service is
// only used for reading.
func NewService(source weather.Source, masterPath string, layout partition.Layout, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source:      source,
		masterPath:  masterPath,
		layout:      layout,
		partitioner: partition.New(layout, logger),
		logger:      logger,
	}
}

func (s *Service) MasterPath() string {
	return s.masterPath
}

func (s *Service) Layout() partition.Layout {
	return s.layout
}

// ScrapeReport summarises one scrape run.
type ScrapeReport struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Months   int      `json:"months"`
	Fetched  int      `json:"fetched"`
	Appended int      `json:"appended"`
	Skipped  int      `json:"skipped"`
	Failed   []string `json:"failed,omitempty"`
}

// Scrape fetches every month from..to inclusive and appends the days not yet
// in the master. A month that cannot be fetched or parsed contributes no rows
// and does not stop the run; only cancellation and write failures do.
// Fetching happens without holding the lock, so lookups keep being served
// while the site is slow.
func (s *Service) Scrape(ctx context.Context, from, to weather.Month) (ScrapeReport, error) {
	report := ScrapeReport{From: from.String(), To: to.String()}

	if s.source == nil {
		return report, fmt.Errorf("no diary source configured")
	}
	if from.After(to) {
		return report, fmt.Errorf("scrape range %s..%s is empty", from, to)
	}

	s.logger.Info("scrape: starting",
		zap.String("source", s.source.Name()),
		zap.String("from", report.From),
		zap.String("to", report.To),
	)

	var records []weather.DiaryRecord
	for m := from; !m.After(to); m = m.Next() {
		report.Months++

		fetched, err := s.source.FetchMonth(ctx, m)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			// Log and continue; a missing month is not fatal.
			s.logger.Warn("scrape: month failed",
				zap.String("month", m.String()),
				zap.Error(err),
			)
			report.Failed = append(report.Failed, m.String())
			continue
		}
		report.Fetched += len(fetched)
		records = append(records, fetched...)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	known, err := s.knownDates()
	if err != nil {
		return report, err
	}

	var rows []store.Row
	for _, r := range records {
		date := weather.FormatDate(r.Date)
		if _, ok := known[date]; ok {
			report.Skipped++
			continue
		}
		known[date] = struct{}{}
		rows = append(rows, store.Row{Date: date, Fields: r.Fields()})
	}

	if len(rows) > 0 {
		if err := store.Append(s.masterPath, weather.MasterColumns, rows); err != nil {
			return report, err
		}
		report.Appended = len(rows)
	}

	s.logger.Info("scrape: completed",
		zap.Int("months", report.Months),
		zap.Int("appended", report.Appended),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", len(report.Failed)),
	)
	return report, nil
}

func (s *Service) knownDates() (map[string]struct{}, error) {
	rs, err := store.Load(s.masterPath)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]struct{}), nil
	}
	if err != nil {
		return nil, err
	}
	return rs.Dates(), nil
}

// Partition rebuilds every partition from the current master.
func (s *Service) Partition() (partition.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	master, err := store.Load(s.masterPath)
	if err != nil {
		return partition.Report{}, err
	}
	return s.partitioner.Rebuild(master)
}

// Refresh scrapes from..to and rebuilds the partitions afterwards.
func (s *Service) Refresh(ctx context.Context, from, to weather.Month) (ScrapeReport, error) {
	report, err := s.Scrape(ctx, from, to)
	if err != nil {
		return report, err
	}
	if report.Appended == 0 {
		return report, nil
	}
	if _, err := s.Partition(); err != nil {
		return report, fmt.Errorf("repartition: %w", err)
	}
	return report, nil
}

// Lookup returns the fields stored for date using the given strategy.
func (s *Service) Lookup(date time.Time, strategy lookup.Strategy) ([]string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return strategy.Finder(s.masterPath, s.layout)(date)
}

// Range returns the days between from and to (inclusive) that have data.
func (s *Service) Range(from, to time.Time, strategy lookup.Strategy) ([]lookup.Day, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lookup.Collect(lookup.Days(from, to, strategy.Finder(s.masterPath, s.layout)))
}

// Table loads the master as an analytics table.
func (s *Service) Table() (*analytics.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rs, err := store.Load(s.masterPath)
	if err != nil {
		return nil, err
	}
	return analytics.FromStore(rs)
}
