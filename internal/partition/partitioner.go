package partition

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/i474232898/weather-diary/internal/store"
	"github.com/i474232898/weather-diary/internal/weather"
)

// Partitioner rebuilds every partition of a master row store from scratch.
type Partitioner struct {
	layout Layout
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Partitioner writing below layout.Root.
func New(layout Layout, logger *zap.Logger) *Partitioner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Partitioner{
		layout: layout,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ModeReport lists what one partitioning mode wrote and pruned.
type ModeReport struct {
	Mode    Mode     `json:"mode"`
	Dir     string   `json:"dir"`
	Files   []string `json:"files"`
	Removed []string `json:"removed,omitempty"`
}

// Report summarises a full rebuild.
type Report struct {
	RunID string       `json:"runId"`
	Rows  int          `json:"rows"`
	Modes []ModeReport `json:"modes"`
}

// Rebuild runs the year, week and column partitioning of master. There is
// no rollback: a failure part way leaves the partitions written so far.
func (p *Partitioner) Rebuild(master *store.RowStore) (Report, error) {
	runID := uuid.NewString()
	_, rows := master.SplitHeader()
	report := Report{RunID: runID, Rows: len(rows)}

	p.logger.Info("partition: rebuilding",
		zap.String("runId", runID),
		zap.String("master", master.Path),
		zap.Int("rows", len(rows)),
	)

	years, err := p.splitYears(master, runID)
	if err != nil {
		return report, err
	}
	report.Modes = append(report.Modes, years)

	weeks, err := p.splitWeeks(master, runID)
	if err != nil {
		return report, err
	}
	report.Modes = append(report.Modes, weeks)

	cols, err := p.SplitColumns(master)
	if err != nil {
		return report, err
	}
	report.Modes = append(report.Modes, cols)

	p.logger.Info("partition: rebuild complete", zap.String("runId", runID))
	return report, nil
}

// SplitYears writes one file per calendar year, named YYYY.csv.
func (p *Partitioner) SplitYears(master *store.RowStore) (ModeReport, error) {
	return p.splitYears(master, uuid.NewString())
}

// SplitWeeks writes one file per ISO week, named <first>_<last>.csv.
func (p *Partitioner) SplitWeeks(master *store.RowStore) (ModeReport, error) {
	return p.splitWeeks(master, uuid.NewString())
}

func (p *Partitioner) splitYears(master *store.RowStore, runID string) (ModeReport, error) {
	header, rows := master.SplitHeader()
	groups, err := ByYear(rows)
	if err != nil {
		return ModeReport{}, &store.ParseError{Path: master.Path, Err: err}
	}
	return p.writeGroups(p.layout.YearDir(), ModeYear, runID, header, groups, Group.YearFileName)
}

func (p *Partitioner) splitWeeks(master *store.RowStore, runID string) (ModeReport, error) {
	header, rows := master.SplitHeader()
	groups, err := ByWeek(rows)
	if err != nil {
		return ModeReport{}, &store.ParseError{Path: master.Path, Err: err}
	}
	return p.writeGroups(p.layout.WeekDir(), ModeWeek, runID, header, groups, Group.WeekFileName)
}

func (p *Partitioner) writeGroups(
	dir string,
	mode Mode,
	runID string,
	header *store.Row,
	groups []Group,
	fileName func(Group) string,
) (ModeReport, error) {
	report := ModeReport{Mode: mode, Dir: dir}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return report, fmt.Errorf("create %s: %w", dir, err)
	}

	prev, _, err := LoadManifest(dir)
	if err != nil {
		return report, err
	}

	var headerRec []string
	if header != nil {
		headerRec = header.Record()
	}

	written := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		name := fileName(g)
		records := make([][]string, 0, len(g.Rows))
		for _, row := range g.Rows {
			records = append(records, row.Record())
		}
		if err := store.WriteFile(filepath.Join(dir, name), headerRec, records); err != nil {
			return report, err
		}
		written[name] = struct{}{}
		report.Files = append(report.Files, name)
	}

	m := &Manifest{
		RunID:       runID,
		Mode:        mode,
		GeneratedAt: p.now(),
		Files:       report.Files,
		Index:       buildIndex(groups, fileName),
	}
	if err := writeManifest(dir, m); err != nil {
		return report, err
	}

	// Only files this directory's previous run produced are candidates for
	// removal; anything else in dir is left alone.
	if prev != nil {
		for _, name := range prev.Files {
			if _, ok := written[name]; ok {
				continue
			}
			err := os.Remove(filepath.Join(dir, name))
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return report, fmt.Errorf("remove stale partition %s: %w", name, err)
			}
			report.Removed = append(report.Removed, name)
		}
	}

	p.logger.Info("partition: wrote partitions",
		zap.String("mode", string(mode)),
		zap.String("dir", dir),
		zap.Int("files", len(report.Files)),
		zap.Int("removed", len(report.Removed)),
	)
	return report, nil
}

// SplitColumns writes the date components of every row to X.csv and the
// measurement fields to Y.csv. Both files start each record with the same
// row sequence number so their alignment can be checked on read.
func (p *Partitioner) SplitColumns(master *store.RowStore) (ModeReport, error) {
	_, rows := master.SplitHeader()
	report := ModeReport{Mode: ModeColumns, Dir: p.layout.SplitDir()}

	dates := make([][]string, 0, len(rows))
	data := make([][]string, 0, len(rows))
	for i, row := range rows {
		d, err := weather.ParseDate(row.Date)
		if err != nil {
			return report, &store.ParseError{
				Path: master.Path,
				Err:  fmt.Errorf("row %d: invalid date %q: %w", i, row.Date, err),
			}
		}
		seq := strconv.Itoa(i)

		dates = append(dates, append([]string{seq}, strings.Split(weather.FormatDate(d), "-")...))
		data = append(data, append([]string{seq}, row.Fields...))
	}

	if err := store.WriteFile(p.layout.DatePath(), nil, dates); err != nil {
		return report, err
	}
	if err := store.WriteFile(p.layout.DataPath(), nil, data); err != nil {
		return report, err
	}
	report.Files = []string{DateFile, DataFile}

	p.logger.Info("partition: wrote column split",
		zap.String("dir", report.Dir),
		zap.Int("rows", len(rows)),
	)
	return report, nil
}
