package lookup

import (
	"fmt"
	"time"

	"github.com/i474232898/weather-diary/internal/partition"
)

// Strategy selects where a lookup reads from.
type Strategy string

const (
	StrategyMaster Strategy = "master"
	StrategyYear   Strategy = "year"
	StrategyWeek   Strategy = "week"
	StrategySplit  Strategy = "split"
)

// ParseStrategy accepts the names used on the command line and in the API.
// An empty name means the master store.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "":
		return StrategyMaster, nil
	case StrategyMaster, StrategyYear, StrategyWeek, StrategySplit:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown lookup strategy %q", s)
}

// Finder binds a strategy to concrete files: the master row store at
// masterPath, or the partitions of layout.
func (s Strategy) Finder(masterPath string, layout partition.Layout) Finder {
	switch s {
	case StrategyYear:
		return func(d time.Time) ([]string, bool, error) { return ByYear(layout.YearDir(), d) }
	case StrategyWeek:
		return func(d time.Time) ([]string, bool, error) { return ByWeek(layout.WeekDir(), d) }
	case StrategySplit:
		return func(d time.Time) ([]string, bool, error) { return SplitColumns(layout, d) }
	default:
		return func(d time.Time) ([]string, bool, error) { return Linear(masterPath, d) }
	}
}
