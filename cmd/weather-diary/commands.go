package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/i474232898/weather-diary/internal/lookup"
	"github.com/i474232898/weather-diary/internal/weather"
)

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// scrapeEnv provides the environment for the scrape command.
type scrapeEnv struct {
	*rootEnv
	from      string
	to        string
	partition bool
}

// getScrapeCmd returns the definition of the scrape command.
func getScrapeCmd(root *rootEnv) *cobra.Command {
	env := &scrapeEnv{rootEnv: root}
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch diary pages and append new days to the master CSV.",
		Long: `
Fetches every month between --from and --to (inclusive, YYYY-MM). Months that
cannot be fetched are reported and skipped. Days already in the master are
not appended again.`,
		RunE: env.runScrapeCmd,
	}

	cmd.Flags().StringVar(&env.from, "from", "", "First month, YYYY-MM (default: January of SCRAPE_FROM_YEAR)")
	cmd.Flags().StringVar(&env.to, "to", "", "Last month, YYYY-MM (default: current month)")
	cmd.Flags().BoolVar(&env.partition, "partition", false, "Rebuild the partitions after scraping")
	return cmd
}

func (s *scrapeEnv) runScrapeCmd(cmd *cobra.Command, args []string) error {
	now := time.Now().UTC()
	from := weather.Month{Year: s.cfg.ScrapeFromYear, Month: time.January}
	to := weather.Month{Year: now.Year(), Month: now.Month()}

	var err error
	if s.from != "" {
		if from, err = weather.ParseMonth(s.from); err != nil {
			return err
		}
	}
	if s.to != "" {
		if to, err = weather.ParseMonth(s.to); err != nil {
			return err
		}
	}

	service := s.newService()
	if s.partition {
		report, err := service.Refresh(cmd.Context(), from, to)
		if err != nil {
			return err
		}
		return printJSON(report)
	}
	report, err := service.Scrape(cmd.Context(), from, to)
	if err != nil {
		return err
	}
	return printJSON(report)
}

// getPartitionCmd returns the definition of the partition command.
func getPartitionCmd(root *rootEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "partition",
		Short: "Rebuild the year, week and column partitions from the master CSV.",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := root.newService().Partition()
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
}

// lookupEnv provides the environment for the lookup command.
type lookupEnv struct {
	*rootEnv
	strategy string
	to       string
}

// getLookupCmd returns the definition of the lookup command.
func getLookupCmd(root *rootEnv) *cobra.Command {
	env := &lookupEnv{rootEnv: root}
	cmd := &cobra.Command{
		Use:   "lookup DATE",
		Short: "Print the observation of DATE (YYYY-MM-DD), or of every day up to --to.",
		Args:  cobra.ExactArgs(1),
		RunE:  env.runLookupCmd,
	}

	cmd.Flags().StringVar(&env.strategy, "partition", "master", "Where to look: master, year, week or split")
	cmd.Flags().StringVar(&env.to, "to", "", "Last date of a range lookup, YYYY-MM-DD")
	return cmd
}

func (l *lookupEnv) runLookupCmd(cmd *cobra.Command, args []string) error {
	strategy, err := lookup.ParseStrategy(l.strategy)
	if err != nil {
		return err
	}
	date, err := weather.ParseDate(args[0])
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", args[0], err)
	}
	service := l.newService()

	if l.to == "" {
		fields, found, err := service.Lookup(date, strategy)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no observation for %s", args[0])
		}
		fmt.Println(strings.Join(append([]string{args[0]}, fields...), ","))
		return nil
	}

	end, err := weather.ParseDate(l.to)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", l.to, err)
	}
	days, err := service.Range(date, end, strategy)
	if err != nil {
		return err
	}
	for _, d := range days {
		fmt.Println(strings.Join(append([]string{weather.FormatDate(d.Date)}, d.Fields...), ","))
	}
	return nil
}

// statsEnv provides the environment for the stats command.
type statsEnv struct {
	*rootEnv
	columns    []string
	fahrenheit string
	from       string
	to         string
	monthly    bool
	month      string
}

// getStatsCmd returns the definition of the stats command.
func getStatsCmd(root *rootEnv) *cobra.Command {
	env := &statsEnv{rootEnv: root}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print descriptive statistics of master columns.",
		RunE:  env.runStatsCmd,
	}

	cmd.Flags().StringSliceVar(&env.columns, "columns", []string{"temp_morning", "temp_evening"}, "Columns to describe")
	cmd.Flags().StringVar(&env.fahrenheit, "fahrenheit", "", "Celsius column to convert; adds <column>_f")
	cmd.Flags().StringVar(&env.from, "from", "", "Only rows on or after this date, YYYY-MM-DD")
	cmd.Flags().StringVar(&env.to, "to", "", "Only rows on or before this date, YYYY-MM-DD")
	cmd.Flags().BoolVar(&env.monthly, "monthly", false, "Print means per calendar month instead")
	cmd.Flags().StringVar(&env.month, "month", "", "Print mean and median for one month, YYYY-MM")
	return cmd
}

func (s *statsEnv) runStatsCmd(cmd *cobra.Command, args []string) error {
	table, err := s.newService().Table()
	if err != nil {
		return err
	}
	table = table.FillForward()

	columns := s.columns
	if s.fahrenheit != "" {
		name := s.fahrenheit + "_f"
		if table, err = table.WithFahrenheit(s.fahrenheit, name); err != nil {
			return err
		}
		columns = append(columns, name)
	}

	dateColumn := weather.MasterColumns[0]
	if s.from != "" || s.to != "" {
		from, to := time.Time{}, time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
		if s.from != "" {
			if from, err = weather.ParseDate(s.from); err != nil {
				return err
			}
		}
		if s.to != "" {
			if to, err = weather.ParseDate(s.to); err != nil {
				return err
			}
		}
		if table, err = table.FilterDateRange(dateColumn, from, to); err != nil {
			return err
		}
	}

	switch {
	case s.month != "":
		m, err := weather.ParseMonth(s.month)
		if err != nil {
			return err
		}
		var out []interface{}
		for _, c := range columns {
			summary, err := table.SummarizeMonth(dateColumn, c, m.Year, m.Month)
			if err != nil {
				return err
			}
			out = append(out, summary)
		}
		return printJSON(out)
	case s.monthly:
		means, err := table.MonthlyMeans(dateColumn, columns...)
		if err != nil {
			return err
		}
		return printJSON(means)
	default:
		stats, err := table.Describe(columns...)
		if err != nil {
			return err
		}
		return printJSON(stats)
	}
}
