package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// DatasetsDir holds the partition directories.
	DatasetsDir string
	// MasterFile is the append-only CSV written by the scraper.
	MasterFile string

	DiaryBaseURL string
	DiaryStation string

	// ScrapeFromYear is the first year of a full scrape.
	ScrapeFromYear int

	HTTPTimeout time.Duration

	// FetchInterval controls how often the scheduler refreshes the archive.
	FetchInterval    time.Duration
	SchedulerEnabled bool

	Port           string
	LogDevelopment bool
}

// Load reads configuration from environment with sensible defaults. A .env
// file in the working directory is applied first when present.
func Load() (*AppConfig, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatasetsDir = getenvDefault("DATASETS_DIR", "datasets")
	cfg.MasterFile = getenvDefault("MASTER_FILE", filepath.Join(cfg.DatasetsDir, "dataset.csv"))
	cfg.DiaryBaseURL = getenvDefault("DIARY_BASE_URL", "https://www.gismeteo.ru/diary")
	cfg.DiaryStation = getenvDefault("DIARY_STATION", "4618")
	cfg.ScrapeFromYear = getenvInt("SCRAPE_FROM_YEAR", 2007)

	timeout, err := getenvDuration("HTTP_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = timeout

	// Scheduler interval: default once a day.
	interval, err := getenvDuration("FETCH_INTERVAL", "24h")
	if err != nil {
		return nil, err
	}
	cfg.FetchInterval = interval

	cfg.SchedulerEnabled, err = getenvBool("SCHEDULER_ENABLED", true)
	if err != nil {
		return nil, err
	}
	cfg.LogDevelopment, err = getenvBool("LOG_DEVELOPMENT", false)
	if err != nil {
		return nil, err
	}

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
