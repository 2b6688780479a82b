package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weather-diary/internal/common"
	"github.com/i474232898/weather-diary/internal/weather"
)

const (
	// DefaultGismeteoBaseURL is the root of the diary pages.
	DefaultGismeteoBaseURL = "https://www.gismeteo.ru/diary"
	// DefaultGismeteoStation is the station whose diary is archived.
	DefaultGismeteoStation = "4618"
)

var errBlocked = errors.New("diary page blocked by the site")

// GismeteoProvider implements weather.Source for the gismeteo weather diary.
type GismeteoProvider struct {
	name    string
	baseURL string
	station string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewGismeteoProvider(client *http.Client, baseURL, station string, logger *zap.Logger) *GismeteoProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gismeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	if baseURL == "" {
		baseURL = DefaultGismeteoBaseURL
	}
	if station == "" {
		station = DefaultGismeteoStation
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GismeteoProvider{
		name:    "gismeteo",
		baseURL: strings.TrimRight(baseURL, "/"),
		station: station,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
			Headers: map[string]string{
				"Accept":     "*/*",
				"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.0.0 Safari/537.36",
			},
		},
		circuit: cb,
		logger:  logger,
	}
}

func (p *GismeteoProvider) Name() string {
	return p.name
}

// MonthURL returns the diary page of one month.
func (p *GismeteoProvider) MonthURL(m weather.Month) string {
	return fmt.Sprintf("%s/%s/%d/%d/", p.baseURL, p.station, m.Year, int(m.Month))
}

func (p *GismeteoProvider) FetchMonth(ctx context.Context, m weather.Month) ([]weather.DiaryRecord, error) {
	u := p.MonthURL(m)

	body, err := fetchWithResilience(ctx, p.httpCfg, p.circuit, p.logger, u)
	if err != nil {
		return nil, err
	}

	if common.HasAny(strings.ToLower(string(body)), "captcha", "access denied") {
		return nil, fmt.Errorf("%w: %s", errBlocked, u)
	}

	records, err := ExtractDiary(bytes.NewReader(body), m)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", u, err)
	}

	p.logger.Debug("gismeteo: fetched diary page",
		zap.String("month", m.String()),
		zap.Int("records", len(records)),
	)
	return records, nil
}
