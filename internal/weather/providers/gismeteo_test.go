package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-diary/internal/weather"
)

const diaryPage = `<html><body>
<div class="nav"><a href="/">home</a></div>
<table>
<thead><tr><th>Day</th><th>T</th><th>P</th></tr></thead>
<tbody>
<tr><td>1</td><td>+3</td><td>745</td><td>x</td><td>x</td><td><span>С 2м/с</span></td><td>−1</td><td>747</td><td>x</td><td>x</td><td>Ш</td></tr>
<tr><td>2</td><td>−5</td><td>750</td><td>x</td><td>x</td><td>З&nbsp;4м/с</td><td>−7</td><td>752</td><td>x</td><td>x</td><td>Ю 1м/с</td></tr>
<tr><td>summary</td><td colspan="10">n/a</td></tr>
<tr><td>31</td><td>0</td><td>740</td><td>x</td><td>x</td><td>Ш</td><td>1</td><td>741</td><td>x</td><td>x</td><td>Ш</td></tr>
</tbody>
</table>
<table><tbody><tr><td>9</td></tr></tbody></table>
</body></html>`

func TestExtractDiary(t *testing.T) {
	month := weather.Month{Year: 2023, Month: time.February}
	records, err := ExtractDiary(strings.NewReader(diaryPage), month)
	require.NoError(t, err)

	// Day 31 does not exist in February.
	require.Len(t, records, 2)
	assert.Equal(t, weather.DiaryRecord{
		Date:            time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
		TempMorning:     "+3",
		PressureMorning: "745",
		WindMorning:     "С 2м/с",
		TempEvening:     "−1",
		PressureEvening: "747",
		WindEvening:     "Ш",
	}, records[0])
	assert.Equal(t, "З 4м/с", records[1].WindMorning)
}

func TestExtractDiary_NoTable(t *testing.T) {
	records, err := ExtractDiary(strings.NewReader("<html><body><p>nothing here</p></body></html>"),
		weather.Month{Year: 2023, Month: time.January})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func testProvider(url string) *GismeteoProvider {
	p := NewGismeteoProvider(http.DefaultClient, url, "4618", nil)
	p.httpCfg.Backoff = BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
	return p
}

func TestMonthURL(t *testing.T) {
	p := NewGismeteoProvider(http.DefaultClient, "https://example.test/diary/", "", nil)
	assert.Equal(t, "https://example.test/diary/4618/2023/3/", p.MonthURL(weather.Month{Year: 2023, Month: time.March}))
	assert.Equal(t, "gismeteo", p.Name())
}

func TestFetchMonth(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(diaryPage))
	}))
	defer srv.Close()

	records, err := testProvider(srv.URL).FetchMonth(context.Background(), weather.Month{Year: 2023, Month: time.January})
	require.NoError(t, err)
	assert.Equal(t, "/4618/2023/1/", path)
	assert.Len(t, records, 3)
}

func TestFetchMonth_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(diaryPage))
	}))
	defer srv.Close()

	records, err := testProvider(srv.URL).FetchMonth(context.Background(), weather.Month{Year: 2023, Month: time.January})
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchMonth_DoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testProvider(srv.URL).FetchMonth(context.Background(), weather.Month{Year: 2023, Month: time.January})
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnexpected)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchMonth_Blocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>Please solve the CAPTCHA</body></html>"))
	}))
	defer srv.Close()

	_, err := testProvider(srv.URL).FetchMonth(context.Background(), weather.Month{Year: 2023, Month: time.January})
	assert.ErrorIs(t, err, errBlocked)
}

func TestFetchMonth_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testProvider("http://127.0.0.1:1").FetchMonth(ctx, weather.Month{Year: 2023, Month: time.January})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffDelay(t *testing.T) {
	b := BackoffConfig{InitialInterval: 100 * time.Millisecond, MaxInterval: time.Second}
	assert.Equal(t, 100*time.Millisecond, b.delay(0))
	assert.Equal(t, 400*time.Millisecond, b.delay(2))
	assert.Equal(t, time.Second, b.delay(5))
	assert.Equal(t, time.Second, b.delay(80))
}
