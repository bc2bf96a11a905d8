package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "volflow/internal/errors"
	"volflow/pkg/utils"
)

// chartFixture carries four daily entries: the first two out of order, the
// third a null bar (market holiday), the fourth with a null volume.
const chartFixture = `{
	"chart": {
		"result": [{
			"timestamp": [1704240000, 1704153600, 1704326400, 1704412800],
			"indicators": {
				"quote": [{
					"open":   [101, 100, null, 103],
					"high":   [102, 101, null, 104],
					"low":    [100, 99,  null, 102],
					"close":  [101.5, 100.5, null, 103.5],
					"volume": [1000, 900, null, null]
				}]
			}
		}],
		"error": null
	}
}`

func yahooTestProvider(t *testing.T, handler http.HandlerFunc) *YahooProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &YahooProvider{
		client:  srv.Client(),
		baseURL: srv.URL,
		retry:   utils.RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1},
	}
}

func TestYahooDailyParsesChart(t *testing.T) {
	var gotPath, gotQuery string
	p := yahooTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(chartFixture))
	})

	bars, err := p.Daily(context.Background(), "ACME", 10)
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}

	if gotPath != "/ACME" {
		t.Errorf("request path = %q, want /ACME", gotPath)
	}
	if gotQuery != "interval=1d&range=1mo" {
		t.Errorf("request query = %q, want interval=1d&range=1mo", gotQuery)
	}

	// The null bar is dropped and the remaining bars come back sorted.
	if len(bars) != 3 {
		t.Fatalf("got %d bars, want 3", len(bars))
	}
	wantCloses := []float64{100.5, 101.5, 103.5}
	for i, want := range wantCloses {
		if bars[i].Close != want {
			t.Errorf("bar %d close = %v, want %v", i, bars[i].Close, want)
		}
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i-1].Timestamp.Before(bars[i].Timestamp) {
			t.Errorf("bars not ascending at %d: %v then %v", i, bars[i-1].Timestamp, bars[i].Timestamp)
		}
	}
	if bars[0].Volume != 900 {
		t.Errorf("bar 0 volume = %d, want 900", bars[0].Volume)
	}
	if bars[2].Volume != 0 {
		t.Errorf("null volume bar = %d, want 0", bars[2].Volume)
	}
}

func TestYahooDailyTrimsToRequested(t *testing.T) {
	p := yahooTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartFixture))
	})

	bars, err := p.Daily(context.Background(), "ACME", 2)
	if err != nil {
		t.Fatalf("Daily: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}
	if bars[0].Close != 101.5 || bars[1].Close != 103.5 {
		t.Errorf("trim kept wrong bars: closes %v, %v", bars[0].Close, bars[1].Close)
	}
}

func TestYahooRateLimited(t *testing.T) {
	p := yahooTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := p.Daily(context.Background(), "ACME", 10)
	if !apperrors.Is(err, apperrors.ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

func TestYahooAPIError(t *testing.T) {
	p := yahooTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	})

	_, err := p.Daily(context.Background(), "NOPE", 10)
	var perr *apperrors.ProviderError
	if !apperrors.As(err, &perr) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if perr.Provider != "yahoo" {
		t.Errorf("provider = %q, want yahoo", perr.Provider)
	}
}

func TestYahooNoData(t *testing.T) {
	p := yahooTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	})

	_, err := p.Daily(context.Background(), "ACME", 10)
	if !apperrors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("err = %v, want ErrDataNotFound", err)
	}
}

func TestRangeFor(t *testing.T) {
	cases := []struct {
		bars int
		want string
	}{
		{10, "1mo"},
		{30, "1mo"},
		{90, "3mo"},
		{120, "6mo"},
		{250, "1y"},
		{400, "2y"},
	}
	for _, tc := range cases {
		if got := rangeFor(tc.bars); got != tc.want {
			t.Errorf("rangeFor(%d) = %q, want %q", tc.bars, got, tc.want)
		}
	}
}
