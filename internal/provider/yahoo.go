package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	apperrors "volflow/internal/errors"
	"volflow/internal/models"
	"volflow/pkg/utils"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooProvider fetches daily bars from the Yahoo Finance v8 chart API.
// It needs no credentials.
type YahooProvider struct {
	client  *http.Client
	baseURL string
	retry   utils.RetryConfig
}

// NewYahooProvider creates a Yahoo Finance provider.
func NewYahooProvider() *YahooProvider {
	return &YahooProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: yahooChartURL,
		retry:   utils.DefaultRetryConfig(),
	}
}

func (p *YahooProvider) Name() string { return "yahoo" }

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

// rangeFor picks the smallest chart range that covers the requested bar
// count. Yahoo caps daily-interval requests at two years.
func rangeFor(bars int) string {
	switch {
	case bars <= 30:
		return "1mo"
	case bars <= 90:
		return "3mo"
	case bars <= 180:
		return "6mo"
	case bars <= 365:
		return "1y"
	default:
		return "2y"
	}
}

// Daily fetches the most recent daily bars for a symbol.
func (p *YahooProvider) Daily(ctx context.Context, symbol string, bars int) ([]models.Bar, error) {
	out, err := utils.RetryWithResult(ctx, p.retry, func() ([]models.Bar, error) {
		return p.fetchChart(ctx, symbol, "1d", rangeFor(bars))
	})
	if err != nil {
		return nil, err
	}
	if bars > 0 && len(out) > bars {
		out = out[len(out)-bars:]
	}
	return validateSeries(p.Name(), symbol, out)
}

func (p *YahooProvider) fetchChart(ctx context.Context, symbol, interval, rng string) ([]models.Bar, error) {
	u := fmt.Sprintf("%s/%s?interval=%s&range=%s", p.baseURL, url.PathEscape(symbol), interval, rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderError("yahoo", symbol, "chart fetch failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewProviderError("yahoo", symbol, "response read failed", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.Wrapf(apperrors.ErrRateLimited, "yahoo chart for %s", symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewProviderError("yahoo", symbol, fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, apperrors.NewProviderError("yahoo", symbol, "chart decode failed", err)
	}
	if chart.Chart.Error != nil {
		return nil, apperrors.NewProviderError("yahoo", symbol, "api error: "+chart.Chart.Error.Description, nil)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrDataNotFound, "yahoo returned no chart data for %s", symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	out := make([]models.Bar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		o := toFloat(quote.Open[i])
		h := toFloat(quote.High[i])
		l := toFloat(quote.Low[i])
		c := toFloat(quote.Close[i])
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		out = append(out, models.Bar{
			Timestamp: time.Unix(ts, 0),
			Open:      o,
			High:      h,
			Low:       l,
			Close:     c,
			Volume:    int64(toFloat(quote.Volume[i])),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
