package provider

import (
	"context"
	"strings"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "volflow/internal/errors"
	"volflow/internal/models"
	"volflow/pkg/utils"
)

// KiteProvider fetches daily candles from the Kite Connect historical API.
type KiteProvider struct {
	client   *kiteconnect.Client
	exchange string
	retry    utils.RetryConfig

	mu     sync.RWMutex
	tokens map[string]int
}

// KiteConfig holds credentials for the Kite provider.
type KiteConfig struct {
	APIKey      string
	AccessToken string
	Exchange    string
}

// NewKiteProvider creates a Kite-backed provider. Both credentials are
// required; ErrNotConfigured is returned otherwise.
func NewKiteProvider(cfg KiteConfig) (*KiteProvider, error) {
	if cfg.APIKey == "" || cfg.AccessToken == "" {
		return nil, apperrors.ErrNotConfigured
	}

	client := kiteconnect.New(cfg.APIKey)
	client.SetAccessToken(cfg.AccessToken)

	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "NSE"
	}

	return &KiteProvider{
		client:   client,
		exchange: exchange,
		retry:    utils.DefaultRetryConfig(),
		tokens:   make(map[string]int),
	}, nil
}

func (p *KiteProvider) Name() string { return "kite" }

// Daily fetches the most recent daily candles for a symbol.
func (p *KiteProvider) Daily(ctx context.Context, symbol string, bars int) ([]models.Bar, error) {
	token, err := p.instrumentToken(ctx, symbol)
	if err != nil {
		return nil, err
	}

	// Calendar days overshoot trading days, so fetch wide and trim after.
	to := time.Now()
	from := to.AddDate(0, 0, -(bars*7/5 + 10))

	data, err := utils.RetryWithResult(ctx, p.retry, func() ([]kiteconnect.HistoricalData, error) {
		return p.client.GetHistoricalData(token, "day", from, to, false, false)
	})
	if err != nil {
		return nil, apperrors.NewProviderError("kite", symbol, "historical data fetch failed", err)
	}

	out := make([]models.Bar, len(data))
	for i, d := range data {
		out[i] = models.Bar{
			Timestamp: d.Date.Time,
			Open:      d.Open,
			High:      d.High,
			Low:       d.Low,
			Close:     d.Close,
			Volume:    int64(d.Volume),
		}
	}
	if bars > 0 && len(out) > bars {
		out = out[len(out)-bars:]
	}
	return validateSeries(p.Name(), symbol, out)
}

// instrumentToken resolves a trading symbol to its instrument token,
// loading the exchange instrument dump on first use.
func (p *KiteProvider) instrumentToken(ctx context.Context, symbol string) (int, error) {
	key := p.exchange + ":" + strings.ToUpper(symbol)

	p.mu.RLock()
	token, ok := p.tokens[key]
	p.mu.RUnlock()
	if ok {
		return token, nil
	}

	instruments, err := utils.RetryWithResult(ctx, p.retry, func() (kiteconnect.Instruments, error) {
		return p.client.GetInstruments()
	})
	if err != nil {
		return 0, apperrors.NewProviderError("kite", symbol, "instrument dump fetch failed", err)
	}

	p.mu.Lock()
	for _, inst := range instruments {
		if inst.Exchange != p.exchange {
			continue
		}
		p.tokens[inst.Exchange+":"+inst.Tradingsymbol] = inst.InstrumentToken
	}
	token, ok = p.tokens[key]
	p.mu.Unlock()

	if !ok {
		return 0, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "%s not in %s instrument dump", symbol, p.exchange)
	}
	return token, nil
}
