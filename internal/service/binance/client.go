package binance

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"

	"SemaforoBot/internal/domain/models"
	"SemaforoBot/internal/domain/repository"
	"SemaforoBot/pkg/logger"
)

const (
	volatilityWindow = 24 // hourly candles
	maxFetchAttempts = 3
)

// symbolFor maps a bare asset to its USDT perpetual.
func symbolFor(asset string) string { return asset + "USDT" }

// Client implements the metric source against Binance USDT-M futures. All
// request failures surface as models.ErrSourceUnavailable so callers never
// classify on partial data.
type Client struct {
	api     *futures.Client
	timeout time.Duration
	log     *logger.Logger
}

func NewClient(apiKey, secretKey string, timeout time.Duration, log *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		api:     futures.NewClient(apiKey, secretKey),
		timeout: timeout,
		log:     log,
	}
}

var _ repository.MetricSource = (*Client)(nil)

// Fetch assembles one snapshot from several endpoints. Endpoints are queried
// sequentially with shared retry/backoff; Binance rate limits by IP, so
// fanning out buys nothing.
func (c *Client) Fetch(ctx context.Context, asset string, timeframe repository.Timeframe) (*models.AssetMetrics, error) {
	symbol := symbolFor(asset)
	period := string(repository.NormalizeTimeframe(string(timeframe)))

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	premium, err := c.premiumIndex(ctx, symbol)
	if err != nil {
		return nil, sourceErr(asset, "premium index", err)
	}
	fundingAvg, err := c.fundingAvg24h(ctx, symbol)
	if err != nil {
		return nil, sourceErr(asset, "funding history", err)
	}
	oi, oiChange, err := c.openInterest(ctx, symbol, period)
	if err != nil {
		return nil, sourceErr(asset, "open interest", err)
	}
	ratio, err := c.longShortRatio(ctx, symbol, period)
	if err != nil {
		return nil, sourceErr(asset, "long/short ratio", err)
	}
	price, volume, err := c.ticker(ctx, symbol)
	if err != nil {
		return nil, sourceErr(asset, "ticker", err)
	}
	vol, err := c.volatility(ctx, symbol)
	if err != nil {
		return nil, sourceErr(asset, "klines", err)
	}

	// No public per-symbol liquidation feed on the REST API; estimate the
	// 24h liquidation mass from open interest and an assumed average
	// leverage, lower in volatile markets.
	avgLeverage := 5.0
	if vol >= 0.03 {
		avgLeverage = 3.0
	}
	liq := oi * (1 / avgLeverage)
	longShare := ratio / (ratio + 1)

	return &models.AssetMetrics{
		Asset:              asset,
		FundingRate:        premium.funding,
		FundingAvg24h:      fundingAvg,
		OpenInterest:       oi,
		OIChange24hPct:     oiChange,
		LiquidationsUSD24h: liq,
		LongsLiquidated:    liq * longShare,
		ShortsLiquidated:   liq * (1 - longShare),
		LongShortRatio:     ratio,
		Price:              price,
		Volume24h:          volume,
		Volatility:         vol,
		CapturedAt:         time.Now().UTC(),
	}, nil
}

type premiumData struct {
	funding float64
	mark    float64
}

func (c *Client) premiumIndex(ctx context.Context, symbol string) (premiumData, error) {
	var out premiumData
	err := c.withRetry(ctx, func() error {
		res, err := c.api.NewPremiumIndexService().Symbol(symbol).Do(ctx)
		if err != nil {
			return err
		}
		if len(res) == 0 {
			return fmt.Errorf("empty premium index for %s", symbol)
		}
		var p floatParser
		out.funding = p.parse(res[0].LastFundingRate)
		out.mark = p.parse(res[0].MarkPrice)
		return p.err
	})
	return out, err
}

func (c *Client) fundingAvg24h(ctx context.Context, symbol string) (float64, error) {
	var avg float64
	err := c.withRetry(ctx, func() error {
		// Funding settles every 8h; three entries cover a day.
		res, err := c.api.NewFundingRateService().Symbol(symbol).Limit(3).Do(ctx)
		if err != nil {
			return err
		}
		if len(res) == 0 {
			return fmt.Errorf("empty funding history for %s", symbol)
		}
		var p floatParser
		var sum float64
		for _, r := range res {
			sum += p.parse(r.FundingRate)
		}
		if p.err != nil {
			return p.err
		}
		avg = sum / float64(len(res))
		return nil
	})
	return avg, err
}

func (c *Client) openInterest(ctx context.Context, symbol, period string) (current, change24hPct float64, err error) {
	err = c.withRetry(ctx, func() error {
		hist, err := c.api.NewOpenInterestStatisticsService().
			Symbol(symbol).
			Period("1h").
			Limit(25).
			Do(ctx)
		if err != nil {
			return err
		}
		if len(hist) == 0 {
			return fmt.Errorf("empty open interest history for %s", symbol)
		}
		var p floatParser
		latest := p.parse(hist[len(hist)-1].SumOpenInterestValue)
		oldest := p.parse(hist[0].SumOpenInterestValue)
		if p.err != nil {
			return p.err
		}
		current = latest
		if oldest > 0 {
			change24hPct = (latest - oldest) / oldest * 100
		}
		return nil
	})
	return current, change24hPct, err
}

func (c *Client) longShortRatio(ctx context.Context, symbol, period string) (float64, error) {
	var ratio float64
	err := c.withRetry(ctx, func() error {
		res, err := c.api.NewLongShortRatioService().
			Symbol(symbol).
			Period(period).
			Limit(1).
			Do(ctx)
		if err != nil {
			return err
		}
		if len(res) == 0 {
			return fmt.Errorf("empty long/short ratio for %s", symbol)
		}
		var p floatParser
		ratio = p.parse(res[len(res)-1].LongShortRatio)
		return p.err
	})
	return ratio, err
}

func (c *Client) ticker(ctx context.Context, symbol string) (price, quoteVolume float64, err error) {
	err = c.withRetry(ctx, func() error {
		stats, err := c.api.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			return fmt.Errorf("empty ticker for %s", symbol)
		}
		var p floatParser
		price = p.parse(stats[0].LastPrice)
		quoteVolume = p.parse(stats[0].QuoteVolume)
		return p.err
	})
	return price, quoteVolume, err
}

// volatility is the standard deviation of hourly close-to-close returns over
// the last day.
func (c *Client) volatility(ctx context.Context, symbol string) (float64, error) {
	var vol float64
	err := c.withRetry(ctx, func() error {
		klines, err := c.api.NewKlinesService().
			Symbol(symbol).
			Interval("1h").
			Limit(volatilityWindow + 1).
			Do(ctx)
		if err != nil {
			return err
		}
		if len(klines) < 2 {
			return fmt.Errorf("not enough klines for %s", symbol)
		}
		var p floatParser
		returns := make([]float64, 0, len(klines)-1)
		prev := p.parse(klines[0].Close)
		for _, k := range klines[1:] {
			close := p.parse(k.Close)
			if prev > 0 {
				returns = append(returns, (close-prev)/prev)
			}
			prev = close
		}
		if p.err != nil {
			return p.err
		}
		vol = stddev(returns)
		return nil
	})
	return vol, err
}

func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	b := &backoff.Backoff{
		Min:    250 * time.Millisecond,
		Max:    2 * time.Second,
		Factor: 2,
		Jitter: true,
	}
	var err error
	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		d := b.Duration()
		c.log.Debug("binance request retry",
			logger.Int("attempt", attempt+1),
			logger.Duration("backoff", d),
			logger.Error(err))
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return err
		}
	}
	return err
}

func sourceErr(asset, op string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", models.ErrSourceUnavailable, asset, op, err)
}

// floatParser converts Binance's string-encoded numbers, remembering the
// first failure so each response is checked once. A field that does not
// parse is a malformed response, not a zero reading.
type floatParser struct{ err error }

func (p *floatParser) parse(s string) float64 {
	if p.err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.err = fmt.Errorf("malformed number %q: %w", s, err)
		return 0
	}
	return f
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var sum float64
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}
