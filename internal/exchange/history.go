package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"momentum-go/internal/market"
)

const klinesPageLimit = 1000

// History fetches candle backfill over the exchange REST API. Requests are
// rate limited so large backfills stay under the venue's request weight caps.
type History struct {
	client  *resty.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewHistory builds a fetcher against the given REST base URL.
func NewHistory(baseURL string, requestsPerSecond float64, log zerolog.Logger) *History {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(time.Second)

	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &History{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		log:     log,
	}
}

// Klines fetches closed candles for [start, end), paging through the API in
// ascending order. Bars come back validated and strictly increasing in time.
func (h *History) Klines(ctx context.Context, symbol, interval string, start, end time.Time) ([]market.Bar, error) {
	var (
		bars   []market.Bar
		cursor = start.UnixMilli()
		until  = end.UnixMilli()
	)
	for cursor < until {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := h.fetchPage(ctx, symbol, interval, cursor, until)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		for _, bar := range page {
			prev := int64(0)
			if len(bars) > 0 {
				prev = bars[len(bars)-1].Timestamp
			}
			if err := bar.ValidateNext(prev); err != nil {
				return nil, fmt.Errorf("kline at %d: %w", bar.Timestamp, err)
			}
			bars = append(bars, bar)
		}
		cursor = page[len(page)-1].Timestamp + 1
		h.log.Debug().Str("sym", symbol).Int("total", len(bars)).Msg("fetched kline page")
		if len(page) < klinesPageLimit {
			break
		}
	}
	return bars, nil
}

func (h *History) fetchPage(ctx context.Context, symbol, interval string, start, end int64) ([]market.Bar, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":    symbol,
			"interval":  interval,
			"startTime": strconv.FormatInt(start, 10),
			"endTime":   strconv.FormatInt(end, 10),
			"limit":     strconv.Itoa(klinesPageLimit),
		}).
		Get("/api/v3/klines")
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("klines request failed: %s: %s", resp.Status(), resp.String())
	}

	// Each kline is a positional JSON array:
	// [openTime, open, high, low, close, volume, closeTime, ...]
	var rows [][]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	bars := make([]market.Bar, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("kline row %d: want at least 6 fields, got %d", i, len(row))
		}
		var bar market.Bar
		if err := json.Unmarshal(row[0], &bar.Timestamp); err != nil {
			return nil, fmt.Errorf("kline row %d open time: %w", i, err)
		}
		fields := []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume}
		for j, dst := range fields {
			var raw string
			if err := json.Unmarshal(row[j+1], &raw); err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j+1, err)
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("kline row %d field %d: %w", i, j+1, err)
			}
			*dst = v
		}
		bars = append(bars, bar)
	}
	return bars, nil
}
