// Package exchange hosts candle connectors: a live websocket feed and a REST
// history fetcher.
package exchange

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"momentum-go/internal/market"
	"momentum-go/internal/metrics"
)

const (
	// ProviderStub emits deterministic synthetic bars (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams closed klines from Binance public websockets.
	ProviderBinance = "binance"
)

const defaultWSBaseURL = "wss://stream.binance.com:9443"

// Feed represents a pluggable candle stream for one symbol and interval.
type Feed struct {
	provider  string
	symbol    string
	interval  string
	wsBaseURL string
	log       zerolog.Logger

	stubTick  time.Duration
	stubPrice float64
}

// Option configures Feed construction parameters.
type Option func(*Feed)

// WithWSBaseURL overrides the websocket endpoint (tests point it at a local server).
func WithWSBaseURL(url string) Option {
	return func(f *Feed) {
		if url != "" {
			f.wsBaseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithStubTick overrides the synthetic bar cadence of the stub provider.
func WithStubTick(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.stubTick = d
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider, symbol, interval string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:  strings.ToLower(provider),
		symbol:    strings.ToUpper(symbol),
		interval:  interval,
		wsBaseURL: defaultWSBaseURL,
		log:       log,
		stubTick:  time.Second,
		stubPrice: 100,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Symbol returns the tracked symbol in exchange notation.
func (f *Feed) Symbol() string { return f.symbol }

// Run pushes closed bars onto the provided channel until the context is
// canceled.
func (f *Feed) Run(ctx context.Context, out chan<- market.Bar) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

func (f *Feed) runStub(ctx context.Context, out chan<- market.Bar) error {
	ticker := time.NewTicker(f.stubTick)
	defer ticker.Stop()

	px := f.stubPrice
	step := IntervalDuration(f.interval)
	next := time.Now().Truncate(step).UnixMilli()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			open := px
			px += 0.1
			bar := market.Bar{
				Timestamp: next,
				Open:      open,
				High:      px,
				Low:       open,
				Close:     px,
				Volume:    1,
			}
			next += step.Milliseconds()
			select {
			case out <- bar:
				metrics.FeedBarsTotal.WithLabelValues(f.symbol).Inc()
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// IntervalDuration maps an exchange interval onto a bar duration, defaulting
// to an hour for anything it cannot parse.
func IntervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return time.Hour
	}
}
