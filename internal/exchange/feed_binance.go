package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"momentum-go/internal/market"
	"momentum-go/internal/metrics"
)

type binanceEnvelope struct {
	Stream string          `json:"stream"`
	Data   binanceKlineMsg `json:"data"`
}

type binanceKlineMsg struct {
	EventType string       `json:"e"`
	Kline     binanceKline `json:"k"`
}

type binanceKline struct {
	OpenTime int64  `json:"t"`
	Symbol   string `json:"s"`
	Interval string `json:"i"`
	Open     string `json:"o"`
	Close    string `json:"c"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Volume   string `json:"v"`
	Closed   bool   `json:"x"`
}

func (f *Feed) runBinance(ctx context.Context, out chan<- market.Bar) error {
	if f.symbol == "" {
		return fmt.Errorf("binance feed requires a symbol")
	}

	stream := fmt.Sprintf("%s@kline_%s", strings.ToLower(f.symbol), f.interval)
	url := fmt.Sprintf("%s/stream?streams=%s", f.wsBaseURL, stream)
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeBinanceStream(ctx, url, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("binance feed disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeBinanceStream(ctx context.Context, url string, out chan<- market.Bar) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderBinance).Str("symbol", f.symbol).
		Str("interval", f.interval).Msg("connected candle feed")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env binanceEnvelope
		if err := json.Unmarshal(message, &env); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode binance message")
			continue
		}
		// Interim updates arrive every couple of seconds; the engine only
		// consumes finalized candles.
		if !env.Data.Kline.Closed {
			continue
		}

		bar, err := env.Data.Kline.toBar()
		if err != nil {
			f.log.Warn().Err(err).Msg("invalid kline from binance")
			continue
		}
		select {
		case out <- bar:
			metrics.FeedBarsTotal.WithLabelValues(f.symbol).Inc()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (k binanceKline) toBar() (market.Bar, error) {
	bar := market.Bar{Timestamp: k.OpenTime}
	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"open", k.Open, &bar.Open},
		{"high", k.High, &bar.High},
		{"low", k.Low, &bar.Low},
		{"close", k.Close, &bar.Close},
		{"volume", k.Volume, &bar.Volume},
	}
	for _, field := range fields {
		v, err := strconv.ParseFloat(field.raw, 64)
		if err != nil {
			return market.Bar{}, fmt.Errorf("parse %s %q: %w", field.name, field.raw, err)
		}
		*field.dst = v
	}
	if err := bar.Validate(); err != nil {
		return market.Bar{}, err
	}
	return bar, nil
}
