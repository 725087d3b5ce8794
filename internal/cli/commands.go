// Package cli wires the momentum commands: live paper trading, backtests,
// history fetching, and config management.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"momentum-go/internal/backtest"
	"momentum-go/internal/cache"
	"momentum-go/internal/config"
	"momentum-go/internal/exchange"
	"momentum-go/internal/execution"
	"momentum-go/internal/live"
	"momentum-go/internal/market"
	"momentum-go/internal/metrics"
	"momentum-go/internal/portfolio"
	"momentum-go/internal/store"
	"momentum-go/internal/strategy"
	"momentum-go/internal/util"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:   "momentum",
		Short: "Single-asset momentum decision engine",
		Long: `momentum trades one asset's candle stream through a confluence-scored
momentum strategy with tiered exits and a portfolio drawdown guard.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "configuration file path")

	rootCmd.AddCommand(newLiveCmd(&cfgPath))
	rootCmd.AddCommand(newBacktestCmd(&cfgPath))
	rootCmd.AddCommand(newFetchCmd(&cfgPath))
	rootCmd.AddCommand(newConfigCmd(&cfgPath))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.Load(path)
}

func newLiveCmd(cfgPath *string) *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "live",
		Short: "Run the paper trading loop against the live candle feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if provider == "" {
				provider = cfg.Exchange.Name
			}
			return runLive(cfg, provider)
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "candle provider (binance, stub)")
	return cmd
}

func runLive(cfg *config.Config, provider string) error {
	log := util.NewLogger(cfg.App.LogLevel)

	if cfg.App.MetricsAddr != "" {
		_ = metrics.Serve(cfg.App.MetricsAddr)
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine, err := strategy.NewEngine(cfg.Exchange.Symbol, cfg.Strategy, log)
	if err != nil {
		return err
	}
	account := portfolio.NewAccount(cfg.Exchange.Symbol, cfg.Portfolio.StartingCash)

	var st *store.Store
	if cfg.Store.Path != "" {
		if st, err = store.Open(cfg.Store.Path); err != nil {
			return err
		}
		defer st.Close()
	}
	var recorder portfolio.FillRecorder
	if cfg.Portfolio.FillsPath != "" {
		jsonl, err := portfolio.NewJSONLRecorder(cfg.Portfolio.FillsPath)
		if err != nil {
			return err
		}
		defer jsonl.Close()
		recorder = jsonl
	}

	runner := live.NewRunner(engine, account, execution.NewExecutor(log), st, recorder, log)
	if err := runner.Resume(); err != nil {
		return err
	}

	// Cold engines backfill their indicator warm-up over REST before
	// consuming the stream.
	if len(engine.State().Bars) < cfg.Strategy.Indicator.MinBars() && provider == exchange.ProviderBinance {
		if err := backfill(ctx, cfg, engine, runner, log); err != nil {
			return err
		}
	}

	feed := exchange.NewFeed(provider, cfg.Exchange.Symbol, cfg.Exchange.Interval, log,
		exchange.WithWSBaseURL(cfg.Exchange.WSBaseURL))
	bars := make(chan market.Bar, 64)
	go func() {
		if err := feed.Run(ctx, bars); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	log.Info().Str("symbol", cfg.Exchange.Symbol).Str("interval", cfg.Exchange.Interval).
		Str("provider", provider).Msg("live loop started")
	err = runner.Run(ctx, bars)
	if err == context.Canceled {
		log.Info().Msg("shutting down")
		err = nil
	}
	return err
}

func backfill(ctx context.Context, cfg *config.Config, engine *strategy.Engine, runner *live.Runner, log zerolog.Logger) error {
	step := exchange.IntervalDuration(cfg.Exchange.Interval)
	span := time.Duration(cfg.Strategy.Indicator.MinBars()+50) * step
	history := exchange.NewHistory(cfg.Exchange.RESTBaseURL, cfg.Exchange.RequestsPerSecond, log)

	bars, err := history.Klines(ctx, cfg.Exchange.Symbol, cfg.Exchange.Interval,
		time.Now().Add(-span), time.Now())
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}
	for _, bar := range bars {
		if err := runner.OnBar(bar); err != nil {
			return fmt.Errorf("backfill replay: %w", err)
		}
	}
	log.Info().Int("bars", len(bars)).Msg("backfilled history")
	return nil
}

func newFetchCmd(cfgPath *string) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download candle history into the local cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			log := util.NewConsoleLogger(cfg.App.LogLevel)

			history := exchange.NewHistory(cfg.Exchange.RESTBaseURL, cfg.Exchange.RequestsPerSecond, log)
			bars, err := history.Klines(cmd.Context(), cfg.Exchange.Symbol, cfg.Exchange.Interval,
				time.Now().AddDate(0, 0, -days), time.Now())
			if err != nil {
				return err
			}
			if len(bars) == 0 {
				return fmt.Errorf("no history returned for %s", cfg.Exchange.Symbol)
			}

			saver := cache.Must(cfg.Data.CacheFormat)
			if err := os.MkdirAll(cfg.Data.CacheDir, 0o755); err != nil {
				return err
			}
			path := cache.FileName(cfg.Data.CacheDir, cfg.Exchange.Symbol, cfg.Exchange.Interval, saver)
			if err := saver.Save(bars, path); err != nil {
				return err
			}
			log.Info().Int("bars", len(bars)).Str("path", path).Msg("history cached")
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 90, "days of history to fetch")
	return cmd
}

func newBacktestCmd(cfgPath *string) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Replay cached candle history through the engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			log := util.NewConsoleLogger(cfg.App.LogLevel)

			saver := cache.Must(cfg.Data.CacheFormat)
			path := cache.FileName(cfg.Data.CacheDir, cfg.Exchange.Symbol, cfg.Exchange.Interval, saver)
			bars, err := saver.Load(path)
			if err != nil {
				return fmt.Errorf("load cache %s (run fetch first): %w", path, err)
			}

			runner, err := backtest.NewRunner(cfg.Exchange.Symbol, cfg.Strategy, cfg.Portfolio.StartingCash, log)
			if err != nil {
				return err
			}
			result, err := runner.Run(bars)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			log.Info().
				Int("bars", len(bars)).
				Int("trades", result.Summary.Trades).
				Float64("pnl", result.Summary.PnL).
				Float64("win_rate", result.Summary.WinRate).
				Float64("profit_factor", result.Summary.ProfitFactor).
				Float64("max_drawdown_pct", result.Summary.MaxDrawdownPct).
				Float64("final_equity", result.FinalEquity).
				Msg("backtest complete")
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the full result as JSON")
	return cmd
}

func newConfigCmd(cfgPath *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(*cfgPath); err != nil {
				return err
			}
			fmt.Println("configuration ok")
			return nil
		},
	})
	return configCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("momentum %s\n", Version)
		},
	}
}
