package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dmarques/ciclo/config"
	"github.com/dmarques/ciclo/internal/bot"
	"github.com/dmarques/ciclo/internal/exchange"
	"github.com/dmarques/ciclo/internal/market"
	"github.com/dmarques/ciclo/internal/reporter"
	"github.com/dmarques/ciclo/internal/sizer"
	"github.com/dmarques/ciclo/internal/storage/journal"
	"github.com/dmarques/ciclo/internal/strategy"
	"github.com/dmarques/ciclo/internal/trader"
	"github.com/dmarques/ciclo/internal/web"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	configs, err := config.Get()
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	jrnl, err := journal.Open(configs[0].JournalDir)
	if err != nil {
		logger.Fatal("failed to open event journal", zap.Error(err))
	}
	defer jrnl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	server := web.NewServer(configs[0].ListenAddr, jrnl, logger)
	g.Go(func() error {
		return server.Start(ctx)
	})
	logger.Info("web server started", zap.String("addr", configs[0].ListenAddr))

	for _, conf := range configs {
		ex, err := newExchange(conf)
		if err != nil {
			logger.Fatal("failed to create exchange client", zap.Error(err))
		}

		rule, err := strategy.ForName(conf.Strategy)
		if err != nil {
			logger.Fatal("failed to resolve strategy", zap.Error(err))
		}

		collector := market.NewCollector(ex, conf.Pair, conf.Interval, conf.CandlesLimit)
		executor := trader.NewExecutor(ex, jrnl, logger)
		szr := sizer.New(conf.Allocation, conf.MinQuote)

		b := bot.New(logger, conf.Pair, rule, szr, collector, ex, executor, jrnl,
			conf.PollInterval, conf.FetchBackoff)
		g.Go(func() error {
			return b.Run(ctx)
		})

		rep := reporter.New(logger, conf.Pair, ex, jrnl, conf.BalanceReportInterval)
		g.Go(func() error {
			return rep.Run(ctx)
		})

		logger.Info("started",
			zap.String("pair", conf.Pair.String()),
			zap.String("platform", conf.Platform),
			zap.String("strategy", conf.Strategy))
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("shutdown with error", zap.Error(err))
		return
	}
	logger.Info("shutdown complete")
}

func newExchange(conf config.Config) (exchange.Exchange, error) {
	switch conf.Platform {
	case "binance":
		apiKey := os.Getenv("BINANCE_API_KEY")
		apiSecret := os.Getenv("BINANCE_API_SECRET")
		if apiKey == "" || apiSecret == "" {
			return nil, errors.New("BINANCE_API_KEY and BINANCE_API_SECRET envs must be set")
		}
		return exchange.NewBinanceExchange(apiKey, apiSecret, conf.Testnet), nil
	case "bybit":
		apiKey := os.Getenv("BYBIT_API_KEY")
		apiSecret := os.Getenv("BYBIT_API_SECRET")
		if apiKey == "" || apiSecret == "" {
			return nil, errors.New("BYBIT_API_KEY and BYBIT_API_SECRET envs must be set")
		}
		return exchange.NewBybitExchange(apiKey, apiSecret, conf.Testnet), nil
	default:
		return nil, errors.Errorf("unsupported platform %q", conf.Platform)
	}
}
