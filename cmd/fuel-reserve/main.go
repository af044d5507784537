package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/Checker-Finance/fuel-reserve/internal/api"
	"github.com/Checker-Finance/fuel-reserve/internal/arb"
	"github.com/Checker-Finance/fuel-reserve/internal/commands"
	"github.com/Checker-Finance/fuel-reserve/internal/config"
	"github.com/Checker-Finance/fuel-reserve/internal/httpclient"
	"github.com/Checker-Finance/fuel-reserve/internal/jobs"
	"github.com/Checker-Finance/fuel-reserve/internal/publisher"
	"github.com/Checker-Finance/fuel-reserve/internal/rate"
	"github.com/Checker-Finance/fuel-reserve/internal/reserve"
	"github.com/Checker-Finance/fuel-reserve/internal/service"
	"github.com/Checker-Finance/fuel-reserve/internal/store"
	"github.com/Checker-Finance/fuel-reserve/internal/tracking"
	"github.com/Checker-Finance/fuel-reserve/pkg/eventbus"
	"github.com/Checker-Finance/fuel-reserve/pkg/logger"
	"github.com/Checker-Finance/fuel-reserve/pkg/secrets"
	"github.com/Checker-Finance/fuel-reserve/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [fuel-reserve]...")

	// --- Database URL from AWS Secrets Manager (optional) ---
	if cfg.DatabaseSecretID != "" {
		dsn, err := resolveDatabaseURL(ctx, cfg.AWSRegion, cfg.DatabaseSecretID)
		if err != nil {
			logg.Fatalw("failed to resolve database secret", "error", err)
		}
		cfg.DatabaseURL = dsn
	}
	if cfg.DatabaseURL != "" {
		logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))
	}

	// --- Connect to NATS ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logg.Fatalw("failed to connect to NATS", "error", err)
	}

	// --- Publisher ---
	pub, err := publisher.New(nc, cfg.OutboundSubject, cfg.ServiceName)
	if err != nil {
		logg.Fatalw("failed to init publisher", "error", err)
	}

	// --- Rate limiter ---
	rateMgr := rate.NewManager(rate.Config{
		RequestsPerSecond: 50,
		Burst:             100,
		Cooldown:          1 * time.Second,
	})

	// --- Store (Redis + Postgres hybrid) ---
	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisDB, cfg.DatabaseURL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, logger.L())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- Event bus and operation history ---
	bus := eventbus.New()
	history := tracking.NewHistory(bus, cfg.ArbHistoryDepth, logger.L())

	// --- Reserve accounts ---
	registry := reserve.NewRegistry()
	svc := service.New(registry, logger.L(), rateMgr, bus, st, pub)
	for _, seed := range cfg.Seeds {
		if _, err := svc.CreateAccount(ctx, seed); err != nil {
			logg.Fatalw("failed to seed reserve account",
				"pair", seed.Pair,
				"error", err)
		}
	}
	logg.Infow("seeded reserve accounts", "count", registry.Len(), "pairs", registry.Pairs())

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	handler := api.NewReserveHandler(logger.L(), svc, history, st)
	api.RegisterRoutes(app, nc, st, handler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	// --- RabbitMQ command intake (optional) ---
	var consumer *commands.Consumer
	if cfg.RabbitURL != "" {
		consumer, err = commands.NewConsumer(cfg.RabbitURL, svc, logger.L())
		if err != nil {
			logg.Fatalw("failed to init RabbitMQ consumer", "error", err)
		}
		if err := consumer.Start(ctx); err != nil {
			logg.Fatalw("failed to start RabbitMQ consumer", "error", err)
		}
	} else {
		logg.Warn("RABBITMQ_URL not configured; command intake disabled")
	}

	// --- Summary refresher ---
	refresher := jobs.NewSummaryRefresher(logger.L(), svc, pub, cfg.SummaryInterval)
	go refresher.Start(ctx)

	// --- Arbitrage driver (optional) ---
	var trader *arb.Trader
	var wsSource *arb.WSRateSource
	var httpSource *arb.HTTPRateSource
	if cfg.ArbEnabled && cfg.ArbRatesURL != "" {
		var source arb.RateSource
		if strings.HasPrefix(cfg.ArbRatesURL, "ws") {
			wsSource = arb.NewWSRateSource(cfg.ArbRatesURL, logger.L())
			if err := wsSource.Connect(ctx); err != nil {
				logg.Fatalw("failed to connect to rate stream", "error", err)
			}
			source = wsSource
		} else {
			exec := httpclient.New(logger.L(), rateMgr, &http.Client{Timeout: 10 * time.Second}, 2, "rates", nil)
			httpSource = arb.NewHTTPRateSource(cfg.ArbRatesURL, exec, cfg.ArbInterval, logger.L())
			httpSource.Start(ctx)
			source = httpSource
		}

		trader = arb.NewTrader(logger.L(), svc, source, cfg.ArbInterval, cfg.ArbEdge, cfg.ArbClipVolume)
		trader.Start(ctx)
	}

	logg.Infow("[fuel-reserve] running",
		"nats", cfg.NATSURL,
		"env", cfg.Env,
		"pairs", registry.Pairs(),
		"arb_enabled", cfg.ArbEnabled)

	<-ctx.Done()
	logg.Info("shutting down [fuel-reserve]...")

	if trader != nil {
		trader.Stop()
	}
	if wsSource != nil {
		_ = wsSource.Close()
	}
	if httpSource != nil {
		_ = httpSource.Close()
	}
	refresher.Stop()
	if consumer != nil {
		_ = consumer.Close()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logg.Warnw("nats.drain_failed", "error", err)
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}

var secretCache = secrets.NewCache[map[string]string](1 * time.Hour)

// resolveDatabaseURL fetches the database connection string from AWS Secrets
// Manager. The secret is expected to be a JSON map with a "database_url" key.
func resolveDatabaseURL(ctx context.Context, region, secretID string) (string, error) {
	values, ok := secretCache.Get(secretID)
	if !ok {
		provider, err := secrets.NewAWSProvider(region)
		if err != nil {
			return "", err
		}
		values, err = provider.GetSecret(ctx, secretID)
		if err != nil {
			return "", err
		}
		secretCache.Put(secretID, values)
	}

	dsn, ok := values["database_url"]
	if !ok || dsn == "" {
		return "", fmt.Errorf("secret [%s] has no database_url entry", secretID)
	}
	return dsn, nil
}
