package arb

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/fuel-reserve/internal/metrics"
	"github.com/Checker-Finance/fuel-reserve/internal/reserve"
)

// ReserveService defines the reserve operations the trader drives.
type ReserveService interface {
	Quote(ctx context.Context, pair string, side reserve.Side) (reserve.Tranche, error)
	Issue(ctx context.Context, pair string, volume decimal.Decimal) (reserve.IssueResult, error)
	Retire(ctx context.Context, pair string, volume decimal.Decimal) (reserve.RetireResult, error)
	Registry() *reserve.Registry
}

// Trader polls an external rate source and trades against the reserve
// whenever the external rate diverges from the marginal ladder price by
// more than the configured edge.
type Trader struct {
	logger   *zap.Logger
	service  ReserveService
	source   RateSource
	interval time.Duration
	edge     decimal.Decimal
	clip     decimal.Decimal
	stopCh   chan struct{}
}

// NewTrader creates a new arbitrage trader.
func NewTrader(
	logger *zap.Logger,
	service ReserveService,
	source RateSource,
	interval time.Duration,
	edge decimal.Decimal,
	clip decimal.Decimal,
) *Trader {
	return &Trader{
		logger:   logger,
		service:  service,
		source:   source,
		interval: interval,
		edge:     edge,
		clip:     clip,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the polling loop.
func (t *Trader) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		t.logger.Info("arb.trader.started",
			zap.Duration("interval", t.interval),
			zap.String("edge", t.edge.String()),
			zap.String("clip", t.clip.String()))

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.stopCh:
				return
			case <-ticker.C:
				t.Scan(ctx)
			}
		}
	}()
}

// Stop stops the polling loop.
func (t *Trader) Stop() {
	close(t.stopCh)
}

// Scan evaluates every registered pair once and trades where the edge
// threshold is met.
func (t *Trader) Scan(ctx context.Context) {
	for _, pair := range t.service.Registry().Pairs() {
		rate, ok := t.source.Rate(pair)
		if !ok {
			continue
		}
		t.evaluate(ctx, pair, rate)
	}
}

func (t *Trader) evaluate(ctx context.Context, pair string, rate decimal.Decimal) {
	one := decimal.New(1, 0)

	// External rate above the marginal issue price: mint here, sell there.
	if buy, err := t.service.Quote(ctx, pair, reserve.SideBuy); err == nil {
		threshold := buy.Price.Mul(one.Add(t.edge))
		if rate.GreaterThanOrEqual(threshold) {
			res, err := t.service.Issue(ctx, pair, t.clip)
			if err != nil {
				t.logger.Warn("arb.issue.failed",
					zap.String("pair", pair),
					zap.Error(err))
				return
			}
			metrics.ArbTradesTotal.WithLabelValues(pair, "issue").Inc()
			t.logger.Info("arb.issue.executed",
				zap.String("pair", pair),
				zap.String("external_rate", rate.String()),
				zap.String("marginal_price", buy.Price.String()),
				zap.String("cost", res.Cost.String()))
			return
		}
	}

	// External rate below the marginal retire price: buy there, retire here.
	if sell, err := t.service.Quote(ctx, pair, reserve.SideSell); err == nil {
		threshold := sell.Price.Mul(one.Sub(t.edge))
		if rate.LessThanOrEqual(threshold) {
			res, err := t.service.Retire(ctx, pair, t.clip)
			if err != nil {
				t.logger.Warn("arb.retire.failed",
					zap.String("pair", pair),
					zap.Error(err))
				return
			}
			metrics.ArbTradesTotal.WithLabelValues(pair, "retire").Inc()
			t.logger.Info("arb.retire.executed",
				zap.String("pair", pair),
				zap.String("external_rate", rate.String()),
				zap.String("marginal_price", sell.Price.String()),
				zap.String("proceeds", res.Proceeds.String()))
		}
	}
}
