package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/fuel-reserve/internal/config"
	"github.com/Checker-Finance/fuel-reserve/internal/metrics"
	"github.com/Checker-Finance/fuel-reserve/internal/rate"
	"github.com/Checker-Finance/fuel-reserve/internal/reserve"
	"github.com/Checker-Finance/fuel-reserve/internal/store"
	"github.com/Checker-Finance/fuel-reserve/pkg/eventbus"
	"github.com/Checker-Finance/fuel-reserve/pkg/model"
)

// SummaryCacheKey is where the refresher and API share the cached summary.
const SummaryCacheKey = "reserve:summary"

// EventPublisher is the outbound event surface the service needs.
type EventPublisher interface {
	PublishOperation(ctx context.Context, subject string, op model.OperationEvent) error
	Publish(ctx context.Context, subject string, payload any) error
}

// Service orchestrates reserve account operations: per-pair rate limiting,
// the core state machine, the operation journal, NATS events, the in-process
// bus and metrics. The registry's accounts remain the state of record; every
// side effect here is write-behind and never blocks or fails an operation.
type Service struct {
	registry *reserve.Registry
	logger   *zap.Logger
	rateMgr  *rate.Manager
	bus      *eventbus.EventBus
	store    store.Store    // optional
	pub      EventPublisher // optional
}

// New constructs the service. store and pub may be nil in environments
// without the backing infrastructure.
func New(
	registry *reserve.Registry,
	logger *zap.Logger,
	rateMgr *rate.Manager,
	bus *eventbus.EventBus,
	st store.Store,
	pub EventPublisher,
) *Service {
	return &Service{
		registry: registry,
		logger:   logger,
		rateMgr:  rateMgr,
		bus:      bus,
		store:    st,
		pub:      pub,
	}
}

// Registry exposes the underlying account registry for read-only consumers.
func (s *Service) Registry() *reserve.Registry {
	return s.registry
}

// CreateAccount registers a new reserve account.
func (s *Service) CreateAccount(ctx context.Context, seed config.SeedAccount) (*reserve.Account, error) {
	acc, err := s.registry.Create(seed.Pair, seed.SupplyFactor, seed.StartPrice, seed.ReserveBalance)
	if err != nil {
		return nil, err
	}

	s.logger.Info("reserve.account_created",
		zap.String("pair", seed.Pair),
		zap.String("start_price", seed.StartPrice.String()),
		zap.String("supply_factor", seed.SupplyFactor.String()),
	)
	s.snapshot(ctx, acc)
	return acc, nil
}

// Quote returns the marginal tranche for the pair and side.
func (s *Service) Quote(ctx context.Context, pair string, side reserve.Side) (reserve.Tranche, error) {
	acc, err := s.registry.Get(pair)
	if err != nil {
		return reserve.Tranche{}, err
	}

	t, err := acc.Quote(side)
	if err != nil {
		metrics.IncOperation(pair, "quote", "error")
		return reserve.Tranche{}, err
	}
	metrics.IncOperation(pair, "quote", "ok")
	return t, nil
}

// Issue emits Fuel against the pair's issuance ladder.
func (s *Service) Issue(ctx context.Context, pair string, volume decimal.Decimal) (reserve.IssueResult, error) {
	acc, err := s.registry.Get(pair)
	if err != nil {
		return reserve.IssueResult{}, err
	}
	if err := s.rateMgr.Wait(ctx, pair); err != nil {
		return reserve.IssueResult{}, err
	}

	start := time.Now()
	res, err := acc.Issue(volume)
	metrics.ObserveDuration(metrics.OperationDuration, start, pair, "issue")
	if err != nil {
		metrics.IncOperation(pair, "issue", "error")
		return reserve.IssueResult{}, err
	}
	metrics.IncOperation(pair, "issue", "ok")

	s.logger.Info("reserve.issue.success",
		zap.String("pair", pair),
		zap.String("volume", res.Issued.String()),
		zap.String("avg_price", res.AvgPrice.String()),
		zap.String("cost", res.Cost.String()),
	)

	s.afterOperation(ctx, acc, model.OperationEvent{
		OperationID: uuid.New(),
		Pair:        pair,
		Kind:        "issue",
		Volume:      res.Issued,
		AvgPrice:    res.AvgPrice,
		Notional:    res.Cost,
		Balance:     acc.ReserveBalance(),
		Timestamp:   time.Now().UTC(),
	}, model.SubjectIssued)

	return res, nil
}

// Retire destroys Fuel against the pair's retirement ladder.
func (s *Service) Retire(ctx context.Context, pair string, volume decimal.Decimal) (reserve.RetireResult, error) {
	acc, err := s.registry.Get(pair)
	if err != nil {
		return reserve.RetireResult{}, err
	}
	if err := s.rateMgr.Wait(ctx, pair); err != nil {
		return reserve.RetireResult{}, err
	}

	start := time.Now()
	res, err := acc.Retire(volume)
	metrics.ObserveDuration(metrics.OperationDuration, start, pair, "retire")
	if err != nil {
		metrics.IncOperation(pair, "retire", "error")
		return reserve.RetireResult{}, err
	}
	metrics.IncOperation(pair, "retire", "ok")

	s.logger.Info("reserve.retire.success",
		zap.String("pair", pair),
		zap.String("volume", res.Retired.String()),
		zap.String("avg_price", res.AvgPrice.String()),
		zap.String("proceeds", res.Proceeds.String()),
	)

	s.afterOperation(ctx, acc, model.OperationEvent{
		OperationID: uuid.New(),
		Pair:        pair,
		Kind:        "retire",
		Volume:      res.Retired,
		AvgPrice:    res.AvgPrice,
		Notional:    res.Proceeds,
		Balance:     acc.ReserveBalance(),
		Timestamp:   time.Now().UTC(),
	}, model.SubjectRetired)

	return res, nil
}

// UpdateSupply changes the pair's supply factor for future ladder refills.
func (s *Service) UpdateSupply(ctx context.Context, pair string, factor decimal.Decimal) error {
	acc, err := s.registry.Get(pair)
	if err != nil {
		return err
	}
	if err := acc.UpdateSupply(factor); err != nil {
		metrics.IncOperation(pair, "update_supply", "error")
		return err
	}
	metrics.IncOperation(pair, "update_supply", "ok")

	s.logger.Info("reserve.supply_updated",
		zap.String("pair", pair),
		zap.String("factor", factor.String()),
	)

	if s.pub != nil {
		evt := model.SupplyUpdatedEvent{Pair: pair, Factor: factor, Timestamp: time.Now().UTC()}
		if err := s.pub.Publish(ctx, model.SubjectSupplyUpdated, evt); err != nil {
			s.logger.Warn("reserve.supply_updated.publish_failed", zap.Error(err))
		}
	}
	s.snapshot(ctx, acc)
	return nil
}

// Summary builds the multi-account reporting table and refreshes its cache.
func (s *Service) Summary(ctx context.Context) reserve.Summary {
	sum := reserve.BuildSummary(s.registry.List())

	if s.store != nil {
		if err := s.store.SetJSON(ctx, SummaryCacheKey, sum, 5*time.Minute); err != nil {
			s.logger.Warn("reserve.summary.cache_failed", zap.Error(err))
		}
	}
	return sum
}

// afterOperation fans a completed operation out to the bus, journal, NATS and
// the balance gauges.
func (s *Service) afterOperation(ctx context.Context, acc *reserve.Account, op model.OperationEvent, subject string) {
	if s.bus != nil {
		s.bus.Publish(op)
	}

	if s.store != nil {
		if err := s.store.RecordOperation(ctx, op); err != nil {
			s.logger.Warn("store.record_operation_failed",
				zap.String("pair", op.Pair),
				zap.Error(err))
		}
	}

	if s.pub != nil {
		if err := s.pub.PublishOperation(ctx, subject, op); err != nil {
			s.logger.Warn("publish_failed",
				zap.String("pair", op.Pair),
				zap.Error(err))
		}
	}

	s.snapshot(ctx, acc)
}

// snapshot projects the account into the snapshot table and gauges.
func (s *Service) snapshot(ctx context.Context, acc *reserve.Account) {
	balance := acc.ReserveBalance()

	fuel := decimal.Zero
	for _, t := range acc.RetirementLadder() {
		fuel = fuel.Add(t.Volume)
	}

	marginal := decimal.Zero
	if t, err := acc.Quote(reserve.SideBuy); err == nil {
		marginal = t.Price
	}

	bal, _ := balance.Float64()
	metrics.ReserveBalance.WithLabelValues(acc.Pair()).Set(bal)
	px, _ := marginal.Float64()
	metrics.MarginalPrice.WithLabelValues(acc.Pair()).Set(px)

	if s.store == nil {
		return
	}
	snap := model.AccountSnapshot{
		Pair:            acc.Pair(),
		ReserveBalance:  balance,
		SupplyFactor:    acc.SupplyFactor(),
		MarginalPrice:   marginal,
		FuelOutstanding: fuel,
		AsOf:            time.Now().UTC(),
	}
	if err := s.store.UpdateAccountSnapshot(ctx, snap); err != nil {
		s.logger.Warn("store.update_snapshot_failed",
			zap.String("pair", acc.Pair()),
			zap.Error(err))
	}
}
