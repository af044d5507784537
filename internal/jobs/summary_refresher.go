package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/fuel-reserve/internal/reserve"
	"github.com/Checker-Finance/fuel-reserve/pkg/model"
)

// SummaryProvider recomputes and caches the multi-account summary.
type SummaryProvider interface {
	Summary(ctx context.Context) reserve.Summary
}

// EventPublisher emits summary refresh events.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// SummaryRefresher periodically recomputes the reserve summary so the
// cached copy stays warm, and emits a NATS event indicating summary
// recalculation completion.
type SummaryRefresher struct {
	logger    *zap.Logger
	provider  SummaryProvider
	publisher EventPublisher
	interval  time.Duration
	stopCh    chan struct{}
}

// NewSummaryRefresher constructs a background job that runs periodically.
// publisher is optional.
func NewSummaryRefresher(logger *zap.Logger, provider SummaryProvider, pub EventPublisher, interval time.Duration) *SummaryRefresher {
	return &SummaryRefresher{
		logger:    logger,
		provider:  provider,
		publisher: pub,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start runs the summary refresh loop.
func (r *SummaryRefresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("summary_refresher.started", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ticker.C:
			r.runOnce(ctx)
		case <-r.stopCh:
			r.logger.Info("summary_refresher.stopped (manual stop)")
			return
		case <-ctx.Done():
			r.logger.Info("summary_refresher.stopped (context canceled)")
			return
		}
	}
}

// Stop gracefully halts the refresher.
func (r *SummaryRefresher) Stop() {
	close(r.stopCh)
}

// runOnce executes one refresh cycle.
func (r *SummaryRefresher) runOnce(ctx context.Context) {
	start := time.Now()

	sum := r.provider.Summary(ctx)

	if r.publisher != nil {
		event := map[string]any{
			"event":       model.SubjectSummaryRefreshed,
			"timestamp":   time.Now().UTC(),
			"rows":        len(sum.Rows),
			"total_fuel":  sum.TotalFuel.String(),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if err := r.publisher.Publish(ctx, model.SubjectSummaryRefreshed, event); err != nil {
			r.logger.Warn("summary_refresher.nats_publish_failed", zap.Error(err))
		}
	}

	r.logger.Info("summary_refresher.success",
		zap.Int("rows", len(sum.Rows)),
		zap.Duration("duration", time.Since(start)))
}
