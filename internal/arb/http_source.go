package arb

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/fuel-reserve/internal/httpclient"
)

// HTTPRateSource polls a REST endpoint that returns the current rate set
// as a JSON array of ticks. It is the fallback when no stream is available.
type HTTPRateSource struct {
	url      string
	exec     *httpclient.Executor
	logger   *zap.Logger
	interval time.Duration

	rates   map[string]decimal.Decimal
	ratesMu sync.RWMutex
	done    chan struct{}
}

// NewHTTPRateSource creates a polling rate source.
func NewHTTPRateSource(url string, exec *httpclient.Executor, interval time.Duration, logger *zap.Logger) *HTTPRateSource {
	return &HTTPRateSource{
		url:      url,
		exec:     exec,
		logger:   logger,
		interval: interval,
		rates:    make(map[string]decimal.Decimal),
		done:     make(chan struct{}),
	}
}

// Start launches the polling loop.
func (s *HTTPRateSource) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.poll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.poll(ctx)
			}
		}
	}()
}

// Close stops the polling loop.
func (s *HTTPRateSource) Close() error {
	close(s.done)
	return nil
}

// Rate returns the latest polled rate for pair.
func (s *HTTPRateSource) Rate(pair string) (decimal.Decimal, bool) {
	s.ratesMu.RLock()
	defer s.ratesMu.RUnlock()
	r, ok := s.rates[pair]
	return r, ok
}

func (s *HTTPRateSource) poll(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		s.logger.Error("rates.poll.bad_request", zap.Error(err))
		return
	}

	var ticks []rateTick
	if err := s.exec.DoJSON(ctx, req, "rates", &ticks); err != nil {
		s.logger.Warn("rates.poll.failed", zap.Error(err))
		return
	}

	s.ratesMu.Lock()
	for _, t := range ticks {
		if t.Pair == "" || !t.Rate.IsPositive() {
			continue
		}
		s.rates[t.Pair] = t.Rate
	}
	s.ratesMu.Unlock()
}
