package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks reserve operations by pair, kind and result.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reserve_operations_total",
			Help: "Total number of reserve operations (by pair, kind and result).",
		},
		[]string{"pair", "kind", "result"}, // kind = quote | issue | retire | update_supply
	)

	// Measures duration of reserve operations.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reserve_operation_duration_seconds",
			Help:    "Duration of reserve operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15), // 10µs → ~160ms
		},
		[]string{"pair", "kind"},
	)

	// Gauges the external currency held per reserve account.
	ReserveBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reserve_balance",
			Help: "External currency held by each reserve account.",
		},
		[]string{"pair"},
	)

	// Gauges the marginal issuance price per reserve account.
	MarginalPrice = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reserve_marginal_price",
			Help: "Current front-of-ladder issuance price per account.",
		},
		[]string{"pair"},
	)

	// Tracks NATS messages published by subject and result.
	NATSMessageCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_messages_total",
			Help: "Total number of NATS messages published.",
		},
		[]string{"subject", "result"}, // result = "ok" | "error"
	)

	NATSMessageLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nats_message_latency_seconds",
			Help:    "Time taken to publish NATS messages",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"subject"},
	)

	// Tracks arbitrage round trips executed by the driver.
	ArbTradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_trades_total",
			Help: "Arbitrage trades executed against the reserve (by pair and direction).",
		},
		[]string{"pair", "direction"}, // direction = issue | retire
	)

	// Tracks total errors (aggregated).
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reserve_errors_total",
			Help: "Count of service-level errors by component.",
		},
		[]string{"component", "reason"},
	)
)

// ObserveDuration records the time taken since start on the given histogram.
func ObserveDuration(h *prometheus.HistogramVec, start time.Time, labels ...string) {
	h.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
}

func IncOperation(pair, kind, result string) {
	OperationsTotal.WithLabelValues(pair, kind, result).Inc()
}

func IncNATSMessage(subject, result string) {
	NATSMessageCount.WithLabelValues(subject, result).Inc()
}

func IncError(component, reason string) {
	ErrorsTotal.WithLabelValues(component, reason).Inc()
}
