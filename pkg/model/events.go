package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event subjects published to NATS.
const (
	SubjectIssued           = "evt.reserve.issued.v1"
	SubjectRetired          = "evt.reserve.retired.v1"
	SubjectSupplyUpdated    = "evt.reserve.supply_updated.v1"
	SubjectSummaryRefreshed = "evt.reserve.summary.refreshed.v1"
)

// Envelope is the canonical wrapper for events on the wire.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// OperationEvent describes one completed reserve operation (issue or retire).
type OperationEvent struct {
	OperationID uuid.UUID       `json:"operation_id"`
	Pair        string          `json:"pair"`
	Kind        string          `json:"kind"` // "issue" | "retire"
	Volume      decimal.Decimal `json:"volume"`
	AvgPrice    decimal.Decimal `json:"avg_price"`
	Notional    decimal.Decimal `json:"notional"` // cost for issues, proceeds for retirements
	Balance     decimal.Decimal `json:"balance"`  // reserve balance after the operation
	Timestamp   time.Time       `json:"timestamp"`
}

// SupplyUpdatedEvent describes a supply-factor change.
type SupplyUpdatedEvent struct {
	Pair      string          `json:"pair"`
	Factor    decimal.Decimal `json:"factor"`
	Timestamp time.Time       `json:"timestamp"`
}
