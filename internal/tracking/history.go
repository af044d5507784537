package tracking

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Checker-Finance/fuel-reserve/pkg/eventbus"
	"github.com/Checker-Finance/fuel-reserve/pkg/model"
)

// History keeps the most recent reserve operations per currency pair for the
// operations API. It is fed by the in-process event bus so the service layer
// never blocks on it.
type History struct {
	mu    sync.RWMutex
	depth int
	ops   map[string][]model.OperationEvent // pair -> newest first
}

// NewHistory creates a tracker retaining up to depth operations per pair and
// subscribes it to the event bus.
func NewHistory(bus *eventbus.EventBus, depth int, logger *zap.Logger) *History {
	if depth <= 0 {
		depth = 250
	}
	h := &History{
		depth: depth,
		ops:   make(map[string][]model.OperationEvent),
	}

	bus.Subscribe(model.OperationEvent{}, func(event interface{}) {
		op, ok := event.(model.OperationEvent)
		if !ok {
			logger.Warn("tracking.unexpected_event_type")
			return
		}
		h.record(op)
	})

	return h
}

func (h *History) record(op model.OperationEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ops := append([]model.OperationEvent{op}, h.ops[op.Pair]...)
	if len(ops) > h.depth {
		ops = ops[:h.depth]
	}
	h.ops[op.Pair] = ops
}

// Recent returns up to limit operations for the pair, newest first.
func (h *History) Recent(pair string, limit int) []model.OperationEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ops := h.ops[pair]
	if limit <= 0 || limit > len(ops) {
		limit = len(ops)
	}
	out := make([]model.OperationEvent, limit)
	copy(out, ops[:limit])
	return out
}

// Count returns the number of retained operations for the pair.
func (h *History) Count(pair string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.ops[pair])
}
