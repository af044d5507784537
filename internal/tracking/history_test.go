package tracking

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/fuel-reserve/pkg/eventbus"
	"github.com/Checker-Finance/fuel-reserve/pkg/model"
)

func TestHistory_RecordsNewestFirst(t *testing.T) {
	bus := eventbus.New()
	h := NewHistory(bus, 10, zap.NewNop())

	for i := 0; i < 3; i++ {
		bus.PublishSync(model.OperationEvent{
			OperationID: uuid.New(),
			Pair:        "USD",
			Kind:        "issue",
		})
	}

	require.Equal(t, 3, h.Count("USD"))
	assert.Len(t, h.Recent("USD", 2), 2)
	assert.Empty(t, h.Recent("EUR", 10))
}

func TestHistory_DepthBounded(t *testing.T) {
	bus := eventbus.New()
	h := NewHistory(bus, 5, zap.NewNop())

	for i := 0; i < 20; i++ {
		bus.PublishSync(model.OperationEvent{OperationID: uuid.New(), Pair: "USD", Kind: "issue"})
	}

	assert.Equal(t, 5, h.Count("USD"))
}

func TestHistory_PerPairIsolation(t *testing.T) {
	bus := eventbus.New()
	h := NewHistory(bus, 10, zap.NewNop())

	for i, pair := range []string{"USD", "EUR", "USD"} {
		bus.PublishSync(model.OperationEvent{
			OperationID: uuid.New(),
			Pair:        pair,
			Kind:        fmt.Sprintf("op-%d", i),
		})
	}

	require.Equal(t, 2, h.Count("USD"))
	require.Equal(t, 1, h.Count("EUR"))

	// Newest first.
	assert.Equal(t, "op-2", h.Recent("USD", 1)[0].Kind)
}
