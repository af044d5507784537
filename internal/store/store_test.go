package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/fuel-reserve/pkg/model"
)

func newTestStore(t *testing.T) (*HybridStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return &HybridStore{redis: rdb}, mr
}

func TestSetAndGetJSON(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	snap := model.AccountSnapshot{Pair: "USD", AsOf: time.Now().UTC()}
	require.NoError(t, store.SetJSON(ctx, "reserve:snapshot:USD", snap, time.Minute))

	var got model.AccountSnapshot
	require.NoError(t, store.GetJSON(ctx, "reserve:snapshot:USD", &got))
	assert.Equal(t, "USD", got.Pair)
}

func TestGetJSON_CacheMiss(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	var got model.AccountSnapshot
	err := store.GetJSON(ctx, "reserve:snapshot:EUR", &got)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestSetJSON_Expiration(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	require.NoError(t, store.SetJSON(ctx, "test:key", map[string]string{"k": "v"}, 200*time.Millisecond))

	mr.FastForward(300 * time.Millisecond)

	var got map[string]string
	err := store.GetJSON(ctx, "test:key", &got)
	assert.Error(t, err, "expected error for expired key")
}

func TestGetJSON_RoundTripsSummary(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	payload := map[string]any{
		"rows": []map[string]string{
			{"currency": "USD", "reserves": "150.5"},
		},
		"total_fuel_credits": "6500000",
	}
	data, _ := json.Marshal(payload)
	require.NoError(t, mr.Set("reserve:summary", string(data)))

	var got map[string]any
	require.NoError(t, store.GetJSON(ctx, "reserve:summary", &got))
	assert.Contains(t, got, "rows")
}

func TestRecordOperation_NoPGIsNoop(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	err := store.RecordOperation(context.Background(), model.OperationEvent{Pair: "USD", Kind: "issue"})
	assert.NoError(t, err)
}

func TestHealthCheck(t *testing.T) {
	store, mr := newTestStore(t)

	require.NoError(t, store.HealthCheck(context.Background()))

	mr.Close()
	err := store.HealthCheck(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}

func TestHealthCheck_RedisNil(t *testing.T) {
	store := &HybridStore{}
	err := store.HealthCheck(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "redis not initialized")
}

func TestClose(t *testing.T) {
	store, mr := newTestStore(t)
	defer mr.Close()

	assert.NoError(t, store.Close())
}
