package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Checker-Finance/fuel-reserve/pkg/model"
)

// Store defines the contract for journaling and caching reserve data. The
// in-memory accounts remain the state of record; the store is a write-behind
// journal for reporting and audit.
type Store interface {
	RecordOperation(ctx context.Context, op model.OperationEvent) error
	UpdateAccountSnapshot(ctx context.Context, snap model.AccountSnapshot) error
	ListOperations(ctx context.Context, pair string, limit int) ([]model.OperationEvent, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	HealthCheck(ctx context.Context) error
	Close() error
}

type HybridStore struct {
	redis  *redis.Client
	PG     *pgxpool.Pool
	logger *zap.Logger
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid creates a Redis-first, Postgres-backed store. pgURL may be empty,
// in which case only the Redis cache is available and journal writes are no-ops.
func NewHybrid(redisAddr string, redisDB int, pgURL string, pgPoolConfig PGPoolConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	return &HybridStore{redis: rdb, PG: pgPool, logger: logger}, nil
}

// RecordOperation inserts an immutable row into reserve.operation_event.
func (s *HybridStore) RecordOperation(ctx context.Context, op model.OperationEvent) error {
	if s.PG == nil {
		return nil
	}
	_, err := s.PG.Exec(ctx, `
		INSERT INTO reserve.operation_event (
			operation_id, pair, kind,
			volume, avg_price, notional, balance_after, recorded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, op.OperationID, op.Pair, op.Kind,
		op.Volume, op.AvgPrice, op.Notional, op.Balance, op.Timestamp)
	if err != nil {
		s.logger.Error("store.pg.insert_operation_failed", zap.Error(err))
	}
	return err
}

// UpdateAccountSnapshot upserts the per-account projection table.
func (s *HybridStore) UpdateAccountSnapshot(ctx context.Context, snap model.AccountSnapshot) error {
	if s.PG == nil {
		return nil
	}
	_, err := s.PG.Exec(ctx, `
		INSERT INTO reserve.account_snapshot (
			pair, reserve_balance, supply_factor, marginal_price, fuel_outstanding, as_of
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (pair)
		DO UPDATE SET
			reserve_balance = EXCLUDED.reserve_balance,
			supply_factor = EXCLUDED.supply_factor,
			marginal_price = EXCLUDED.marginal_price,
			fuel_outstanding = EXCLUDED.fuel_outstanding,
			as_of = EXCLUDED.as_of;
	`, snap.Pair, snap.ReserveBalance, snap.SupplyFactor, snap.MarginalPrice, snap.FuelOutstanding, snap.AsOf)
	if err != nil {
		s.logger.Error("store.pg.snapshot_update_failed", zap.Error(err))
	}
	return err
}

// ListOperations returns the most recent journaled operations for a pair.
func (s *HybridStore) ListOperations(ctx context.Context, pair string, limit int) ([]model.OperationEvent, error) {
	if s.PG == nil {
		return nil, fmt.Errorf("postgres unavailable")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.PG.Query(ctx, `
		SELECT operation_id, pair, kind, volume, avg_price, notional, balance_after, recorded_at
		FROM reserve.operation_event
		WHERE pair = $1
		ORDER BY recorded_at DESC
		LIMIT $2;
	`, pair, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.OperationEvent
	for rows.Next() {
		var op model.OperationEvent
		if err := rows.Scan(&op.OperationID, &op.Pair, &op.Kind,
			&op.Volume, &op.AvgPrice, &op.Notional, &op.Balance, &op.Timestamp); err != nil {
			return nil, err
		}
		results = append(results, op)
	}
	return results, rows.Err()
}

func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// IsNotFound reports whether a GetJSON error was a plain cache miss.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
