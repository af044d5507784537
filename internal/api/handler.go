package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/fuel-reserve/internal/config"
	"github.com/Checker-Finance/fuel-reserve/internal/reserve"
	"github.com/Checker-Finance/fuel-reserve/internal/store"
	"github.com/Checker-Finance/fuel-reserve/internal/tracking"
	"github.com/Checker-Finance/fuel-reserve/pkg/model"
)

// ReserveService defines the operations the handler needs.
type ReserveService interface {
	CreateAccount(ctx context.Context, seed config.SeedAccount) (*reserve.Account, error)
	Quote(ctx context.Context, pair string, side reserve.Side) (reserve.Tranche, error)
	Issue(ctx context.Context, pair string, volume decimal.Decimal) (reserve.IssueResult, error)
	Retire(ctx context.Context, pair string, volume decimal.Decimal) (reserve.RetireResult, error)
	UpdateSupply(ctx context.Context, pair string, factor decimal.Decimal) error
	Summary(ctx context.Context) reserve.Summary
	Registry() *reserve.Registry
}

// ReserveHandler handles HTTP API requests for reserve operations.
type ReserveHandler struct {
	logger  *zap.Logger
	service ReserveService
	history *tracking.History
	store   store.Store
}

// NewReserveHandler creates a new ReserveHandler. history and st are
// optional; the operations endpoint serves from history first and falls
// back to the journal.
func NewReserveHandler(logger *zap.Logger, service ReserveService, history *tracking.History, st store.Store) *ReserveHandler {
	return &ReserveHandler{
		logger:  logger,
		service: service,
		history: history,
		store:   st,
	}
}

// ListAccountsHandler returns every registered account.
func (h *ReserveHandler) ListAccountsHandler(c *fiber.Ctx) error {
	accounts := h.service.Registry().List()

	out := make([]AccountResponse, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, AccountResponse{
			Pair:           acc.Pair(),
			SupplyFactor:   acc.SupplyFactor(),
			ReserveBalance: acc.ReserveBalance(),
		})
	}
	return c.JSON(out)
}

// CreateAccountHandler registers a new reserve account.
func (h *ReserveHandler) CreateAccountHandler(c *fiber.Ctx) error {
	var req AccountCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	acc, err := h.service.CreateAccount(c.Context(), config.SeedAccount{
		Pair:           req.Pair,
		SupplyFactor:   req.SupplyFactor,
		StartPrice:     req.StartPrice,
		ReserveBalance: req.ReserveBalance,
	})
	if err != nil {
		h.logger.Error("api.create_account.failed",
			zap.String("pair", req.Pair),
			zap.Error(err))
		return c.Status(statusForError(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(AccountResponse{
		Pair:           acc.Pair(),
		SupplyFactor:   acc.SupplyFactor(),
		ReserveBalance: acc.ReserveBalance(),
	})
}

// QuoteHandler returns the marginal tranche for ?side=buy|sell.
func (h *ReserveHandler) QuoteHandler(c *fiber.Ctx) error {
	pair := c.Params("pair")

	side, err := reserve.ParseSide(c.Query("side"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	t, err := h.service.Quote(c.Context(), pair, side)
	if err != nil {
		return c.Status(statusForError(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(QuoteResponse{
		Pair:   pair,
		Side:   string(side),
		Price:  t.Price,
		Volume: t.Volume,
	})
}

// IssueHandler issues Fuel against the pair's reserve.
func (h *ReserveHandler) IssueHandler(c *fiber.Ctx) error {
	pair := c.Params("pair")

	var req VolumeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	res, err := h.service.Issue(c.Context(), pair, req.Volume)
	if err != nil {
		h.logger.Error("api.issue.failed",
			zap.String("pair", pair),
			zap.String("volume", req.Volume.String()),
			zap.Error(err))
		return c.Status(statusForError(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(res)
}

// RetireHandler retires Fuel against the pair's reserve.
func (h *ReserveHandler) RetireHandler(c *fiber.Ctx) error {
	pair := c.Params("pair")

	var req VolumeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	res, err := h.service.Retire(c.Context(), pair, req.Volume)
	if err != nil {
		h.logger.Error("api.retire.failed",
			zap.String("pair", pair),
			zap.String("volume", req.Volume.String()),
			zap.Error(err))
		return c.Status(statusForError(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(res)
}

// SupplyHandler updates the pair's supply factor.
func (h *ReserveHandler) SupplyHandler(c *fiber.Ctx) error {
	pair := c.Params("pair")

	var req SupplyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	}

	if err := h.service.UpdateSupply(c.Context(), pair, req.Factor); err != nil {
		return c.Status(statusForError(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// LaddersHandler returns both ladder snapshots for a pair.
func (h *ReserveHandler) LaddersHandler(c *fiber.Ctx) error {
	pair := c.Params("pair")

	acc, err := h.service.Registry().Get(pair)
	if err != nil {
		return c.Status(statusForError(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(LaddersResponse{
		Pair:       pair,
		Issuance:   acc.IssuanceLadder(),
		Retirement: acc.RetirementLadder(),
	})
}

// OperationsHandler returns recent operations for a pair, newest first.
func (h *ReserveHandler) OperationsHandler(c *fiber.Ctx) error {
	pair := c.Params("pair")
	limit := c.QueryInt("limit", 50)

	if _, err := h.service.Registry().Get(pair); err != nil {
		return c.Status(statusForError(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	ops := []model.OperationEvent{}
	if h.history != nil {
		ops = h.history.Recent(pair, limit)
	}
	if len(ops) == 0 && h.store != nil {
		journaled, err := h.store.ListOperations(c.Context(), pair, limit)
		if err != nil {
			h.logger.Warn("api.operations.journal_read_failed",
				zap.String("pair", pair),
				zap.Error(err))
		} else if journaled != nil {
			ops = journaled
		}
	}
	return c.JSON(ops)
}

// SummaryHandler renders the multi-account summary table.
func (h *ReserveHandler) SummaryHandler(c *fiber.Ctx) error {
	return c.JSON(h.service.Summary(c.Context()))
}
