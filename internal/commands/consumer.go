package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/fuel-reserve/internal/reserve"
)

// IssueCommand requests an issuance against a reserve account.
type IssueCommand struct {
	CommandID string          `json:"command_id"`
	Pair      string          `json:"pair"`
	Volume    decimal.Decimal `json:"volume"`
}

// RetireCommand requests a retirement against a reserve account.
type RetireCommand struct {
	CommandID string          `json:"command_id"`
	Pair      string          `json:"pair"`
	Volume    decimal.Decimal `json:"volume"`
}

// ReserveService defines the reserve operations the consumer drives.
type ReserveService interface {
	Issue(ctx context.Context, pair string, volume decimal.Decimal) (reserve.IssueResult, error)
	Retire(ctx context.Context, pair string, volume decimal.Decimal) (reserve.RetireResult, error)
}

// Consumer consumes reserve commands from RabbitMQ
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	service ReserveService
	logger  *zap.Logger
	done    chan struct{}
}

// NewConsumer creates a new RabbitMQ consumer
func NewConsumer(url string, service ReserveService, logger *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return &Consumer{
		conn:    conn,
		channel: channel,
		service: service,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start declares the command queues and starts the consumer goroutines.
func (c *Consumer) Start(ctx context.Context) error {
	issueQueue := "inbound.reserve.issue"
	retireQueue := "inbound.reserve.retire"

	if _, err := c.channel.QueueDeclare(issueQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", issueQueue, err)
	}

	if _, err := c.channel.QueueDeclare(retireQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", retireQueue, err)
	}

	issueMsgs, err := c.channel.Consume(issueQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", issueQueue, err)
	}

	retireMsgs, err := c.channel.Consume(retireQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume from %s: %w", retireQueue, err)
	}

	c.logger.Info("Started consuming from RabbitMQ",
		zap.String("issueQueue", issueQueue),
		zap.String("retireQueue", retireQueue),
	)

	go c.consumeIssueCommands(ctx, issueMsgs)
	go c.consumeRetireCommands(ctx, retireMsgs)

	return nil
}

func (c *Consumer) consumeIssueCommands(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("Issue command channel closed")
				return
			}

			c.logger.Debug("Received issue command", zap.String("body", string(msg.Body)))

			var cmd IssueCommand
			if err := json.Unmarshal(msg.Body, &cmd); err != nil {
				c.logger.Error("Failed to unmarshal IssueCommand", zap.Error(err))
				msg.Nack(false, false)
				continue
			}

			if _, err := c.service.Issue(ctx, cmd.Pair, cmd.Volume); err != nil {
				c.logger.Error("Failed to execute issue command",
					zap.String("command_id", cmd.CommandID),
					zap.String("pair", cmd.Pair),
					zap.Error(err))
				msg.Nack(false, requeueable(err))
				continue
			}

			msg.Ack(false)
		}
	}
}

func (c *Consumer) consumeRetireCommands(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("Retire command channel closed")
				return
			}

			c.logger.Debug("Received retire command", zap.String("body", string(msg.Body)))

			var cmd RetireCommand
			if err := json.Unmarshal(msg.Body, &cmd); err != nil {
				c.logger.Error("Failed to unmarshal RetireCommand", zap.Error(err))
				msg.Nack(false, false)
				continue
			}

			if _, err := c.service.Retire(ctx, cmd.Pair, cmd.Volume); err != nil {
				c.logger.Error("Failed to execute retire command",
					zap.String("command_id", cmd.CommandID),
					zap.String("pair", cmd.Pair),
					zap.Error(err))
				msg.Nack(false, requeueable(err))
				continue
			}

			msg.Ack(false)
		}
	}
}

// requeueable reports whether a failed command is worth redelivering.
// Validation and account errors are permanent; redelivering them just
// spins the queue.
func requeueable(err error) bool {
	switch {
	case errors.Is(err, reserve.ErrInvalidArgument),
		errors.Is(err, reserve.ErrAccountNotFound),
		errors.Is(err, reserve.ErrInsufficientLiquidity),
		errors.Is(err, reserve.ErrInsufficientReserve):
		return false
	}
	return true
}

// Close closes the consumer
func (c *Consumer) Close() error {
	close(c.done)

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
