package arb

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateSource supplies the latest external Fuel rate per currency pair.
type RateSource interface {
	// Rate returns the most recent rate for pair and whether one is known.
	Rate(pair string) (decimal.Decimal, bool)
}

// rateTick is the wire format of one rate update.
type rateTick struct {
	Pair string          `json:"pair"`
	Rate decimal.Decimal `json:"rate"`
}

// WSRateSource is a WebSocket client that streams external rates and keeps
// the latest tick per pair.
type WSRateSource struct {
	url            string
	conn           *websocket.Conn
	logger         *zap.Logger
	rates          map[string]decimal.Decimal
	ratesMu        sync.RWMutex
	connected      bool
	connectedMu    sync.RWMutex
	done           chan struct{}
	reconnectDelay time.Duration
}

// NewWSRateSource creates a new rate stream client
func NewWSRateSource(url string, logger *zap.Logger) *WSRateSource {
	return &WSRateSource{
		url:            url,
		logger:         logger,
		rates:          make(map[string]decimal.Decimal),
		done:           make(chan struct{}),
		reconnectDelay: 5 * time.Second,
	}
}

// Connect establishes the WebSocket connection and starts the read loop.
func (s *WSRateSource) Connect(ctx context.Context) error {
	s.logger.Info("Connecting to rate stream", zap.String("url", s.url))

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to rate stream: %w", err)
	}

	s.conn = conn
	s.setConnected(true)
	s.logger.Info("Connected to rate stream")

	go s.readLoop()

	return nil
}

// Close closes the WebSocket connection
func (s *WSRateSource) Close() error {
	close(s.done)
	s.setConnected(false)
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected returns whether the stream is connected
func (s *WSRateSource) IsConnected() bool {
	s.connectedMu.RLock()
	defer s.connectedMu.RUnlock()
	return s.connected
}

func (s *WSRateSource) setConnected(connected bool) {
	s.connectedMu.Lock()
	defer s.connectedMu.Unlock()
	s.connected = connected
}

// Rate returns the latest rate for pair.
func (s *WSRateSource) Rate(pair string) (decimal.Decimal, bool) {
	s.ratesMu.RLock()
	defer s.ratesMu.RUnlock()
	r, ok := s.rates[pair]
	return r, ok
}

func (s *WSRateSource) readLoop() {
	defer func() {
		s.setConnected(false)
		s.logger.Info("Rate stream read loop exited")
	}()

	for {
		select {
		case <-s.done:
			return
		default:
			_, message, err := s.conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Info("Rate stream closed normally")
					return
				}
				s.logger.Error("Error reading rate stream message", zap.Error(err))
				s.scheduleReconnect()
				return
			}

			var tick rateTick
			if err := json.Unmarshal(message, &tick); err != nil {
				s.logger.Error("Failed to unmarshal rate tick", zap.Error(err))
				continue
			}
			if tick.Pair == "" || !tick.Rate.IsPositive() {
				s.logger.Warn("Dropping malformed rate tick", zap.String("payload", string(message)))
				continue
			}

			s.ratesMu.Lock()
			s.rates[tick.Pair] = tick.Rate
			s.ratesMu.Unlock()
		}
	}
}

func (s *WSRateSource) scheduleReconnect() {
	s.logger.Info("Scheduling rate stream reconnection", zap.Duration("delay", s.reconnectDelay))

	time.AfterFunc(s.reconnectDelay, func() {
		select {
		case <-s.done:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.Connect(ctx); err != nil {
			s.logger.Error("Rate stream reconnection failed", zap.Error(err))
			s.scheduleReconnect()
		}
	})
}
