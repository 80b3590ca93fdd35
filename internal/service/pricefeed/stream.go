package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"SemaforoBot/pkg/logger"
)

// Tick is one mark price observation.
type Tick struct {
	Asset string
	Price float64
	At    time.Time
}

// Stream reads mark prices for the configured assets from the Binance
// futures combined stream.
type Stream struct {
	url            string
	assets         []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	conn      *websocket.Conn
	connected bool
}

func NewStream(url string, assets []string, reconnectDelay, pingInterval time.Duration, log *logger.Logger) *Stream {
	if url == "" {
		url = "wss://fstream.binance.com/stream"
	}
	return &Stream{
		url:            url,
		assets:         assets,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("pricefeed connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	s.log.Info("pricefeed connected", logger.String("url", s.url))
	return nil
}

// Subscribe subscribes to the mark price channel of each asset.
func (s *Stream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("pricefeed not connected")
	}
	params := make([]string, 0, len(s.assets))
	for _, a := range s.assets {
		params = append(params, strings.ToLower(a)+"usdt@markPrice@1s")
	}
	msg := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     1,
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("pricefeed subscribe: %w", err)
	}
	s.log.Info("pricefeed subscribed", logger.Strings("streams", params))
	return nil
}

type markPriceEvent struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Price  string `json:"p"`
	Time   int64  `json:"E"` // ms
}

type streamFrame struct {
	Stream string          `json:"stream"`
	Data   markPriceEvent  `json:"data"`
}

// Read streams ticks and errors. The error channel delivers at most one
// error; the caller is expected to reconnect.
func (s *Stream) Read(ctx context.Context) (<-chan Tick, <-chan error) {
	ticks := make(chan Tick, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("pricefeed conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("pricefeed read: %w", err)
					return
				}
				var frame streamFrame
				if err := json.Unmarshal(b, &frame); err != nil {
					// ignore non-data frames (subscribe acks etc.)
					continue
				}
				if frame.Data.Event != "markPriceUpdate" {
					continue
				}
				price, err := strconv.ParseFloat(frame.Data.Price, 64)
				if err != nil || price <= 0 {
					continue
				}
				tick := Tick{
					Asset: strings.TrimSuffix(frame.Data.Symbol, "USDT"),
					Price: price,
					At:    time.UnixMilli(frame.Data.Time).UTC(),
				}
				select {
				case ticks <- tick:
				default:
					// drop on backpressure; mark price updates every second
				}
			}
		}
	}()

	return ticks, errs
}

// Reconnect closes and reconnects.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool { return s.connected }
