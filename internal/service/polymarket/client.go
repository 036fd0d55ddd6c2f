package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"PolyCorr/internal/domain/models"
	drepo "PolyCorr/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a MarketStream backed by the Polymarket trade WebSocket.
type Client struct {
	websocketURL   string
	markets        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new Polymarket MarketStream.
func New(websocketURL string, markets []string, reconnectDelay, pingInterval time.Duration) drepo.MarketStream {
	return &Client{
		websocketURL:   websocketURL,
		markets:        markets,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("polymarket connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("polymarket: connected")
	return nil
}

// Subscribe subscribes to the trade channel of every configured market.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("polymarket not connected")
	}
	msg := map[string]interface{}{"type": "subscribe", "channel": "trades", "markets": c.markets}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe trades: %w", err)
	}
	log.Printf("polymarket: subscribed %d markets", len(c.markets))
	return nil
}

type wsTrade struct {
	ID       string  `json:"id"`
	Market   string  `json:"market"`
	Maker    string  `json:"maker_address"`
	Side     string  `json:"side"`
	SizeUSD  float64 `json:"size_usd"`
	Time     int64   `json:"timestamp"` // ms
}

type wsMessage struct {
	Type string    `json:"type"`
	Data []wsTrade `json:"data"`
}

// Read streams CorrelationTrade events and errors. Both loops are bound to
// the connection current at call time; the ping loop shares the read loop's
// lifetime so reconnect cycles never leave two writers on one connection.
func (c *Client) Read(ctx context.Context) (<-chan *models.CorrelationTrade, <-chan error) {
	trades := make(chan *models.CorrelationTrade, 1024)
	errs := make(chan error, 1)

	conn := c.conn
	done := make(chan struct{})

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(trades)
		defer close(errs)
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if conn == nil {
					errs <- fmt.Errorf("polymarket conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("polymarket read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-trade frames
					continue
				}
				if m.Type != "trade" {
					continue
				}
				for _, d := range m.Data {
					side := models.SideBuy
					if d.Side == "SELL" || d.Side == "sell" {
						side = models.SideSell
					}
					trade := &models.CorrelationTrade{
						TradeID:       d.ID,
						MarketID:      d.Market,
						WalletAddress: d.Maker,
						Side:          side,
						SizeUSD:       d.SizeUSD,
						Timestamp:     d.Time,
					}
					select {
					case trades <- trade:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return trades, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
