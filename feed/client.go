// Package feed subscribes to an external tick stream over a websocket and
// publishes the quotes onto the shared market board, alongside the synthetic
// generator. The feed is optional; the simulation runs without it.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/tradeforge/papersim/market"
)

// State is the client's connection state as the run loop sees it.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	// StateDegraded means the reconnect budget is exhausted. The client
	// stays down until Run is started again; synthetic data keeps flowing.
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	default:
		return "disconnected"
	}
}

const readTimeout = 30 * time.Second

// Client maintains one websocket subscription for a set of symbols.
type Client struct {
	url     string
	symbols []string
	board   *market.Board
	log     logrus.FieldLogger

	// Reconnect budget. Defaults suit production; tests shorten them.
	maxAttempts    int
	reconnectDelay time.Duration

	mu    sync.Mutex
	state State
}

func NewClient(url string, symbols []string, board *market.Board, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Client{
		url:            url,
		symbols:        symbols,
		board:          board,
		log:            log.WithField("component", "feed"),
		maxAttempts:    5,
		reconnectDelay: 3 * time.Second,
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run connects, subscribes and pumps ticks until the context is cancelled.
// Each connection failure consumes one reconnect attempt; once the budget is
// spent the client marks itself degraded and returns.
func (c *Client) Run(ctx context.Context) error {
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			c.setState(StateDisconnected)
			return err
		}

		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return ctx.Err()
		}

		attempts++
		c.log.WithError(err).WithField("attempt", attempts).Warn("feed connection lost")
		if attempts >= c.maxAttempts {
			c.setState(StateDegraded)
			c.log.Warn("feed reconnect budget exhausted, running on synthetic data only")
			return fmt.Errorf("feed degraded after %d attempts: %w", attempts, err)
		}

		select {
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close()

	for _, sym := range c.symbols {
		sub := subscribeRequest{Ticks: sym, Subscribe: 1}
		if err := conn.WriteJSON(sub); err != nil {
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
	}

	c.setState(StateConnected)
	c.log.WithField("symbols", len(c.symbols)).Info("feed connected")

	// Unblock the read loop when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.setState(StateDisconnected)
			return fmt.Errorf("read: %w", err)
		}
		if err := c.handleMessage(data); err != nil {
			c.log.WithError(err).Debug("skipping feed message")
		}
	}
}

// handleMessage decodes one server frame. Unknown frames are ignored so a
// chatty server does not tear the connection down.
func (c *Client) handleMessage(data []byte) error {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}

	switch {
	case msg.Error != nil:
		return fmt.Errorf("server error: %s", msg.Error.Message)
	case msg.Tick != nil:
		q, err := msg.Tick.quote()
		if err != nil {
			return err
		}
		c.board.Set(q)
		return nil
	default:
		return nil
	}
}

type subscribeRequest struct {
	Ticks     string `json:"ticks"`
	Subscribe int    `json:"subscribe"`
}

type serverMessage struct {
	Tick *tickFrame `json:"tick,omitempty"`
	// Candle pushes arrive on the same stream; the generator builds its own
	// candles, so they are decoded and dropped.
	Candles json.RawMessage `json:"candles,omitempty"`
	Error   *errorFrame     `json:"error,omitempty"`
}

type errorFrame struct {
	Message string `json:"message"`
}

type tickFrame struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Epoch  int64   `json:"epoch"`
}

func (t *tickFrame) quote() (market.Quote, error) {
	if t.Symbol == "" {
		return market.Quote{}, fmt.Errorf("tick frame missing symbol")
	}
	if t.Bid <= 0 || t.Ask <= 0 || t.Ask < t.Bid {
		return market.Quote{}, fmt.Errorf("tick frame for %s has bad prices bid=%v ask=%v", t.Symbol, t.Bid, t.Ask)
	}
	at := time.Unix(t.Epoch, 0).UTC()
	if t.Epoch == 0 {
		at = time.Now().UTC()
	}
	return market.Quote{Symbol: t.Symbol, Bid: t.Bid, Ask: t.Ask, Time: at}, nil
}
