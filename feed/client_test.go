package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tradeforge/papersim/market"
)

func TestHandleMessageTick(t *testing.T) {
	board := market.NewBoard()
	c := NewClient("ws://unused", nil, board, nil)

	frame := `{"tick":{"symbol":"EURUSD","bid":1.0848,"ask":1.0850,"epoch":1756600000}}`
	if err := c.handleMessage([]byte(frame)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}

	q, ok := board.Get("EURUSD")
	if !ok {
		t.Fatal("quote not published to board")
	}
	if q.Bid != 1.0848 || q.Ask != 1.0850 {
		t.Errorf("quote = %+v", q)
	}
	if q.Time.Unix() != 1756600000 {
		t.Errorf("quote time = %v, want epoch 1756600000", q.Time)
	}
}

func TestHandleMessageErrorFrame(t *testing.T) {
	c := NewClient("ws://unused", nil, market.NewBoard(), nil)
	frame := `{"error":{"message":"unknown symbol"}}`
	err := c.handleMessage([]byte(frame))
	if err == nil || !strings.Contains(err.Error(), "unknown symbol") {
		t.Errorf("err = %v, want server error message", err)
	}
}

func TestHandleMessageRejectsBadTicks(t *testing.T) {
	board := market.NewBoard()
	c := NewClient("ws://unused", nil, board, nil)

	frames := []string{
		`{"tick":{"bid":1.0,"ask":1.1}}`,                           // no symbol
		`{"tick":{"symbol":"EURUSD","bid":0,"ask":1.1}}`,           // zero bid
		`{"tick":{"symbol":"EURUSD","bid":1.2,"ask":1.1}}`,         // crossed
		`not json`,
	}
	for _, f := range frames {
		if err := c.handleMessage([]byte(f)); err == nil {
			t.Errorf("frame %q: expected error", f)
		}
	}
	if _, ok := board.Get("EURUSD"); ok {
		t.Error("bad tick leaked onto the board")
	}

	// Frames without tick or error content are ignored without error.
	if err := c.handleMessage([]byte(`{"heartbeat":1}`)); err != nil {
		t.Errorf("unknown frame should be ignored, got %v", err)
	}
}

func TestRunSubscribesAndPublishes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan string, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub subscribeRequest
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		subscribed <- sub.Ticks

		tick := serverMessage{Tick: &tickFrame{
			Symbol: sub.Ticks, Bid: 2350.10, Ask: 2350.45, Epoch: time.Now().Unix(),
		}}
		data, _ := json.Marshal(tick)
		conn.WriteMessage(websocket.TextMessage, data)

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	board := market.NewBoard()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := NewClient(url, []string{"XAUUSD"}, board, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case sym := <-subscribed:
		if sym != "XAUUSD" {
			t.Errorf("subscribed to %q, want XAUUSD", sym)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw a subscribe request")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if q, ok := board.Get("XAUUSD"); ok {
			if q.Bid != 2350.10 {
				t.Errorf("bid = %v, want 2350.10", q.Bid)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("tick never reached the board")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := c.State(); got != StateConnected {
		t.Errorf("state = %v, want connected", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunDegradesWhenUnreachable(t *testing.T) {
	// Point at a server that is already closed so every dial fails fast.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	c := NewClient(url, []string{"EURUSD"}, market.NewBoard(), nil)
	c.maxAttempts = 3
	c.reconnectDelay = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := c.Run(ctx)
	if err == nil {
		t.Fatal("expected error from degraded feed")
	}
	if got := c.State(); got != StateDegraded {
		t.Errorf("state = %v, want degraded", got)
	}
}
