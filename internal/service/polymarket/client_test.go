package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// The server drops the first session right after the subscribe frame and
// counts pings on the second, so a ping loop surviving its own session
// shows up as a doubled cadence on the reconnected connection.
func TestReadPingLoopEndsWithSession(t *testing.T) {
	var sessions, pings atomic.Int64
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if sessions.Add(1) == 1 {
			_, _, _ = conn.ReadMessage() // subscribe frame
			conn.Close()
			return
		}
		conn.SetPingHandler(func(string) error {
			pings.Add(1)
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := New(url, []string{"mkt-a"}, 5*time.Millisecond, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := c.Subscribe(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	trades, _ := c.Read(ctx)
	for range trades {
		// drain until the server drops the session
	}

	if err := c.Reconnect(ctx); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	trades, _ = c.Read(ctx)
	defer func() { _ = c.Close() }()
	_ = trades

	// Six ticks at 20ms fit in the window; a second live ping loop would
	// roughly double that (and risks a concurrent websocket write).
	time.Sleep(130 * time.Millisecond)
	got := pings.Load()
	if got == 0 {
		t.Fatalf("expected pings on the reconnected session")
	}
	if got > 9 {
		t.Errorf("ping cadence after reconnect suggests more than one ping loop: %d pings in 130ms", got)
	}
}
