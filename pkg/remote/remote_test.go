package remote

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zurustar/procscript/pkg/console"
	"github.com/zurustar/procscript/pkg/logger"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads console events until one carries want.
func readUntil(t *testing.T, conn *websocket.Conn, want string) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("ReadJSON() error = %v, still waiting for %q", err, want)
		}
		if event.Type != EventConsole {
			t.Fatalf("event type = %q, want %q", event.Type, EventConsole)
		}
		if event.Data == want {
			return
		}
	}
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Clients() = %d, want %d", h.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestViewerGetsLatestOnConnect(t *testing.T) {
	h := NewHub(WithLogger(logger.Discard()))
	h.Publish("LOG: before\n")

	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	readUntil(t, conn, "LOG: before\n")
}

func TestConsoleBroadcast(t *testing.T) {
	h := NewHub(WithLogger(logger.Discard()))
	srv := httptest.NewServer(h)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitClients(t, h, 2)

	c := console.New(console.WithLogger(logger.Discard()), console.WithListener(h.Publish))
	c.Log("one")
	c.Warn("two")

	for _, conn := range []*websocket.Conn{a, b} {
		readUntil(t, conn, "LOG: one\nWARN: two\n")
	}
	if h.Last() != c.Text() {
		t.Errorf("Last() = %q, want %q", h.Last(), c.Text())
	}
}

func TestSyncEvent(t *testing.T) {
	h := NewHub(WithLogger(logger.Discard()))
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	readUntil(t, conn, "")
	h.Publish("LOG: x\n")
	readUntil(t, conn, "LOG: x\n")

	if err := conn.WriteJSON(Event{Type: EventSync}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	readUntil(t, conn, "LOG: x\n")
}

func TestDisconnectRemovesClient(t *testing.T) {
	h := NewHub(WithLogger(logger.Discard()))
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, h, 1)
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitClients(t, h, 0)

	// no viewers left; publishing must not block
	h.Publish("LOG: nobody\n")
}

func TestClose(t *testing.T) {
	h := NewHub(WithLogger(logger.Discard()))
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitClients(t, h, 1)
	h.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	waitClients(t, h, 0)
}

func TestOfferKeepsNewest(t *testing.T) {
	c := &client{pending: make(chan string, 1)}
	for _, s := range []string{"a", "b", "c"} {
		c.offer(s)
	}
	if got := <-c.pending; got != "c" {
		t.Errorf("pending = %q, want %q", got, "c")
	}
}
