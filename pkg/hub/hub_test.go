package hub

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/gorilla/websocket"
)

func TestNewHub(t *testing.T) {
	h := New("test")
	if h == nil {
		t.Fatal("New returned nil")
	}
	if h.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", h.ClientCount())
	}
}

func TestBroadcastWithoutClients(t *testing.T) {
	h := New("test")
	go h.Run()
	defer h.Stop()

	// Must not block or panic with nobody listening
	h.Broadcast(NewJSONMessage([]byte(`{"x":1}`)))
	if err := h.BroadcastJSON(map[string]int{"x": 2}); err != nil {
		t.Errorf("BroadcastJSON: %v", err)
	}
}

func TestClientFanOut(t *testing.T) {
	h := New("fanout")
	go h.Run()
	defer h.Stop()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws", fiberws.New(func(c *fiberws.Conn) {
		NewClient(h, c).Run()
	}))

	go app.Listen(":18100")
	defer app.Shutdown()
	time.Sleep(100 * time.Millisecond)

	a, _, err := websocket.DefaultDialer.Dial("ws://localhost:18100/ws", nil)
	if err != nil {
		t.Fatalf("dial a: %v", err)
	}
	defer a.Close()

	b, _, err := websocket.DefaultDialer.Dial("ws://localhost:18100/ws", nil)
	if err != nil {
		t.Fatalf("dial b: %v", err)
	}
	defer b.Close()

	time.Sleep(50 * time.Millisecond)
	if h.ClientCount() != 2 {
		t.Errorf("ClientCount = %d, want 2", h.ClientCount())
	}

	payload := []byte(`{"hello":"world"}`)
	h.Broadcast(NewJSONMessage(payload))

	for name, conn := range map[string]*websocket.Conn{"a": a, "b": b} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("client %s read: %v", name, err)
		}
		if msgType != websocket.TextMessage {
			t.Errorf("client %s message type = %d, want text", name, msgType)
		}
		if string(data) != string(payload) {
			t.Errorf("client %s payload = %s, want %s", name, data, payload)
		}
	}

	// Disconnect unregisters
	a.Close()
	time.Sleep(100 * time.Millisecond)
	if h.ClientCount() != 1 {
		t.Errorf("ClientCount after disconnect = %d, want 1", h.ClientCount())
	}
}
