package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mentor-chat/internal/conversation"
	"mentor-chat/internal/models"
)

type stubRelay struct{ reply string }

func (s stubRelay) Generate(ctx context.Context, messages []models.Message) (string, error) {
	return s.reply, nil
}

type stateFrame struct {
	Type    string `json:"type"`
	Payload struct {
		ID        uuid.UUID         `json:"id"`
		State     string            `json:"state"`
		Messages  []models.Message  `json:"messages"`
		Documents []json.RawMessage `json:"documents"`
	} `json:"payload"`
}

func newTestHub(t *testing.T) (*Hub, *conversation.Store, *httptest.Server) {
	t.Helper()
	var hub *Hub
	store := conversation.NewStore(stubRelay{reply: "Saving\n**Budgeting**"}, conversation.Options{Budget: 100},
		func(s conversation.Snapshot) { hub.Publish(s) })
	hub = NewHub(store)
	hub.writeWait = 200 * time.Millisecond

	r := chi.NewRouter()
	r.Get("/sessions/{id}/ws", hub.HandleWebSocket)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, store, srv
}

func dial(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) stateFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f stateFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	return f
}

func TestHub_SendsInitialSnapshot(t *testing.T) {
	_, store, srv := newTestHub(t)
	c := store.Create()

	conn := dial(t, srv, c.ID().String())
	f := readFrame(t, conn)

	if f.Type != TypeSessionState {
		t.Fatalf("Expected %s, got %s", TypeSessionState, f.Type)
	}
	if f.Payload.ID != c.ID() || f.Payload.State != "idle" {
		t.Fatalf("Unexpected payload: %+v", f.Payload)
	}
}

func TestHub_BroadcastsTransitions(t *testing.T) {
	hub, store, srv := newTestHub(t)
	c := store.Create()

	conn := dial(t, srv, c.ID().String())
	readFrame(t, conn)

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections(c.ID()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := c.Submit(context.Background(), "What should I learn?"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	sending := readFrame(t, conn)
	if sending.Payload.State != "sending" || len(sending.Payload.Messages) != 1 {
		t.Fatalf("Expected sending frame with the user turn, got %+v", sending.Payload)
	}

	idle := readFrame(t, conn)
	if idle.Payload.State != "idle" || len(idle.Payload.Messages) != 2 || len(idle.Payload.Documents) != 2 {
		t.Fatalf("Expected idle frame with both turns, got %+v", idle.Payload)
	}
}

func TestHub_RejectsUnknownSession(t *testing.T) {
	_, _, srv := newTestHub(t)

	resp, err := http.Get(srv.URL + "/sessions/" + uuid.New().String() + "/ws")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/sessions/not-a-uuid/ws")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestHub_PublishWithoutListenersIsNoop(t *testing.T) {
	hub := NewHub(nil)
	hub.Publish(conversation.Snapshot{ID: uuid.New()})
}

func TestHub_StalledSubscriberDoesNotBlockBroadcast(t *testing.T) {
	hub, store, srv := newTestHub(t)
	c := store.Create()

	// This client never reads, so the server's socket buffer eventually fills.
	dial(t, srv, c.ID().String())

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections(c.ID()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	payload := strings.Repeat("x", 1<<20)
	start := time.Now()
	for i := 0; i < 500 && hub.Connections(c.ID()) > 0; i++ {
		hub.SendToSession(c.ID(), models.WSMessage{Type: "filler", Payload: payload})
	}

	if elapsed := time.Since(start); elapsed > 20*time.Second {
		t.Fatalf("broadcast to a stalled subscriber took %v", elapsed)
	}

	deadline = time.Now().Add(2 * time.Second)
	for hub.Connections(c.ID()) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("stalled subscriber was never dropped")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
