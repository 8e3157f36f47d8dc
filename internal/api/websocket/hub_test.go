package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(zap.NewNop())
	go hub.Run(ctx)

	upgrader := NewUpgrader(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWs(upgrader, w, r)
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, hub *Hub, url string, want int) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() < want {
		if time.Now().After(deadline) {
			t.Fatalf("client not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestPublishReachesClients(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, hub, url, 1)

	event := types.ChangeEvent{Entity: types.EntityProtocol, Action: types.ChangeCreated, ID: uuid.New(), ParentID: uuid.New()}
	hub.Publish(event)

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeEntityChanged {
		t.Fatalf("type = %s", msg.Type)
	}
	raw, _ := json.Marshal(msg.Data)
	var got types.ChangeEvent
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got != event {
		t.Errorf("event = %+v, want %+v", got, event)
	}
}

func TestSubscriptionFilters(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, hub, url, 1)

	if err := conn.WriteJSON(ClientMessage{Type: "subscribe", Entities: []types.EntityKind{types.EntityIO}}); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg.Type != MessageTypeSubscribed {
		t.Fatalf("type = %s", msg.Type)
	}

	hub.Publish(types.ChangeEvent{Entity: types.EntityProject, Action: types.ChangeDeleted, ID: uuid.New()})
	io := types.ChangeEvent{Entity: types.EntityIO, Action: types.ChangeUpdated, ID: uuid.New()}
	hub.Publish(io)

	msg := readMessage(t, conn)
	data := msg.Data.(map[string]any)
	if data["entity"] != string(types.EntityIO) || data["id"] != io.ID.String() {
		t.Errorf("first delivered event = %v", data)
	}
}

func TestUnknownClientMessage(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, hub, url, 1)

	conn.WriteJSON(map[string]string{"type": "shout"})
	if msg := readMessage(t, conn); msg.Type != MessageTypeError {
		t.Errorf("type = %s", msg.Type)
	}
}

func TestUpgraderOrigins(t *testing.T) {
	u := NewUpgrader([]string{"https://hmi.local"})
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://hmi.local", true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := u.CheckOrigin(r); got != tt.want {
			t.Errorf("CheckOrigin(%q) = %v", tt.origin, got)
		}
	}
}
