package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gatekeeper-core/internal/auth"
	"github.com/nerrad567/gatekeeper-core/internal/engine"
	"github.com/nerrad567/gatekeeper-core/internal/infrastructure/config"
	"github.com/nerrad567/gatekeeper-core/internal/relay"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func newTestClient(hub *Hub, role auth.Role, channels ...string) *WSClient {
	subs := make(map[string]struct{}, len(channels))
	for _, ch := range channels {
		subs[ch] = struct{}{}
	}
	return &WSClient{
		hub:           hub,
		send:          make(chan []byte, wsSendBufferSize),
		subscriptions: subs,
		role:          role,
	}
}

func readMessage(t *testing.T, c *WSClient) WSMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return WSMessage{}
	}
}

func TestHub_BroadcastToSubscribed(t *testing.T) {
	hub := newTestHub(t)
	client := newTestClient(hub, auth.RoleViewer, engine.ChannelRelayChanged)
	hub.Register(client)

	hub.Broadcast(engine.ChannelRelayChanged, map[string]any{"device_id": "gate-1", "state": "open"})

	if msg := readMessage(t, client); msg.EventType != engine.ChannelRelayChanged || msg.Type != WSTypeEvent {
		t.Errorf("message = %+v", msg)
	}
}

func TestHub_NoMessageForUnsubscribed(t *testing.T) {
	hub := newTestHub(t)
	client := newTestClient(hub, auth.RoleViewer, engine.ChannelAuditAppended)
	hub.Register(client)

	hub.Broadcast(engine.ChannelRelayChanged, map[string]any{"device_id": "gate-1"})

	select {
	case <-client.send:
		t.Error("unsubscribed client should not receive message")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_ClientCount(t *testing.T) {
	hub := newTestHub(t)
	client := newTestClient(hub, auth.RoleViewer)

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Errorf("after register count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(client)
	hub.Unregister(client) // second call must not double-close
	if hub.ClientCount() != 0 {
		t.Errorf("after unregister count = %d, want 0", hub.ClientCount())
	}
}

func TestWSClient_Subscribe(t *testing.T) {
	tests := []struct {
		name     string
		role     auth.Role
		channels []string
		wantType string
	}{
		{"known channel", auth.RoleViewer, []string{engine.ChannelAuditAppended}, WSTypeResponse},
		{"both channels", auth.RoleViewer, []string{engine.ChannelAuditAppended, engine.ChannelRelayChanged}, WSTypeResponse},
		{"unknown channel", auth.RoleAdmin, []string{"scene.activated"}, WSTypeError},
		{"unknown role", auth.Role("guest"), []string{engine.ChannelAuditAppended}, WSTypeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := newTestHub(t)
			client := newTestClient(hub, tt.role)

			payload, _ := json.Marshal(WSMessage{
				Type:    WSTypeSubscribe,
				ID:      "1",
				Payload: WSSubscribePayload{Channels: tt.channels},
			})
			client.handleMessage(payload)

			msg := readMessage(t, client)
			if msg.Type != tt.wantType || msg.ID != "1" {
				t.Errorf("reply = %+v, want type %q", msg, tt.wantType)
			}
			subscribed := client.isSubscribed(tt.channels[0])
			if subscribed != (tt.wantType == WSTypeResponse) {
				t.Errorf("isSubscribed = %v", subscribed)
			}
		})
	}
}

func TestWSClient_PingAndUnknown(t *testing.T) {
	hub := newTestHub(t)
	client := newTestClient(hub, auth.RoleViewer)

	client.handleMessage([]byte(`{"type": "ping", "id": "p1"}`))
	if msg := readMessage(t, client); msg.Type != WSTypePong || msg.ID != "p1" {
		t.Errorf("ping reply = %+v", msg)
	}

	client.handleMessage([]byte(`{"type": "dance"}`))
	if msg := readMessage(t, client); msg.Type != WSTypeError {
		t.Errorf("unknown reply = %+v", msg)
	}

	client.handleMessage([]byte(`not json`))
	if msg := readMessage(t, client); msg.Type != WSTypeError {
		t.Errorf("invalid JSON reply = %+v", msg)
	}
}

func TestTicketStore(t *testing.T) {
	ts := newTicketStore()
	now := time.Now()

	ticket := ts.issue("op-1", auth.RoleOperator, now)
	entry, ok := ts.consume(ticket, now.Add(time.Second))
	if !ok || entry.subject != "op-1" || entry.role != auth.RoleOperator {
		t.Fatalf("consume() = %+v, %v", entry, ok)
	}
	if _, ok := ts.consume(ticket, now.Add(time.Second)); ok {
		t.Error("ticket accepted twice")
	}

	expired := ts.issue("op-1", auth.RoleOperator, now)
	if _, ok := ts.consume(expired, now.Add(ticketTTL)); ok {
		t.Error("expired ticket accepted")
	}

	stale := ts.issue("op-2", auth.RoleViewer, now)
	ts.cleanExpired(now.Add(2 * ticketTTL))
	if _, ok := ts.consume(stale, now); ok {
		t.Error("cleanExpired kept a stale ticket")
	}
}

func TestWebSocket_RequiresTicket(t *testing.T) {
	env := testServer(t, testSecret)

	expectError(t, env.do(t, http.MethodGet, "/api/v1/ws", "", ""), http.StatusUnauthorized, ErrCodeUnauthorized)
	expectError(t, env.do(t, http.MethodGet, "/api/v1/ws?ticket=bogus", "", ""), http.StatusUnauthorized, ErrCodeUnauthorized)
}

func TestWebSocket_LiveFeed(t *testing.T) {
	env := testServer(t, testSecret)
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	admin := issue(t, auth.RoleAdmin)
	w := env.do(t, http.MethodPost, "/api/v1/devices", `{"name": "Gate", "phone_number": "+15550000001", "access_mode": "any_caller"}`, admin)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	gateID := decode[map[string]any](t, w)["id"].(string)

	w = env.do(t, http.MethodPost, "/api/v1/auth/ws-ticket", "", issue(t, auth.RoleViewer))
	ticket := decode[map[string]any](t, w)["ticket"].(string)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws?ticket=" + ticket
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	resp.Body.Close()
	defer conn.Close()

	readWS := func() WSMessage {
		t.Helper()
		//nolint:errcheck // test deadline
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		return msg
	}

	if err := conn.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "s1",
		Payload: WSSubscribePayload{Channels: []string{engine.ChannelAuditAppended, engine.ChannelRelayChanged}},
	}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if msg := readWS(); msg.Type != WSTypeResponse {
		t.Fatalf("subscribe reply = %+v", msg)
	}

	if _, err := env.engine.DispatchCommand(context.Background(), gateID, relay.CommandActivate, "+15550100"); err != nil {
		t.Fatalf("DispatchCommand() error = %v", err)
	}

	got := map[string]bool{}
	for range 2 {
		msg := readWS()
		got[msg.EventType] = true
	}
	if !got[engine.ChannelAuditAppended] || !got[engine.ChannelRelayChanged] {
		t.Errorf("events = %v, want audit and relay events", got)
	}
}
