package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/appetiteclub/posboard/pkg/bus"
	"github.com/appetiteclub/posboard/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type wsReply struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dialUpdates(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/updates/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) wsReply {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply wsReply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return reply
}

func TestUpdatesWebSocketPublish(t *testing.T) {
	b := bus.New()
	others := &updateLog{}
	b.Subscribe(context.Background(), others.record)

	srv := httptest.NewServer(newTestRouter(NewMockBackend(), b))
	defer srv.Close()

	conn := dialUpdates(t, srv, "")
	frame := map[string]interface{}{"kind": event.EventTableUpdated, "payload": map[string]interface{}{"hall_id": "h-1"}}
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	update := readReply(t, conn)
	if update.Type != MessageUpdate {
		t.Fatalf("first reply type = %q, want %q", update.Type, MessageUpdate)
	}
	var u event.Update
	if err := json.Unmarshal(update.Data, &u); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if u.Kind != event.EventTableUpdated || u.Payload["hall_id"] != "h-1" {
		t.Errorf("update = %+v", u)
	}

	ack := readReply(t, conn)
	if ack.Type != MessagePublished {
		t.Errorf("second reply type = %q, want %q", ack.Type, MessagePublished)
	}

	got := others.all()
	if len(got) != 1 || got[0].ID != u.ID {
		t.Errorf("other listeners saw %d updates", len(got))
	}
}

func TestUpdatesWebSocketErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  string
	}{
		{name: "invalidFrame", frame: `not json`, want: "Invalid frame"},
		{name: "unknownKind", frame: `{"kind":"menu_exploded"}`, want: "Unknown update kind: menu_exploded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(newTestRouter(NewMockBackend(), bus.New()))
			defer srv.Close()

			conn := dialUpdates(t, srv, "")
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.frame)); err != nil {
				t.Fatalf("WriteMessage() error = %v", err)
			}

			reply := readReply(t, conn)
			if reply.Type != MessageError {
				t.Fatalf("reply type = %q, want %q", reply.Type, MessageError)
			}
			var data map[string]string
			json.Unmarshal(reply.Data, &data)
			if data["message"] != tt.want {
				t.Errorf("message = %q, want %q", data["message"], tt.want)
			}
		})
	}
}

func TestUpdatesWebSocketFilter(t *testing.T) {
	b := bus.New()
	srv := httptest.NewServer(newTestRouter(NewMockBackend(), b))
	defer srv.Close()

	conn := dialUpdates(t, srv, "?kind=bill_paid")

	conn.WriteJSON(map[string]interface{}{"kind": event.EventOrderCreated})
	first := readReply(t, conn)
	if first.Type != MessagePublished {
		t.Fatalf("reply type = %q, want %q; filtered kind was delivered", first.Type, MessagePublished)
	}

	conn.WriteJSON(map[string]interface{}{"kind": event.EventBillPaid})
	if reply := readReply(t, conn); reply.Type != MessageUpdate {
		t.Errorf("reply type = %q, want %q", reply.Type, MessageUpdate)
	}
}

func TestUpdatesWebSocketOrigins(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		wantOK  bool
	}{
		{name: "noOriginHeader", origin: "", wantOK: true},
		{name: "foreignOriginByDefault", origin: "https://evil.example.com", wantOK: false},
		{name: "listedOrigin", allowed: []string{"https://pos.example.com/"}, origin: "https://POS.example.com", wantOK: true},
		{name: "unlistedOrigin", allowed: []string{"https://pos.example.com"}, origin: "https://evil.example.com", wantOK: false},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://anywhere.example.com", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(HandlerDeps{Backend: NewMockBackend(), Bus: bus.New(), AllowedOrigins: tt.allowed}, aqm.NewConfig(), aqm.NewNoopLogger())
			r := chi.NewRouter()
			h.RegisterRoutes(r)
			srv := httptest.NewServer(r)
			t.Cleanup(srv.Close)

			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/updates/ws"
			conn, resp, err := websocket.DefaultDialer.Dial(url, header)
			if conn != nil {
				t.Cleanup(func() { conn.Close() })
			}

			if tt.wantOK && err != nil {
				t.Fatalf("Dial() error = %v", err)
			}
			if !tt.wantOK {
				if err == nil {
					t.Fatal("Dial() should be rejected")
				}
				if resp == nil || resp.StatusCode != http.StatusForbidden {
					t.Errorf("response = %v, want 403", resp)
				}
			}
		})
	}
}
