package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/posboard/pkg/bus"
	"github.com/appetiteclub/posboard/pkg/enums/updatekind"
	"github.com/appetiteclub/posboard/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size accepted from a tab.
	maxFrameSize = 64 << 10

	wsBuffer = 64
)

const (
	MessageUpdate    = "update"
	MessagePublished = "published"
	MessageError     = "error"
)

// Message is a frame sent to a tab.
type Message struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// publishFrame is what a tab sends to announce a change.
type publishFrame struct {
	Kind    string                 `json:"kind"`
	Payload map[string]interface{} `json:"payload"`
}

// UpdatesWebSocket lets a tab both receive update events and publish its own.
// Optional ?kind=a,b limits what the tab receives.
func (h *Handler) UpdatesWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		aqm.RespondError(w, http.StatusServiceUnavailable, "Update bus not configured")
		return
	}

	kinds, unknown := updatekind.Parse(r.URL.Query().Get("kind"))
	if len(unknown) > 0 {
		aqm.RespondError(w, http.StatusBadRequest, "Unknown update kind: "+strings.Join(unknown, ", "))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &wsClient{
		id:     uuid.New().String(),
		conn:   conn,
		send:   make(chan Message, wsBuffer),
		bus:    h.bus,
		logger: h.logger,
		cancel: cancel,
	}

	h.bus.Subscribe(ctx, c.enqueueUpdate, kinds...)
	h.logger.Info("WebSocket client connected", "client_id", c.id, "kinds", kinds)

	go c.writePump(ctx)
	c.readPump(ctx)
}

type wsClient struct {
	id     string
	conn   *websocket.Conn
	send   chan Message
	bus    UpdateBus
	logger aqm.Logger
	cancel context.CancelFunc
}

func (c *wsClient) enqueueUpdate(u event.Update) {
	c.enqueue(Message{Type: MessageUpdate, Timestamp: u.OccurredAt(), Data: u})
}

func (c *wsClient) enqueue(m Message) {
	select {
	case c.send <- m:
	default:
		c.logger.Info("WebSocket client too slow, message dropped", "client_id", c.id, "type", m.Type)
	}
}

// readPump reads publish frames until the connection fails.
func (c *wsClient) readPump(ctx context.Context) {
	defer func() {
		c.cancel()
		_ = c.conn.Close()
		c.logger.Info("WebSocket client disconnected", "client_id", c.id)
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error", "client_id", c.id, "error", err)
			}
			return
		}
		c.handleFrame(ctx, data)
	}
}

func (c *wsClient) handleFrame(ctx context.Context, data []byte) {
	var frame publishFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.enqueue(errorMessage("Invalid frame"))
		return
	}

	u, err := c.bus.Publish(ctx, frame.Kind, frame.Payload)
	if err != nil {
		if errors.Is(err, bus.ErrUnknownKind) {
			c.enqueue(errorMessage("Unknown update kind: " + frame.Kind))
			return
		}
		c.enqueue(errorMessage("Publish failed"))
		return
	}

	c.enqueue(Message{
		Type:      MessagePublished,
		Timestamp: time.Now(),
		Data:      map[string]string{"id": u.ID, "kind": u.Kind},
	})
}

// writePump is the only writer on the connection.
func (c *wsClient) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			data, err := json.Marshal(message)
			if err != nil {
				c.logger.Error("Failed to marshal WebSocket message", "error", err)
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.cancel()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}
		}
	}
}

func errorMessage(msg string) Message {
	return Message{Type: MessageError, Timestamp: time.Now(), Data: map[string]string{"message": msg}}
}
