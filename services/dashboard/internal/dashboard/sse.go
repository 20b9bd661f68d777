package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/posboard/pkg/enums/updatekind"
	"github.com/appetiteclub/posboard/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const sseBuffer = 32

// StreamUpdates relays update events to a browser tab.
// Optional ?kind=a,b limits the stream to those kinds.
func (h *Handler) StreamUpdates(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		aqm.RespondError(w, http.StatusServiceUnavailable, "Update bus not configured")
		return
	}

	kinds, unknown := updatekind.Parse(r.URL.Query().Get("kind"))
	if len(unknown) > 0 {
		aqm.RespondError(w, http.StatusBadRequest, "Unknown update kind: "+strings.Join(unknown, ", "))
		return
	}

	subscriberID := uuid.New().String()
	ctx := r.Context()
	updates := make(chan event.Update, sseBuffer)

	unsubscribe := h.bus.Subscribe(ctx, func(u event.Update) {
		select {
		case updates <- u:
		default:
			h.logger.Info("SSE subscriber too slow, update dropped", "subscriber_id", subscriberID, "kind", u.Kind)
		}
	}, kinds...)
	defer unsubscribe()

	h.logger.Info("new SSE connection", "subscriber_id", subscriberID, "kinds", kinds)
	startSSE(w)

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("SSE client disconnected", "subscriber_id", subscriberID)
			return

		case <-ticker.C:
			keepalive(w)

		case u := <-updates:
			data, err := json.Marshal(u)
			if err != nil {
				h.logger.Error("failed to encode update", "error", err)
				continue
			}
			sendSSEEvent(w, "update", string(data))
		}
	}
}

// StreamDashboard pushes a fresh snapshot of one resource list every time
// the watcher refetches it.
func (h *Handler) StreamDashboard(w http.ResponseWriter, r *http.Request) {
	sess := getSessionFromContext(r.Context())
	res, ok := h.resolve(w, sess, chi.URLParam(r, "resource"))
	if !ok {
		return
	}

	subscriberID := uuid.New().String()
	ctx := r.Context()
	log := h.log(r).With("subscriber_id", subscriberID)

	watcher := NewWatcher(h.backend, h.bus, sess, res, h.pollInterval, log)
	snapshots := watcher.Run(ctx)

	log.Info("new dashboard stream", "resource", res.Name, "role", sess.Role)
	startSSE(w)

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("dashboard stream closed", "resource", res.Name)
			return

		case <-ticker.C:
			keepalive(w)

		case snap, ok := <-snapshots:
			if !ok {
				return
			}
			data, err := json.Marshal(snap)
			if err != nil {
				log.Error("failed to encode snapshot", "error", err)
				continue
			}
			sendSSEEvent(w, "snapshot", string(data))
		}
	}
}

func startSSE(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	fmt.Fprintf(w, ": connected\n\n")

	// Reconnection delay in milliseconds
	fmt.Fprintf(w, "retry: 2000\n\n")

	flush(w)
}

func keepalive(w http.ResponseWriter) {
	fmt.Fprintf(w, ": keepalive\n\n")
	flush(w)
}

// sendSSEEvent sends an SSE event with properly formatted multi-line data
func sendSSEEvent(w http.ResponseWriter, eventType string, data string) {
	data = strings.TrimSpace(data)

	fmt.Fprintf(w, "event: %s\n", eventType)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprintf(w, "\n")

	flush(w)
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
