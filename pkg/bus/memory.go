package bus

import (
	"context"
	"sync"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

type memoryHandler struct {
	id  uint64
	ctx context.Context
	fn  events.HandlerFunc
}

// MemoryHub is an in-process transport. Several buses sharing one hub
// behave like separate browser contexts sharing storage. Delivery is
// synchronous and in subscription order.
type MemoryHub struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]memoryHandler
	logger   aqm.Logger
}

func NewMemoryHub(logger aqm.Logger) *MemoryHub {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &MemoryHub{
		handlers: make(map[string][]memoryHandler),
		logger:   logger,
	}
}

func (h *MemoryHub) Publish(ctx context.Context, topic string, msg []byte) error {
	h.mu.RLock()
	handlers := make([]memoryHandler, len(h.handlers[topic]))
	copy(handlers, h.handlers[topic])
	h.mu.RUnlock()

	for _, handler := range handlers {
		if handler.ctx.Err() != nil {
			continue
		}
		cp := make([]byte, len(msg))
		copy(cp, msg)
		if err := handler.fn(handler.ctx, cp); err != nil {
			h.logger.Info("memory hub handler failed", "topic", topic, "error", err)
		}
	}
	return nil
}

// Subscribe registers handler until ctx is done.
func (h *MemoryHub) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.handlers[topic] = append(h.handlers[topic], memoryHandler{id: id, ctx: ctx, fn: handler})
	h.mu.Unlock()

	if ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			h.remove(topic, id)
		}()
	}
	return nil
}

// HandlerCount returns the number of handlers registered on topic.
func (h *MemoryHub) HandlerCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers[topic])
}

func (h *MemoryHub) remove(topic string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := h.handlers[topic]
	for i, handler := range list {
		if handler.id == id {
			h.handlers[topic] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(h.handlers[topic]) == 0 {
		delete(h.handlers, topic)
	}
}

func (h *MemoryHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers = make(map[string][]memoryHandler)
	return nil
}
