package pkg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/appetiteclub/posboard/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	DefaultSlotBucket      = "POSBOARD_UPDATES"
	DefaultSlotRemoveAfter = 250 * time.Millisecond
)

// NATSSlotChannelConfig configures a NATSSlotChannel instance.
type NATSSlotChannelConfig struct {
	URL         string        // NATS server URL
	Bucket      string        // Key-value bucket name (e.g., "POSBOARD_UPDATES")
	RemoveAfter time.Duration // How long a slot stays before it is cleared
	Logger      aqm.Logger
}

// NATSSlotChannel carries updates through short-lived keys of a JetStream
// key-value bucket. Each message is written to its own slot named after the
// emission timestamp and removed shortly after; watchers only react to puts.
type NATSSlotChannel struct {
	conn        *nats.Conn
	kv          jetstream.KeyValue
	removeAfter time.Duration
	logger      aqm.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
}

// NewNATSSlotChannel connects and ensures the bucket exists.
func NewNATSSlotChannel(cfg NATSSlotChannelConfig) (*NATSSlotChannel, error) {
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultSlotBucket
	}
	if cfg.RemoveAfter <= 0 {
		cfg.RemoveAfter = DefaultSlotRemoveAfter
	}
	if cfg.Logger == nil {
		cfg.Logger = aqm.NewNoopLogger()
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("posboard-slots"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	// Entries outliving RemoveAfter are leftovers from a crashed publisher.
	kv, err := js.CreateOrUpdateKeyValue(context.Background(), jetstream.KeyValueConfig{
		Bucket:  cfg.Bucket,
		History: 1,
		TTL:     time.Minute,
		Storage: jetstream.MemoryStorage,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create/update bucket %s: %w", cfg.Bucket, err)
	}

	return &NATSSlotChannel{
		conn:        conn,
		kv:          kv,
		removeAfter: cfg.RemoveAfter,
		logger:      cfg.Logger,
		pending:     make(map[string]*time.Timer),
	}, nil
}

// Publish writes msg into its slot and schedules the slot removal.
func (c *NATSSlotChannel) Publish(ctx context.Context, topic string, msg []byte) error {
	key := slotKey(topic, msg, time.Now())

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("slot channel closed")
	}
	c.mu.Unlock()

	if _, err := c.kv.Put(ctx, key, msg); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.pending[key]; ok {
		old.Stop()
	}
	c.pending[key] = time.AfterFunc(c.removeAfter, func() {
		c.clear(key)
	})
	return nil
}

// Subscribe watches every slot under topic until ctx is done.
func (c *NATSSlotChannel) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	watcher, err := c.kv.Watch(ctx, topic+".*", jetstream.UpdatesOnly())
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", topic, err)
	}

	go func() {
		defer watcher.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-watcher.Updates():
				if !ok {
					return
				}
				if entry == nil || entry.Operation() != jetstream.KeyValuePut {
					continue
				}
				if err := handler(ctx, entry.Value()); err != nil {
					c.logger.Info("slot handler failed", "key", entry.Key(), "error", err)
				}
			}
		}
	}()
	return nil
}

// Close clears the slots still pending removal and closes the connection.
func (c *NATSSlotChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	keys := make([]string, 0, len(c.pending))
	for key, timer := range c.pending {
		timer.Stop()
		keys = append(keys, key)
	}
	c.mu.Unlock()

	for _, key := range keys {
		c.clear(key)
	}
	c.conn.Close()
	return nil
}

func (c *NATSSlotChannel) clear(key string) {
	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.kv.Delete(ctx, key); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		c.logger.Debug("cannot clear slot", "key", key, "error", err)
	}
}

// slotKey names the slot after the emission stamp of the update in msg,
// falling back to now for anything that is not an update.
func slotKey(topic string, msg []byte, now time.Time) string {
	topic = strings.TrimSuffix(topic, ".")
	if u, err := event.Decode(msg); err == nil && u.EmittedAtMillis > 0 {
		return u.SlotKey(topic)
	}
	return fmt.Sprintf("%s.%d", topic, now.UnixMilli())
}
