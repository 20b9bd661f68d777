// Package bus fans update notifications out to every dashboard context:
// listeners in this process directly, other processes through a transport.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/appetiteclub/posboard/pkg/enums/updatekind"
	"github.com/appetiteclub/posboard/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
	"github.com/google/uuid"
)

var ErrUnknownKind = errors.New("unknown update kind")

// Listener receives a private copy of each update.
type Listener func(event.Update)

type Option func(*Bus)

// WithTransport attaches the cross-context channel. Either side may be nil.
func WithTransport(pub events.Publisher, sub events.Subscriber) Option {
	return func(b *Bus) {
		b.publisher = pub
		b.subscriber = sub
	}
}

func WithTopic(topic string) Option {
	return func(b *Bus) {
		if topic != "" {
			b.topic = topic
		}
	}
}

func WithLogger(logger aqm.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		if now != nil {
			b.now = now
		}
	}
}

type subscription struct {
	id     string
	fn     Listener
	kinds  map[string]struct{}
	active atomic.Bool
}

func (s *subscription) accepts(kind string) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}

// Bus is a best-effort notification fan-out. Nothing is stored: a context
// that is not subscribed when an update is published never sees it.
type Bus struct {
	id         string
	topic      string
	publisher  events.Publisher
	subscriber events.Subscriber
	logger     aqm.Logger
	now        func() time.Time

	mu   sync.RWMutex
	subs []*subscription

	clockMu    sync.Mutex
	lastMillis int64

	startOnce sync.Once
}

func New(opts ...Option) *Bus {
	b := &Bus{
		id:     uuid.NewString(),
		topic:  event.UpdatesTopic,
		logger: aqm.NewNoopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ID identifies this bus instance on shared channels.
func (b *Bus) ID() string {
	return b.id
}

func (b *Bus) Topic() string {
	return b.topic
}

// Start attaches the transport subscriber so updates from other contexts
// reach local listeners.
func (b *Bus) Start(ctx context.Context) error {
	var err error
	b.startOnce.Do(func() {
		if b.subscriber == nil {
			b.logger.Info("update bus running without cross-context transport")
			return
		}
		if err = b.subscriber.Subscribe(ctx, b.topic, b.handleRemote); err != nil {
			err = fmt.Errorf("failed to subscribe to %s: %w", b.topic, err)
			return
		}
		b.logger.Info("update bus subscribed", "topic", b.topic, "bus_id", b.id)
	})
	return err
}

// Stop drops every listener.
func (b *Bus) Stop(ctx context.Context) error {
	b.mu.Lock()
	for _, s := range b.subs {
		s.active.Store(false)
	}
	b.subs = nil
	b.mu.Unlock()
	return nil
}

// Publish announces a change. Local listeners run before Publish returns;
// transport failures are logged, never returned.
func (b *Bus) Publish(ctx context.Context, kind string, payload map[string]interface{}) (event.Update, error) {
	if !updatekind.Valid(kind) {
		return event.Update{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	u := event.NewUpdate(kind, payload, b.nextMillis(), b.id)
	b.dispatch(u)

	if b.publisher == nil {
		return u, nil
	}

	msg, err := u.Encode()
	if err != nil {
		b.logger.Error("cannot encode update", "kind", kind, "error", err)
		return u, nil
	}
	if err := b.publisher.Publish(ctx, b.topic, msg); err != nil {
		b.logger.Error("cannot publish update", "kind", kind, "topic", b.topic, "error", err)
	}
	return u, nil
}

// Subscribe registers fn for the given kinds, or for every kind when none
// are given. The subscription ends when ctx is done or when the returned
// function is called, whichever comes first.
func (b *Bus) Subscribe(ctx context.Context, fn Listener, kinds ...string) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	sub := &subscription{
		id: uuid.NewString(),
		fn: fn,
	}
	if len(kinds) > 0 {
		sub.kinds = make(map[string]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}
	sub.active.Store(true)

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	total := len(b.subs)
	b.mu.Unlock()

	b.logger.Debug("update listener registered", "listener_id", sub.id, "kinds", kinds, "total_listeners", total)

	done := make(chan struct{})
	var once sync.Once
	unsubscribe = func() {
		once.Do(func() {
			b.remove(sub)
			close(done)
		})
	}

	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				unsubscribe()
			case <-done:
			}
		}()
	}

	return unsubscribe
}

// SubscriberCount returns the number of live listeners.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) remove(sub *subscription) {
	sub.active.Store(false)

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			break
		}
	}
	b.logger.Debug("update listener removed", "listener_id", sub.id, "total_listeners", len(b.subs))
}

func (b *Bus) handleRemote(ctx context.Context, msg []byte) error {
	u, err := event.Decode(msg)
	if err != nil {
		if !errors.Is(err, event.ErrForeignOrigin) {
			b.logger.Info("dropping undecodable update", "error", err)
		}
		return nil
	}

	if u.Source == b.id {
		return nil
	}

	if !updatekind.Valid(u.Kind) {
		b.logger.Debug("ignoring update of unknown kind", "kind", u.Kind)
		return nil
	}

	b.dispatch(u)
	return nil
}

func (b *Bus) dispatch(u event.Update) {
	b.mu.RLock()
	subs := make([]*subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if !s.accepts(u.Kind) || !s.active.Load() {
			continue
		}
		b.deliver(s, u.Clone())
	}
}

func (b *Bus) deliver(s *subscription, u event.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("update listener panicked", "listener_id", s.id, "kind", u.Kind, "panic", fmt.Sprint(r))
		}
	}()
	s.fn(u)
}

// nextMillis keeps emission stamps strictly increasing for this bus.
func (b *Bus) nextMillis() int64 {
	b.clockMu.Lock()
	defer b.clockMu.Unlock()

	now := b.now().UnixMilli()
	if now <= b.lastMillis {
		now = b.lastMillis + 1
	}
	b.lastMillis = now
	return now
}
