package pkg

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appetiteclub/posboard/pkg/bus"
	"github.com/appetiteclub/posboard/pkg/enums/transport"
	"github.com/appetiteclub/posboard/pkg/event"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/events"
)

const DefaultNATSURL = "nats://localhost:4222"

// TransportConfig selects and configures the cross-context channel.
type TransportConfig struct {
	Transport       transport.Transport
	Topic           string
	NATSURL         string
	SlotBucket      string
	SlotRemoveAfter time.Duration
	AMQPURL         string
}

// TransportConfigFrom reads the bus.*, nats.* and amqp.* keys through get.
func TransportConfigFrom(get func(key string) (string, bool)) (TransportConfig, error) {
	value := func(key, def string) string {
		if v, ok := get(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := TransportConfig{
		Topic:      value("bus.topic", event.UpdatesTopic),
		NATSURL:    value("nats.url", DefaultNATSURL),
		SlotBucket: value("bus.kv.bucket", DefaultSlotBucket),
		AMQPURL:    value("amqp.url", DefaultAMQPURL),
	}

	name := value("bus.transport", transport.Default().Code())
	t := transport.ByName(strings.ToLower(name))
	if t == nil {
		return TransportConfig{}, fmt.Errorf("unknown bus transport %q", name)
	}
	cfg.Transport = *t

	removeAfter, err := ParseDuration(value("bus.kv.remove_after", ""), DefaultSlotRemoveAfter)
	if err != nil {
		return TransportConfig{}, fmt.Errorf("bus.kv.remove_after: %w", err)
	}
	cfg.SlotRemoveAfter = removeAfter
	return cfg, nil
}

// ParseDuration parses a positive duration, returning def for "".
func ParseDuration(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", v)
	}
	return d, nil
}

// BusTransport is an open cross-context channel.
type BusTransport struct {
	Publisher  events.Publisher
	Subscriber events.Subscriber
	closers    []func() error
}

// OpenTransport connects the channel named in cfg.
func OpenTransport(cfg TransportConfig, logger aqm.Logger) (*BusTransport, error) {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}

	switch cfg.Transport {
	case transport.Transports.NATS:
		publisher, err := NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return nil, err
		}
		subscriber, err := NewNATSSubscriber(cfg.NATSURL, logger)
		if err != nil {
			publisher.Close()
			return nil, err
		}
		return &BusTransport{
			Publisher:  publisher,
			Subscriber: subscriber,
			closers:    []func() error{subscriber.Close, publisher.Close},
		}, nil

	case transport.Transports.KV:
		slots, err := NewNATSSlotChannel(NATSSlotChannelConfig{
			URL:         cfg.NATSURL,
			Bucket:      cfg.SlotBucket,
			RemoveAfter: cfg.SlotRemoveAfter,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		return &BusTransport{Publisher: slots, Subscriber: slots, closers: []func() error{slots.Close}}, nil

	case transport.Transports.AMQP:
		ch, err := NewAMQPChannel(cfg.AMQPURL, logger)
		if err != nil {
			return nil, err
		}
		return &BusTransport{Publisher: ch, Subscriber: ch, closers: []func() error{ch.Close}}, nil

	case transport.Transports.Memory:
		hub := bus.NewMemoryHub(logger)
		return &BusTransport{Publisher: hub, Subscriber: hub, closers: []func() error{hub.Close}}, nil
	}
	return nil, fmt.Errorf("unsupported bus transport %q", cfg.Transport.Code())
}

// Close releases every connection of the transport.
func (t *BusTransport) Close() error {
	var errs []error
	for _, closer := range t.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	t.closers = nil
	return errors.Join(errs...)
}
