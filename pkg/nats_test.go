package pkg

import (
	"context"
	"testing"
	"time"
)

func TestNATSSubscriberUnsubscribesOnCancel(t *testing.T) {
	url := runJetStream(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("NewNATSPublisher() error = %v", err)
	}
	defer pub.Close()

	sub, err := NewNATSSubscriber(url, nil)
	if err != nil {
		t.Fatalf("NewNATSSubscriber() error = %v", err)
	}
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	got := newReceived()
	err = sub.Subscribe(ctx, "posboard.updates", func(ctx context.Context, msg []byte) error {
		got.ch <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := sub.conn.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	bg := context.Background()
	if err := pub.Publish(bg, "posboard.updates", []byte(`first`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if msg := got.next(t); string(msg) != "first" {
		t.Errorf("message = %s, want first", msg)
	}

	cancel()
	waitUntil(t, func() bool {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		for _, s := range sub.subs {
			if s.IsValid() {
				return false
			}
		}
		return true
	})

	if err := pub.Publish(bg, "posboard.updates", []byte(`second`)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	got.none(t, 200*time.Millisecond)
}
