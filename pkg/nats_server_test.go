package pkg

import (
	"testing"
	"time"

	natstest "github.com/nats-io/nats-server/v2/test"
)

// runJetStream starts an embedded NATS server with JetStream enabled and
// returns its client URL.
func runJetStream(t *testing.T) string {
	t.Helper()
	opts := natstest.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()

	srv := natstest.RunServer(&opts)
	t.Cleanup(srv.Shutdown)
	return srv.ClientURL()
}

type received struct {
	ch chan []byte
}

func newReceived() *received {
	return &received{ch: make(chan []byte, 64)}
}

func (r *received) next(t *testing.T) []byte {
	t.Helper()
	select {
	case msg := <-r.ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message before deadline")
	}
	return nil
}

func (r *received) none(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case msg := <-r.ch:
		t.Fatalf("unexpected message %s", msg)
	case <-time.After(wait):
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
