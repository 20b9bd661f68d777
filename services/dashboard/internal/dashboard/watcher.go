package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/appetiteclub/posboard/pkg/bus"
	"github.com/appetiteclub/posboard/pkg/event"
	"github.com/appetiteclub/posboard/pkg/normalize"
	"github.com/appetiteclub/posboard/services/dashboard/internal/posapi"
	"github.com/aquamarinepk/aqm"
)

const (
	DefaultPollInterval = 15 * time.Second

	TriggerInitial = "initial"
	TriggerPoll    = "poll"
)

// Backend is the part of the POS API the dashboards use.
type Backend interface {
	List(ctx context.Context, sess posapi.Session, resource string) (normalize.Result, error)
	Mutate(ctx context.Context, sess posapi.Session, resource, action, id string, fields map[string]interface{}) (normalize.Result, error)
}

// UpdateBus is the part of the update bus the dashboards use.
type UpdateBus interface {
	Publish(ctx context.Context, kind string, payload map[string]interface{}) (event.Update, error)
	Subscribe(ctx context.Context, fn bus.Listener, kinds ...string) func()
}

// Snapshot is one fetched state of a resource list.
type Snapshot struct {
	Resource     string             `json:"resource"`
	Generation   uint64             `json:"generation"`
	Trigger      string             `json:"trigger"`
	Items        []normalize.Record `json:"items"`
	MatchedPath  string             `json:"matched_path"`
	Dropped      int                `json:"dropped"`
	EmptySuccess bool               `json:"empty_success"`
	Warning      bool               `json:"warning,omitempty"`
	Error        string             `json:"error,omitempty"`
	FetchedAt    time.Time          `json:"fetched_at"`
}

// Watcher keeps one resource list fresh for one session. It refetches when
// a relevant update arrives and on a fixed poll, which covers updates that
// were missed. Fetches run one at a time and each takes a generation number;
// a response older than the latest applied one is discarded.
type Watcher struct {
	backend  Backend
	bus      UpdateBus
	session  posapi.Session
	resource posapi.Resource
	interval time.Duration
	logger   aqm.Logger

	generation atomic.Uint64

	mu      sync.Mutex
	applied uint64
}

func NewWatcher(backend Backend, updates UpdateBus, sess posapi.Session, res posapi.Resource, interval time.Duration, logger aqm.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Watcher{
		backend:  backend,
		bus:      updates,
		session:  sess,
		resource: res,
		interval: interval,
		logger:   logger.With("resource", res.Name),
	}
}

// Run emits snapshots until ctx is done, then closes the channel.
func (w *Watcher) Run(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot, 1)
	triggers := make(chan string, 1)

	if w.bus != nil && len(w.resource.RefetchOn) > 0 {
		w.bus.Subscribe(ctx, func(u event.Update) {
			select {
			case triggers <- u.Kind:
			default:
				// a refetch is already pending
			}
		}, w.resource.RefetchOn...)
	}

	go func() {
		done := make(chan struct{}, 1)
		running := false
		pending := ""

		start := func(trigger string) {
			running = true
			gen := w.generation.Add(1)
			go func() {
				defer func() { done <- struct{}{} }()
				snap := w.fetch(ctx, gen, trigger)
				if ctx.Err() != nil {
					return
				}
				w.deliver(ctx, out, snap)
			}()
		}

		// At most one fetch is in flight; triggers arriving meanwhile
		// collapse into a single follow-up fetch.
		request := func(trigger string) {
			if running {
				pending = trigger
				return
			}
			start(trigger)
		}

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		start(TriggerInitial)
		for {
			select {
			case <-ctx.Done():
				if running {
					<-done
				}
				close(out)
				return
			case <-done:
				running = false
				if pending != "" {
					next := pending
					pending = ""
					start(next)
				}
			case kind := <-triggers:
				request(kind)
			case <-ticker.C:
				request(TriggerPoll)
			}
		}
	}()

	return out
}

func (w *Watcher) fetch(ctx context.Context, gen uint64, trigger string) Snapshot {
	snap := Snapshot{
		Resource:   w.resource.Name,
		Generation: gen,
		Trigger:    trigger,
		Items:      []normalize.Record{},
	}

	res, err := w.backend.List(ctx, w.session, w.resource.Name)
	snap.FetchedAt = time.Now()
	if err != nil {
		if apiErr, ok := posapi.AsError(err); ok {
			snap.Error = apiErr.Message
		} else {
			snap.Error = err.Error()
		}
		w.logger.Info("dashboard refetch failed", "generation", gen, "trigger", trigger, "error", err)
		return snap
	}

	snap.Items = res.Items
	snap.MatchedPath = res.MatchedPath
	snap.Dropped = res.Dropped
	snap.EmptySuccess = res.EmptySuccess
	snap.Warning = res.Warning
	return snap
}

// deliver sends snap unless a newer generation was already sent.
func (w *Watcher) deliver(ctx context.Context, out chan<- Snapshot, snap Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.accept(snap.Generation) {
		w.logger.Debug("discarding stale snapshot", "generation", snap.Generation, "applied", w.applied)
		return
	}

	select {
	case out <- snap:
	case <-ctx.Done():
	}
}

// accept records gen as applied when it is newer than the last one.
// Callers hold w.mu.
func (w *Watcher) accept(gen uint64) bool {
	if gen <= w.applied {
		return false
	}
	w.applied = gen
	return true
}
