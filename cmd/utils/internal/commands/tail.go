package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/appetiteclub/posboard/pkg"
	"github.com/appetiteclub/posboard/pkg/bus"
	"github.com/appetiteclub/posboard/pkg/enums/transport"
	"github.com/appetiteclub/posboard/pkg/event"
	"github.com/aquamarinepk/aqm"
)

// Tail prints every update seen on the configured transport until ctx is done.
func Tail(ctx context.Context, cfg pkg.TransportConfig, kinds []string, out io.Writer, logger aqm.Logger) error {
	if cfg.Transport == transport.Transports.Memory {
		return ErrLocalTransport
	}

	tr, err := pkg.OpenTransport(cfg, logger)
	if err != nil {
		return err
	}
	defer tr.Close()

	b := bus.New(
		bus.WithTransport(nil, tr.Subscriber),
		bus.WithTopic(cfg.Topic),
		bus.WithLogger(logger),
	)
	if err := b.Start(ctx); err != nil {
		return err
	}
	defer b.Stop(context.Background())

	logger.Info("tailing updates", "topic", cfg.Topic, "transport", cfg.Transport.Code(), "kinds", kinds)
	watch(ctx, b, kinds, out)
	return nil
}

// watch writes one JSON line per update until ctx is done.
func watch(ctx context.Context, b *bus.Bus, kinds []string, out io.Writer) {
	var mu sync.Mutex
	b.Subscribe(ctx, func(u event.Update) {
		data, err := json.Marshal(u)
		if err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(out, string(data))
	}, kinds...)

	<-ctx.Done()
}
