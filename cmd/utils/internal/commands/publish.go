package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/appetiteclub/posboard/pkg"
	"github.com/appetiteclub/posboard/pkg/bus"
	"github.com/appetiteclub/posboard/pkg/enums/transport"
	"github.com/aquamarinepk/aqm"
)

var ErrLocalTransport = errors.New("the memory transport does not reach other processes; use nats, kv or amqp")

// Publish announces one update on the configured transport and prints it.
// Fields are key=value pairs; values that parse as JSON keep their type.
func Publish(ctx context.Context, cfg pkg.TransportConfig, kind string, fields []string, out io.Writer, logger aqm.Logger) error {
	if cfg.Transport == transport.Transports.Memory {
		return ErrLocalTransport
	}

	payload, err := ParseFields(fields)
	if err != nil {
		return err
	}

	tr, err := pkg.OpenTransport(cfg, logger)
	if err != nil {
		return err
	}
	defer tr.Close()

	b := bus.New(
		bus.WithTransport(tr.Publisher, nil),
		bus.WithTopic(cfg.Topic),
		bus.WithLogger(logger),
	)

	u, err := b.Publish(ctx, kind, payload)
	if err != nil {
		return err
	}

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("cannot encode update: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

// ParseFields turns key=value pairs into a payload.
func ParseFields(fields []string) (map[string]interface{}, error) {
	payload := make(map[string]interface{}, len(fields))
	for _, field := range fields {
		key, raw, ok := strings.Cut(field, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", field)
		}

		var v interface{}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		payload[key] = v
	}
	return payload, nil
}
