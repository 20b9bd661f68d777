package transport

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Transport names the channel update buses use to reach other contexts.
type Transport struct {
	Name string
}

func (t Transport) Code() string {
	return t.Name
}

func (t Transport) Label() string {
	switch t.Name {
	case "nats":
		return "NATS"
	case "kv":
		return "NATS Key-Value"
	case "amqp":
		return "RabbitMQ"
	}
	return cases.Title(language.English).String(t.Name)
}

type Enum struct {
	Memory Transport
	NATS   Transport
	KV     Transport
	AMQP   Transport
}

var Transports = Enum{
	Memory: Transport{Name: "memory"},
	NATS:   Transport{Name: "nats"},
	KV:     Transport{Name: "kv"},
	AMQP:   Transport{Name: "amqp"},
}

var All = []Transport{
	Transports.Memory,
	Transports.NATS,
	Transports.KV,
	Transports.AMQP,
}

// ByName returns the transport for a given name, or nil if not found
func ByName(name string) *Transport {
	for _, t := range All {
		if t.Name == name {
			return &t
		}
	}
	return nil
}

// Default is used when no transport is configured.
func Default() Transport {
	return Transports.Memory
}
