package transport

import "testing"

func TestByName(t *testing.T) {
	for _, tr := range All {
		if got := ByName(tr.Code()); got == nil || *got != tr {
			t.Errorf("ByName(%q) = %v", tr.Code(), got)
		}
	}
	if ByName("redis") != nil {
		t.Error("ByName(redis) should be nil")
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		tr   Transport
		want string
	}{
		{Transports.Memory, "Memory"},
		{Transports.NATS, "NATS"},
		{Transports.KV, "NATS Key-Value"},
		{Transports.AMQP, "RabbitMQ"},
		{Transport{Name: "redis"}, "Redis"},
		{Transport{}, ""},
	}
	for _, tt := range tests {
		if got := tt.tr.Label(); got != tt.want {
			t.Errorf("Label(%s) = %q, want %q", tt.tr.Name, got, tt.want)
		}
	}
}
