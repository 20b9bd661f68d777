package pkg

import "testing"

func TestNewAMQPChannelRejectsBadURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "wrongScheme", url: "http://localhost:5672/"},
		{name: "garbage", url: "::not a url::"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := NewAMQPChannel(tt.url, nil)
			if err == nil {
				ch.Close()
				t.Fatal("NewAMQPChannel() should fail")
			}
		})
	}
}
