package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// UpdatesTopic is the cross-context channel every dashboard context listens on.
	UpdatesTopic = "posboard.updates"
	// UpdateOrigin marks genuine update events on a shared channel.
	UpdateOrigin = "posboard.update"

	EventOrderCreated       = "order_created"
	EventOrderUpdated       = "order_updated"
	EventOrderDeleted       = "order_deleted"
	EventOrderStatusChanged = "order_status_changed"
	EventBillCreated        = "bill_created"
	EventBillUpdated        = "bill_updated"
	EventBillPaid           = "bill_paid"
	EventTableUpdated       = "table_updated"
	EventDishUpdated        = "dish_updated"
	EventCategoryUpdated    = "category_updated"
)

// ErrForeignOrigin is returned by Decode when a message on the channel is not an update event.
var ErrForeignOrigin = errors.New("not an update event")

// Update announces that some domain state owned by the backend changed.
// Listeners refetch; the payload only carries hints such as identifiers.
type Update struct {
	ID              string                 `json:"id"`
	Kind            string                 `json:"kind"`
	Payload         map[string]interface{} `json:"payload"`
	EmittedAtMillis int64                  `json:"emitted_at_millis"`
	Origin          string                 `json:"origin"`
	Source          string                 `json:"source,omitempty"`
}

// NewUpdate builds an update stamped with the given emission time.
func NewUpdate(kind string, payload map[string]interface{}, emittedAtMillis int64, source string) Update {
	return Update{
		ID:              uuid.NewString(),
		Kind:            kind,
		Payload:         copyPayload(payload),
		EmittedAtMillis: emittedAtMillis,
		Origin:          UpdateOrigin,
		Source:          source,
	}
}

// OccurredAt returns the emission time.
func (u Update) OccurredAt() time.Time {
	return time.UnixMilli(u.EmittedAtMillis)
}

// Genuine reports whether the value carries the update origin marker.
func (u Update) Genuine() bool {
	return u.Origin == UpdateOrigin
}

// Clone returns a copy whose payload map can be handed to a listener
// without exposing the original.
func (u Update) Clone() Update {
	c := u
	c.Payload = copyPayload(u.Payload)
	return c
}

// SlotKey is the transient storage key used by slot-based channels.
func (u Update) SlotKey(prefix string) string {
	return fmt.Sprintf("%s.%d", prefix, u.EmittedAtMillis)
}

// Encode serializes the update for a cross-context channel.
func (u Update) Encode() ([]byte, error) {
	return json.Marshal(u)
}

// Decode parses a message read from a cross-context channel.
func Decode(msg []byte) (Update, error) {
	var u Update
	if err := json.Unmarshal(msg, &u); err != nil {
		return Update{}, fmt.Errorf("decode update: %w", err)
	}
	if !u.Genuine() {
		return Update{}, ErrForeignOrigin
	}
	if u.Payload == nil {
		u.Payload = map[string]interface{}{}
	}
	return u, nil
}

// copyPayload copies maps and slices at every depth. Other values are
// shared, so payloads should hold scalars and decoded JSON only.
func copyPayload(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = copyValue(v)
	}
	return dst
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyPayload(t)
	case []interface{}:
		if t == nil {
			return t
		}
		dst := make([]interface{}, len(t))
		for i, el := range t {
			dst[i] = copyValue(el)
		}
		return dst
	case []map[string]interface{}:
		if t == nil {
			return t
		}
		dst := make([]map[string]interface{}, len(t))
		for i, el := range t {
			dst[i] = copyPayload(el)
		}
		return dst
	case map[string]string:
		dst := make(map[string]string, len(t))
		for k, s := range t {
			dst[k] = s
		}
		return dst
	case []string:
		return append([]string(nil), t...)
	case json.RawMessage:
		return append(json.RawMessage(nil), t...)
	case []byte:
		return append([]byte(nil), t...)
	}
	return v
}
