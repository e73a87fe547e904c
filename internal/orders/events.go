package orders

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-marketplace-core/internal/kafka"
)

const (
	EventOrderStatusChanged = "OrderStatusChanged"
	EventThemeChanged       = "ThemeChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "marketplace-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id or user_id
	Payload       json.RawMessage `json:"payload"`
}

type StatusChangedPayload struct {
	OrderID   string `json:"order_id"`
	OldStatus Status `json:"old_status"`
	NewStatus Status `json:"new_status"`
	ByOwner   bool   `json:"by_shop_owner"`
	Label     string `json:"label"`
}

type ThemeChangedPayload struct {
	UserID string `json:"user_id,omitempty"`
	Preset string `json:"preset"`
}

const EventVersion = 1

// NewEnvelope wraps payload in a v1 envelope with a fresh event id.
func NewEnvelope(eventType, producer, traceID, correlationID string, payload any) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  EventVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
}

// Headers returns the routing headers the consumers filter on.
func (e Envelope) Headers() []kafkago.Header {
	return kafkax.EventHeaders(e.EventType, strconv.Itoa(e.EventVersion))
}
