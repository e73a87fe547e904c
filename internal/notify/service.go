// Package notify turns order status events into customer-facing messages.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-marketplace-core/internal/kafka"
	"github.com/ariefcatur/go-marketplace-core/internal/orders"
	"github.com/ariefcatur/go-marketplace-core/internal/redisx"
)

type Service struct {
	Redis       redis.Cmdable
	Log         *zap.Logger
	ServiceName string
}

// Message is the line a customer would see for one status change.
func Message(p orders.StatusChangedPayload) string {
	who := "The customer"
	if p.ByOwner {
		who = "The shop"
	}
	return fmt.Sprintf("Order %s is now %s (%s: %s, was %s)",
		p.OrderID, orders.StatusText(p.NewStatus), who, p.Label, orders.StatusText(p.OldStatus))
}

// HandleStatusChanged is the consumer handler. Returning nil commits the
// offset, so duplicates and foreign event types return nil too.
func (s *Service) HandleStatusChanged(ctx context.Context, m kafkago.Message) error {
	if t := kafkax.HeaderValue(m, "x-event-type"); t != "" && t != orders.EventOrderStatusChanged {
		return nil
	}

	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message; retrying will not help
		s.log().Warn("drop undecodable event", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventOrderStatusChanged {
		return nil
	}

	var p orders.StatusChangedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		s.log().Warn("drop undecodable payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	first, err := redisx.MarkOnce(ctx, s.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !first {
		return nil
	}

	s.log().Info(Message(p),
		zap.String("event_id", env.EventID),
		zap.String("order_id", p.OrderID),
		zap.String("status", string(p.NewStatus)),
		zap.String("trace_id", env.TraceID))
	return nil
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
