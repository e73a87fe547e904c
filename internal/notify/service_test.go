package notify

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	kafkax "github.com/ariefcatur/go-marketplace-core/internal/kafka"
	"github.com/ariefcatur/go-marketplace-core/internal/orders"
)

func statusMessage(p orders.StatusChangedPayload) (orders.Envelope, kafkago.Message) {
	env := orders.NewEnvelope(orders.EventOrderStatusChanged, "test-api", "req-1", p.OrderID, p)
	return env, kafkago.Message{Key: orders.PartitionKey(p.OrderID), Value: kafkax.MustMarshal(env), Headers: env.Headers()}
}

func newService(t *testing.T) (*Service, *miniredis.Miniredis, *observer.ObservedLogs) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	core, logs := observer.New(zap.InfoLevel)
	return &Service{Redis: rdb, Log: zap.New(core), ServiceName: "notifier"}, mr, logs
}

func TestMessage(t *testing.T) {
	got := Message(orders.StatusChangedPayload{
		OrderID: "o1", OldStatus: orders.StatusPreparing, NewStatus: orders.StatusInDelivery, ByOwner: true, Label: "Delivering",
	})
	assert.Equal(t, "Order o1 is now In Delivery (The shop: Delivering, was Preparing)", got)
}

func TestHandleStatusChanged_LogsOnce(t *testing.T) {
	svc, mr, logs := newService(t)
	env, m := statusMessage(orders.StatusChangedPayload{
		OrderID: "o1", OldStatus: orders.StatusPending, NewStatus: orders.StatusCancelled, Label: "Cancel",
	})

	require.NoError(t, svc.HandleStatusChanged(context.Background(), m))
	require.NoError(t, svc.HandleStatusChanged(context.Background(), m))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Order o1 is now Cancelled (The customer: Cancel, was Pending)", entries[0].Message)
	assert.True(t, mr.Exists("dedup:notifier:"+env.EventID))
}

func TestHandleStatusChanged_IgnoresOtherEvents(t *testing.T) {
	svc, _, logs := newService(t)
	env := orders.NewEnvelope(orders.EventThemeChanged, "test-api", "", "u1", orders.ThemeChangedPayload{UserID: "u1", Preset: "ocean"})

	require.NoError(t, svc.HandleStatusChanged(context.Background(),
		kafkago.Message{Value: kafkax.MustMarshal(env), Headers: env.Headers()}))
	// no header, body says it is not ours either
	require.NoError(t, svc.HandleStatusChanged(context.Background(),
		kafkago.Message{Value: kafkax.MustMarshal(env)}))
	assert.Zero(t, logs.Len())
}

func TestHandleStatusChanged_DropsGarbage(t *testing.T) {
	svc, _, logs := newService(t)

	require.NoError(t, svc.HandleStatusChanged(context.Background(), kafkago.Message{Value: []byte("{")}))
	assert.Equal(t, 1, logs.FilterMessage("drop undecodable event").Len())
}

func TestHandleStatusChanged_RedisDownReturnsError(t *testing.T) {
	svc, mr, _ := newService(t)
	_, m := statusMessage(orders.StatusChangedPayload{OrderID: "o2", OldStatus: orders.StatusReady, NewStatus: orders.StatusCompleted})
	mr.Close()

	// an error leaves the offset uncommitted so the consumer retries it
	assert.Error(t, svc.HandleStatusChanged(context.Background(), m))
}
