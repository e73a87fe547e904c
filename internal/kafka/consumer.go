package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler harus return nil hanya jika proses sukses & boleh commit offset.
type Handler func(ctx context.Context, m kafka.Message) error

const (
	DefaultMaxAttempts = 5
	DefaultBackoff     = 200 * time.Millisecond
)

type Consumer struct {
	r       *kafka.Reader
	workers int
	log     *zap.Logger

	// A failing handler is retried in the worker. The reader does not
	// refetch an uncommitted message, so once attempts run out the message
	// only comes back after a rebalance or restart.
	MaxAttempts int
	Backoff     time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{
		r:           r,
		workers:     workers,
		log:         log.Named("kafka-consumer"),
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     DefaultBackoff,
	}
}

// Start dispatches messages to a fixed worker pool and commits each one
// its handler accepted. It returns nil on context cancellation.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, 1024)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for m := range jobs {
				err := withRetry(ctx, c.MaxAttempts, c.Backoff, func(attempt int, err error) {
					c.log.Warn("handler failed, retrying",
						zap.Int("worker", id), zap.Int64("offset", m.Offset),
						zap.Int("attempt", attempt), zap.Error(err))
				}, func() error { return h(ctx, m) })
				if err != nil {
					c.log.Error("handler gave up, offset not committed",
						zap.Int("worker", id), zap.Int64("offset", m.Offset), zap.Error(err))
					continue
				}
				if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
					c.log.Warn("commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
				}
			}
		}(i)
	}
	defer wg.Wait()
	defer close(jobs)

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case jobs <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

// withRetry runs fn up to attempts times, doubling the wait after each
// failure. It returns the last error, or ctx's error if ctx ends first.
func withRetry(ctx context.Context, attempts int, backoff time.Duration, onRetry func(attempt int, err error), fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= attempts {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		t := time.NewTimer(backoff)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
		backoff *= 2
	}
}
