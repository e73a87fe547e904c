package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Writer is the part of *kafka.Writer the producer needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer buffers messages in an inbox and writes them from one
// goroutine, so Publish never waits on the broker.
type Producer struct {
	w       Writer
	log     *zap.Logger
	inbox   chan kafka.Message
	closeCh chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewProducer(brokers []string, topic string, buf int, log *zap.Logger) *Producer {
	return NewProducerWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, buf, log)
}

func NewProducerWithWriter(w Writer, buf int, log *zap.Logger) *Producer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Producer{
		w:       w,
		log:     log.Named("kafka-producer"),
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the write loop until Close. Writes use a background context
// so messages still queued at shutdown are flushed.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			if err := p.w.WriteMessages(context.Background(), m); err != nil {
				p.log.Error("write message failed",
					zap.ByteString("key", m.Key), zap.Error(err))
			}
		}
		if err := p.w.Close(); err != nil {
			p.log.Warn("close writer failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		p.Close()
	}()
}

// Publish enqueues a message. Messages published after Close are dropped.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.log.Warn("producer closed, dropping message", zap.ByteString("key", key))
		return
	}
	p.inbox <- kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
}

// Tutup channel supaya goroutine nge-flush sisa pesan lalu exit rapi.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
}

// Tunggu sampai goroutine selesai.
func (p *Producer) WaitClosed() { <-p.closeCh }
