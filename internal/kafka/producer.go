package kafka

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer is an async writer fed through an inbox channel so handlers never
// block on broker round trips.
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	doneCh  chan struct{}

	closeOnce sync.Once
}

func NewProducer(brokers []string, topic string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start runs the flush loop. The loop is the only goroutine that touches the
// writer; it stops on context cancellation or Close, whichever comes first.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.doneCh)
		for {
			select {
			case <-ctx.Done():
				p.flush()
				return
			case <-p.closeCh:
				p.flush()
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

// flush drains whatever is buffered and closes the writer. The inbox itself
// is never closed, so a late Publish cannot panic.
func (p *Producer) flush() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			_ = p.w.Close()
			return
		}
	}
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		log.Printf("kafka write: topic=%s err=%v", p.w.Topic, err)
	}
}

// Publish enqueues a message; after shutdown it drops the message instead of
// blocking on a loop that is gone.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	m := kafka.Message{
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
	select {
	case p.inbox <- m:
	case <-p.doneCh:
	}
}

// Close signals the loop to flush and exit. Idempotent, and safe in either
// order with context cancellation.
func (p *Producer) Close() {
	p.closeOnce.Do(func() { close(p.closeCh) })
}

// WaitClosed blocks until the flush loop has finished.
func (p *Producer) WaitClosed() { <-p.doneCh }
