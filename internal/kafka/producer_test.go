package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestProducer() *Producer {
	return NewProducer([]string{"localhost:9092"}, "orders.test", 8)
}

func TestProducerCancelThenClose(t *testing.T) {
	p := newTestProducer()
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	cancel()
	p.WaitClosed()

	// The shutdown path in cmd/fulfillment cancels the root context before
	// calling Close; that order must not panic.
	assert.NotPanics(t, func() { p.Close() })
}

func TestProducerCloseThenCancel(t *testing.T) {
	p := newTestProducer()
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	p.Close()
	p.WaitClosed()
	assert.NotPanics(t, func() { cancel() })
}

func TestProducerCloseIsIdempotent(t *testing.T) {
	p := newTestProducer()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	p.Close()
	assert.NotPanics(t, func() { p.Close() })
	p.WaitClosed()
}

func TestProducerPublishAfterShutdownReturns(t *testing.T) {
	p := newTestProducer()
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()
	p.WaitClosed()

	done := make(chan struct{})
	go func() {
		p.Publish([]byte("k"), []byte("v"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked after shutdown")
	}
}
