package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"coco/internal/consts"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// pipeBroker 生产者写入的消息直接交给消费者
type pipeBroker struct {
	mu     sync.Mutex
	ch     chan kafka.Message
	closed bool
	keys   [][]byte
}

func newPipeBroker() *pipeBroker {
	return &pipeBroker{ch: make(chan kafka.Message, 16)}
}

func (b *pipeBroker) Produce(_ context.Context, topic string, key []byte, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.keys = append(b.keys, key)
	b.ch <- kafka.Message{Topic: topic, Key: key, Value: data, Offset: int64(len(b.keys))}
	return nil
}

func (b *pipeBroker) Consume(context.Context, string, string) (<-chan kafka.Message, error) {
	return b.ch, nil
}

func (b *pipeBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}

func TestKafkaQueueRoundTrip(t *testing.T) {
	f := newDeliveryFixture()
	broker := newPipeBroker()
	q := NewKafkaQueue(f.deliverer(), broker, broker, "coco.delivery", "coco")
	ctx := context.Background()
	q.Start(ctx)

	task := f.logged(t, 7, "u1")
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	// 非法消息被跳过
	broker.ch <- kafka.Message{Value: []byte("{")}

	deadline := time.Now().Add(time.Second)
	for f.hub.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	q.Close()

	if f.hub.count() != 1 || f.hub.published[0].EntryID != 7 {
		t.Fatalf("published %+v", f.hub.published)
	}
	if string(broker.keys[0]) != "u1" {
		t.Fatalf("partition key %q, want user id", broker.keys[0])
	}
	if f.status(t, "u1") != consts.DeliveryDelivered {
		t.Fatalf("status not delivered")
	}
}
