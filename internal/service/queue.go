package service

import (
	"context"
	"errors"
	"sync"

	"coco/internal/model"
	"coco/pkg/kafka"
	"coco/pkg/logger"

	"github.com/goccy/go-json"
)

var ErrQueueClosed = errors.New("delivery queue closed")
var ErrQueueFull = errors.New("delivery queue full")

// DeliveryQueue 分发与投递之间的队列
type DeliveryQueue interface {
	Enqueue(ctx context.Context, task model.DeliveryTask) error
	// Start 启动消费，ctx 取消后停止接收并退出
	Start(ctx context.Context)
	Close()
}

// DirectQueue 进程内的 worker 池
type DirectQueue struct {
	deliverer *Deliverer
	workers   int
	tasks     chan model.DeliveryTask
	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
	wg        sync.WaitGroup
}

func NewDirectQueue(d *Deliverer, workers, size int) *DirectQueue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 1024
	}
	return &DirectQueue{
		deliverer: d,
		workers:   workers,
		tasks:     make(chan model.DeliveryTask, size),
		done:      make(chan struct{}),
	}
}

func (q *DirectQueue) Enqueue(_ context.Context, task model.DeliveryTask) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start ctx 取消后不再接收新任务，缓冲中的任务仍会投递完再退出
func (q *DirectQueue) Start(ctx context.Context) {
	// 投递不随 ctx 取消，由 Deliverer 的超时控制
	deliverCtx := context.WithoutCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for task := range q.tasks {
				// 失败已记为 failed，这里只打日志
				if err := q.deliverer.Deliver(deliverCtx, task); err != nil {
					logger.Debugf("deliver entry %d: %v", task.EntryID, err)
				}
			}
		}()
	}
	go func() {
		select {
		case <-ctx.Done():
			q.stop()
		case <-q.done:
		}
	}()
}

func (q *DirectQueue) stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
		close(q.done)
	}
}

// Close 不再接收新任务，等待已入队的任务处理完
func (q *DirectQueue) Close() {
	q.stop()
	q.wg.Wait()
}

// KafkaQueue 投递任务写入 kafka，按用户分区，消费端调用 Deliverer
type KafkaQueue struct {
	deliverer *Deliverer
	producer  kafka.ProducerService
	consumer  kafka.ConsumerService
	topic     string
	groupID   string
	wg        sync.WaitGroup
}

func NewKafkaQueue(d *Deliverer, producer kafka.ProducerService, consumer kafka.ConsumerService, topic, groupID string) *KafkaQueue {
	return &KafkaQueue{deliverer: d, producer: producer, consumer: consumer, topic: topic, groupID: groupID}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, task model.DeliveryTask) error {
	return q.producer.Produce(ctx, q.topic, []byte(task.UserID), task)
}

func (q *KafkaQueue) Start(ctx context.Context) {
	msgs, err := q.consumer.Consume(ctx, q.topic, q.groupID)
	if err != nil {
		logger.Errorf("start delivery consumer: %v", err)
		return
	}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for m := range msgs {
			var task model.DeliveryTask
			if err := json.Unmarshal(m.Value, &task); err != nil {
				logger.Errorf("decode delivery task at offset %d: %v", m.Offset, err)
				continue
			}
			if err := q.deliverer.Deliver(ctx, task); err != nil {
				logger.Debugf("deliver entry %d: %v", task.EntryID, err)
			}
		}
	}()
}

func (q *KafkaQueue) Close() {
	q.producer.Close()
	q.consumer.Close()
	q.wg.Wait()
}
