package kafka

import (
	"context"
	"sync"

	"coco/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// Kafka 生产者服务
// 定义接口，方便测试和替换
type ProducerService interface {
	// Produce 将 msg 以 JSON 序列化后写入 topic
	Produce(ctx context.Context, topic string, key []byte, msg any) error
	Close()
}

type kafkaProducer struct {
	brokerURL string
	mu        sync.Mutex
	writers   map[string]*kafka.Writer // 每个 topic 一个 Writer
}

func NewKafkaProducer(brokerURL string) ProducerService {
	return &kafkaProducer{
		brokerURL: brokerURL,
		writers:   make(map[string]*kafka.Writer),
	}
}

func (p *kafkaProducer) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.writers[topic]
	if !ok {
		w = &kafka.Writer{
			Addr:                   kafka.TCP(p.brokerURL),
			Topic:                  topic,
			Balancer:               &kafka.Hash{}, // 相同 key（用户）进入同一个 Partition
			AllowAutoTopicCreation: true,
		}
		p.writers[topic] = w
	}
	return w
}

func (p *kafkaProducer) Produce(ctx context.Context, topic string, key []byte, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.writer(topic).WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: data,
	})
}

func (p *kafkaProducer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			logger.Errorf("Error closing kafka writer %s: %v", topic, err)
		}
	}
}
